package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"canopy-backend/application/ports"
	"canopy-backend/application/services"
	domainservices "canopy-backend/domain/services"
	"canopy-backend/infrastructure/config"
	"canopy-backend/infrastructure/messaging/eventbridge"
	"canopy-backend/infrastructure/persistence/dynamodb"
	"canopy-backend/pkg/observability"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideDocumentStore creates the DynamoDB-backed document store
func ProvideDocumentStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.DocumentStore {
	return dynamodb.NewDocumentStore(client, cfg.DynamoDBTable, logger)
}

// ProvideEventPublisher creates the domain event publisher. Events are
// disabled in environments without an event bus.
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if !cfg.EnableEvents {
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideMetrics creates the metrics recorder
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) observability.Recorder {
	if !cfg.EnableMetrics {
		return observability.NewNoopRecorder()
	}
	return observability.NewCloudWatchRecorder(client, cfg.MetricsNamespace, logger)
}

// ProvideIntegrityChecker creates the tree integrity checker
func ProvideIntegrityChecker(logger *zap.Logger) *domainservices.IntegrityChecker {
	return domainservices.NewIntegrityChecker(logger)
}

// ProvidePathResolver creates the breadcrumb path resolver
func ProvidePathResolver(logger *zap.Logger) *domainservices.PathResolver {
	return domainservices.NewPathResolver(logger)
}

// ProvideTreeManager creates the per-user tree engine registry
func ProvideTreeManager(
	store ports.DocumentStore,
	publisher ports.EventPublisher,
	metrics observability.Recorder,
	checker *domainservices.IntegrityChecker,
	resolver *domainservices.PathResolver,
	cfg *config.Config,
	logger *zap.Logger,
) *services.TreeManager {
	return services.NewTreeManager(store, publisher, metrics, checker, resolver, logger, cfg.UndoWindow)
}
