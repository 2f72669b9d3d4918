package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Recorder counts operational events. Implementations must be safe for
// concurrent use and must never fail the calling operation.
type Recorder interface {
	// CountMutation records one tree mutation of the named operation
	CountMutation(operation string)

	// CountReindex records one full sibling-level reindex
	CountReindex()

	// CountUndo records one successful delete undo
	CountUndo()
}

// CloudWatchRecorder publishes counters as CloudWatch custom metrics
type CloudWatchRecorder struct {
	client    *cloudwatch.Client
	namespace string
	logger    *zap.Logger
}

// NewCloudWatchRecorder creates a CloudWatch-backed recorder
func NewCloudWatchRecorder(client *cloudwatch.Client, namespace string, logger *zap.Logger) *CloudWatchRecorder {
	return &CloudWatchRecorder{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// CountMutation records one tree mutation
func (r *CloudWatchRecorder) CountMutation(operation string) {
	r.put("TreeMutations", []types.Dimension{{
		Name:  aws.String("Operation"),
		Value: aws.String(operation),
	}})
}

// CountReindex records one sibling-level reindex
func (r *CloudWatchRecorder) CountReindex() {
	r.put("OrderReindexes", nil)
}

// CountUndo records one successful delete undo
func (r *CloudWatchRecorder) CountUndo() {
	r.put("DeleteUndos", nil)
}

// put publishes a single count datum off the caller's path; metric delivery
// failures are logged, never surfaced
func (r *CloudWatchRecorder) put(name string, dims []types.Dimension) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace: aws.String(r.namespace),
			MetricData: []types.MetricDatum{{
				MetricName: aws.String(name),
				Dimensions: dims,
				Value:      aws.Float64(1),
				Unit:       types.StandardUnitCount,
				Timestamp:  aws.Time(time.Now()),
			}},
		})
		if err != nil {
			r.logger.Warn("failed to publish metric",
				zap.String("metric", name),
				zap.Error(err),
			)
		}
	}()
}

// NoopRecorder discards all counts; used in tests and when metrics are disabled
type NoopRecorder struct{}

// NewNoopRecorder creates a recorder that discards everything
func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (*NoopRecorder) CountMutation(string) {}
func (*NoopRecorder) CountReindex()        {}
func (*NoopRecorder) CountUndo()           {}
