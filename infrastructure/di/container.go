package di

import (
	"go.uber.org/zap"

	"canopy-backend/application/ports"
	"canopy-backend/application/services"
	"canopy-backend/infrastructure/config"
	"canopy-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Store       ports.DocumentStore
	Events      ports.EventPublisher
	Metrics     observability.Recorder
	TreeManager *services.TreeManager
}
