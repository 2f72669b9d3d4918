package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"canopy-backend/application/ports"
	domainservices "canopy-backend/domain/services"
	"canopy-backend/pkg/observability"
)

// TreeManager hands out one mutation engine per user, created lazily on
// first use. Each engine owns its own snapshot and subscriptions.
type TreeManager struct {
	store      ports.DocumentStore
	events     ports.EventPublisher
	metrics    observability.Recorder
	checker    *domainservices.IntegrityChecker
	resolver   *domainservices.PathResolver
	logger     *zap.Logger
	undoWindow time.Duration

	mu      sync.Mutex
	engines map[string]*TreeService
}

// NewTreeManager creates the engine registry
func NewTreeManager(
	store ports.DocumentStore,
	publisher ports.EventPublisher,
	metrics observability.Recorder,
	checker *domainservices.IntegrityChecker,
	resolver *domainservices.PathResolver,
	logger *zap.Logger,
	undoWindow time.Duration,
) *TreeManager {
	return &TreeManager{
		store:      store,
		events:     publisher,
		metrics:    metrics,
		checker:    checker,
		resolver:   resolver,
		logger:     logger,
		undoWindow: undoWindow,
		engines:    make(map[string]*TreeService),
	}
}

// ForUser returns the user's engine, creating and loading it on first use
func (m *TreeManager) ForUser(ctx context.Context, userID string) (*TreeService, error) {
	m.mu.Lock()
	engine, exists := m.engines[userID]
	m.mu.Unlock()
	if exists {
		return engine, nil
	}

	engine = NewTreeService(userID, m.store, m.events, m.metrics, m.checker, m.resolver,
		m.logger.With(zap.String("userID", userID)), m.undoWindow)
	if err := engine.Load(ctx); err != nil {
		return nil, err
	}
	if err := engine.WatchTree(ctx); err != nil {
		engine.Close()
		return nil, err
	}

	m.mu.Lock()
	// Another request may have won the race; keep the first engine.
	if existing, exists := m.engines[userID]; exists {
		m.mu.Unlock()
		engine.Close()
		return existing, nil
	}
	m.engines[userID] = engine
	m.mu.Unlock()

	return engine, nil
}

// Close tears down every engine
func (m *TreeManager) Close() {
	m.mu.Lock()
	engines := m.engines
	m.engines = make(map[string]*TreeService)
	m.mu.Unlock()

	for _, engine := range engines {
		engine.Close()
	}
}
