package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"canopy-backend/application/ports"
	domainservices "canopy-backend/domain/services"
	"canopy-backend/infrastructure/persistence/memory"
)

func newTestManager(t *testing.T) (*TreeManager, *memory.DocumentStore) {
	t.Helper()

	store := memory.NewDocumentStore()
	logger := zap.NewNop()
	manager := NewTreeManager(
		store,
		nil,
		nil,
		domainservices.NewIntegrityChecker(logger),
		domainservices.NewPathResolver(logger),
		logger,
		testUndoWindow,
	)
	t.Cleanup(manager.Close)
	return manager, store
}

func TestForUserReturnsSameEngine(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	first, err := manager.ForUser(ctx, "user-1")
	require.NoError(t, err)
	second, err := manager.ForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := manager.ForUser(ctx, "user-2")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestForUserEngineTracksRemoteChanges(t *testing.T) {
	ctx := context.Background()
	manager, store := newTestManager(t)

	engine, err := manager.ForUser(ctx, "user-1")
	require.NoError(t, err)

	// A write from another session reaches the engine without a reload.
	remoteID, err := store.CreateOne(ctx, ports.Collection{UserID: "user-1", Kind: ports.EntityKindFolders},
		map[string]interface{}{
			ports.FieldParentID: "",
			ports.FieldName:     "Other session",
			ports.FieldOrder:    int64(1000),
		})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		folders, _ := engine.Children("")
		return len(folders) == 1 && folders[0].ID().String() == remoteID
	}, time.Second, 5*time.Millisecond)
}
