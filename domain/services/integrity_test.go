package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"canopy-backend/domain/core/entities"
	"canopy-backend/domain/core/valueobjects"
)

func makeFolder(t *testing.T, id, parentID, name string) *entities.Folder {
	t.Helper()
	nodeID, err := valueobjects.NewNodeIDFromString(id)
	require.NoError(t, err)
	now := time.Now()
	return entities.ReconstructFolder(nodeID, parentID, name, entities.ColorNone, "", "", 1000, now, now)
}

func TestIsDescendantOrSelf(t *testing.T) {
	checker := NewIntegrityChecker(zap.NewNop())

	// a -> b -> c, plus unrelated x
	folders := []*entities.Folder{
		makeFolder(t, "a", "", "A"),
		makeFolder(t, "b", "a", "B"),
		makeFolder(t, "c", "b", "C"),
		makeFolder(t, "x", "", "X"),
	}

	t.Run("SelfIsDescendant", func(t *testing.T) {
		assert.True(t, checker.IsDescendantOrSelf(folders, "a", "a"))
	})

	t.Run("DirectChild", func(t *testing.T) {
		assert.True(t, checker.IsDescendantOrSelf(folders, "a", "b"))
	})

	t.Run("DeepDescendant", func(t *testing.T) {
		assert.True(t, checker.IsDescendantOrSelf(folders, "a", "c"))
	})

	t.Run("Unrelated", func(t *testing.T) {
		assert.False(t, checker.IsDescendantOrSelf(folders, "a", "x"))
		assert.False(t, checker.IsDescendantOrSelf(folders, "x", "c"))
	})

	t.Run("AncestorIsNotDescendant", func(t *testing.T) {
		assert.False(t, checker.IsDescendantOrSelf(folders, "c", "a"))
	})

	t.Run("UnknownFolder", func(t *testing.T) {
		assert.False(t, checker.IsDescendantOrSelf(folders, "a", "missing"))
	})
}

func TestIsDescendantOrSelfCorruptData(t *testing.T) {
	checker := NewIntegrityChecker(zap.NewNop())

	// p and q point at each other: the stored data already holds a cycle.
	// The walk must terminate and err on the side of rejecting the move.
	folders := []*entities.Folder{
		makeFolder(t, "p", "q", "P"),
		makeFolder(t, "q", "p", "Q"),
		makeFolder(t, "a", "", "A"),
	}

	assert.True(t, checker.IsDescendantOrSelf(folders, "a", "p"))
}
