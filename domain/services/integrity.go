package services

import (
	"go.uber.org/zap"

	"canopy-backend/domain/core/entities"
)

// IntegrityChecker guards the acyclic invariant of the folder tree
type IntegrityChecker struct {
	logger *zap.Logger
}

// NewIntegrityChecker creates a new integrity checker
func NewIntegrityChecker(logger *zap.Logger) *IntegrityChecker {
	return &IntegrityChecker{logger: logger}
}

// IsDescendantOrSelf reports whether descendantID equals ancestorID or lies
// anywhere below it in the folder tree. Moving a folder into any folder for
// which this returns true would create a cycle and must be rejected.
//
// The walk follows parentID pointers upward from descendantID. It is bounded
// by the total folder count so corrupt data containing a cycle terminates;
// exceeding the bound is treated as a cycle for safety and logged as an
// integrity fault.
func (c *IntegrityChecker) IsDescendantOrSelf(folders []*entities.Folder, ancestorID, descendantID string) bool {
	if ancestorID == descendantID {
		return true
	}

	byID := make(map[string]*entities.Folder, len(folders))
	for _, f := range folders {
		byID[f.ID().String()] = f
	}

	current := descendantID
	for steps := 0; steps <= len(folders); steps++ {
		folder, exists := byID[current]
		if !exists {
			return false
		}
		parent := folder.ParentID()
		if parent == "" {
			return false
		}
		if parent == ancestorID {
			return true
		}
		current = parent
	}

	c.logger.Error("folder parent chain exceeded safety ceiling, treating as cycle",
		zap.String("ancestorID", ancestorID),
		zap.String("descendantID", descendantID),
		zap.Int("folderCount", len(folders)),
	)
	return true
}
