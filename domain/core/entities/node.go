package entities

import (
	"time"

	"canopy-backend/domain/core/valueobjects"
)

// NodeKind discriminates the node variants in the tree
type NodeKind string

const (
	NodeKindFolder NodeKind = "folder"
	NodeKindNote   NodeKind = "note"
)

// Node is the closed set of tree node variants. Folder and Note are the only
// implementations; the unexported marker method keeps the set closed so every
// switch over Kind() can be exhaustive.
type Node interface {
	ID() valueobjects.NodeID
	Kind() NodeKind

	// ParentID returns the id of the containing folder, empty at root level.
	// For notes this is the folderId field under a different name.
	ParentID() string

	// Order is the fractional sort key among siblings. It is assigned by the
	// order allocator at creation or move time, never derived from list position.
	Order() int64

	CreatedAt() time.Time
	UpdatedAt() time.Time

	isNode()
}

// SortSiblings reports whether a should sort before b using ascending order
// keys with id as the stable display tiebreak. The tiebreak is never persisted.
func SortSiblings(a, b Node) bool {
	if a.Order() != b.Order() {
		return a.Order() < b.Order()
	}
	return a.ID().String() < b.ID().String()
}
