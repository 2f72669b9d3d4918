package events

import (
	"time"

	"canopy-backend/domain/core/entities"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

func newBaseEvent(aggregateID, eventType string) BaseEvent {
	return BaseEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   time.Now(),
	}
}

// NodeCreated is raised when a folder or note is created
type NodeCreated struct {
	BaseEvent
	UserID   string            `json:"user_id"`
	Kind     entities.NodeKind `json:"kind"`
	ParentID string            `json:"parent_id"`
	Order    int64             `json:"order"`
}

// NewNodeCreated creates a NodeCreated event
func NewNodeCreated(userID string, node entities.Node) NodeCreated {
	return NodeCreated{
		BaseEvent: newBaseEvent(node.ID().String(), "tree.node_created"),
		UserID:    userID,
		Kind:      node.Kind(),
		ParentID:  node.ParentID(),
		Order:     node.Order(),
	}
}

// NodeMoved is raised when a node is reparented
type NodeMoved struct {
	BaseEvent
	UserID      string            `json:"user_id"`
	Kind        entities.NodeKind `json:"kind"`
	OldParentID string            `json:"old_parent_id"`
	NewParentID string            `json:"new_parent_id"`
	Order       int64             `json:"order"`
}

// NewNodeMoved creates a NodeMoved event
func NewNodeMoved(userID string, node entities.Node, oldParentID string) NodeMoved {
	return NodeMoved{
		BaseEvent:   newBaseEvent(node.ID().String(), "tree.node_moved"),
		UserID:      userID,
		Kind:        node.Kind(),
		OldParentID: oldParentID,
		NewParentID: node.ParentID(),
		Order:       node.Order(),
	}
}

// NodeReordered is raised when a node changes position among its siblings
type NodeReordered struct {
	BaseEvent
	UserID    string            `json:"user_id"`
	Kind      entities.NodeKind `json:"kind"`
	ParentID  string            `json:"parent_id"`
	Order     int64             `json:"order"`
	Reindexed bool              `json:"reindexed"`
}

// NewNodeReordered creates a NodeReordered event
func NewNodeReordered(userID string, node entities.Node, reindexed bool) NodeReordered {
	return NodeReordered{
		BaseEvent: newBaseEvent(node.ID().String(), "tree.node_reordered"),
		UserID:    userID,
		Kind:      node.Kind(),
		ParentID:  node.ParentID(),
		Order:     node.Order(),
		Reindexed: reindexed,
	}
}

// NodeRenamed is raised when a folder name or note title changes
type NodeRenamed struct {
	BaseEvent
	UserID  string            `json:"user_id"`
	Kind    entities.NodeKind `json:"kind"`
	NewName string            `json:"new_name"`
}

// NewNodeRenamed creates a NodeRenamed event
func NewNodeRenamed(userID string, node entities.Node, newName string) NodeRenamed {
	return NodeRenamed{
		BaseEvent: newBaseEvent(node.ID().String(), "tree.node_renamed"),
		UserID:    userID,
		Kind:      node.Kind(),
		NewName:   newName,
	}
}

// NodeDeleted is raised when a pending deletion is finalized at the store
type NodeDeleted struct {
	BaseEvent
	UserID string            `json:"user_id"`
	Kind   entities.NodeKind `json:"kind"`
}

// NewNodeDeleted creates a NodeDeleted event
func NewNodeDeleted(userID string, nodeID string, kind entities.NodeKind) NodeDeleted {
	return NodeDeleted{
		BaseEvent: newBaseEvent(nodeID, "tree.node_deleted"),
		UserID:    userID,
		Kind:      kind,
	}
}

// NodeDeleteUndone is raised when a pending deletion is undone in time
type NodeDeleteUndone struct {
	BaseEvent
	UserID string            `json:"user_id"`
	Kind   entities.NodeKind `json:"kind"`
}

// NewNodeDeleteUndone creates a NodeDeleteUndone event
func NewNodeDeleteUndone(userID string, nodeID string, kind entities.NodeKind) NodeDeleteUndone {
	return NodeDeleteUndone{
		BaseEvent: newBaseEvent(nodeID, "tree.node_delete_undone"),
		UserID:    userID,
		Kind:      kind,
	}
}
