package ports

import (
	"context"

	"canopy-backend/domain/events"
)

// EntityKind names a document collection kind within a user's scope
type EntityKind string

const (
	EntityKindFolders EntityKind = "folders"
	EntityKindNotes   EntityKind = "notes"
)

// Document field names shared between the engine and store implementations
const (
	FieldParentID    = "parentId"
	FieldFolderID    = "folderId"
	FieldOrder       = "order"
	FieldName        = "name"
	FieldColor       = "color"
	FieldIcon        = "icon"
	FieldDescription = "description"
	FieldTitle       = "title"
	FieldContent     = "content"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
)

// ParentFieldFor returns the field that holds the containing folder id.
// Notes keep the same semantic under a different name by convention.
func ParentFieldFor(kind EntityKind) string {
	if kind == EntityKindNotes {
		return FieldFolderID
	}
	return FieldParentID
}

// Collection identifies a document collection, keyed by user and entity kind
type Collection struct {
	UserID string
	Kind   EntityKind
}

// Document is a raw remote document: an opaque id plus named fields
type Document struct {
	ID     string
	Fields map[string]interface{}
}

// Query scopes a subscription or listing to one tree level
type Query struct {
	// ParentField is the equality-filtered field (parentId or folderId)
	ParentField string
	// ParentValue is the containing folder id, empty for root level
	ParentValue string
	// OrderByField sorts the result ascending
	OrderByField string
}

// Subscription is a live, ordered snapshot stream for one scope. Every
// remote change affecting the scope re-emits the full current document
// list; partial diffs are never emitted.
type Subscription interface {
	// Snapshots delivers full-list replacements. The channel is closed by
	// Unsubscribe and on store shutdown.
	Snapshots() <-chan []Document

	// Unsubscribe tears the subscription down synchronously; no snapshot
	// is delivered after it returns.
	Unsubscribe()
}

// WriteOp is one entry of an atomic batch write
type WriteOp struct {
	ID     string
	Fields map[string]interface{}
}

// DocumentStore is the minimal keyed-document contract the engine consumes.
// The remote store is the system of record; implementations are injected,
// never reached through a package-level handle.
type DocumentStore interface {
	// List returns every document in the collection
	List(ctx context.Context, c Collection) ([]Document, error)

	// Subscribe opens a live snapshot stream for one scope
	Subscribe(ctx context.Context, c Collection, q Query) (Subscription, error)

	// CreateOne stores a new document and returns its assigned id
	CreateOne(ctx context.Context, c Collection, fields map[string]interface{}) (string, error)

	// WriteOne applies a partial field update, creating the document when it
	// does not exist. Undo relies on the upsert to restore a deleted
	// document under its original id.
	WriteOne(ctx context.Context, c Collection, id string, fields map[string]interface{}) error

	// WriteBatch applies all operations atomically: subscribers observe
	// either none or all of them
	WriteBatch(ctx context.Context, c Collection, ops []WriteOp) error

	// DeleteOne removes a document. Deleting an absent document is not an
	// error; a racing undo-after-expiry must be a no-op.
	DeleteOne(ctx context.Context, c Collection, id string) error
}

// EventPublisher publishes domain events to interested consumers
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}
