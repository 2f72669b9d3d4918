// Package adapters maps remote store documents to domain entities and back.
package adapters

import (
	"time"

	"canopy-backend/application/ports"
	"canopy-backend/domain/core/entities"
	"canopy-backend/domain/core/valueobjects"
	pkgerrors "canopy-backend/pkg/errors"
	"canopy-backend/pkg/utils"
)

// FolderToFields serializes the full field set of a folder document
func FolderToFields(f *entities.Folder) map[string]interface{} {
	return map[string]interface{}{
		ports.FieldParentID:    f.ParentID(),
		ports.FieldName:        f.Name(),
		ports.FieldColor:       string(f.Color()),
		ports.FieldIcon:        f.Icon(),
		ports.FieldDescription: f.Description(),
		ports.FieldOrder:       f.Order(),
		ports.FieldCreatedAt:   utils.FormatRFC3339(f.CreatedAt()),
		ports.FieldUpdatedAt:   utils.FormatRFC3339(f.UpdatedAt()),
	}
}

// NoteToFields serializes the full field set of a note document
func NoteToFields(n *entities.Note) map[string]interface{} {
	return map[string]interface{}{
		ports.FieldFolderID:  n.FolderID(),
		ports.FieldTitle:     n.Title(),
		ports.FieldContent:   n.Content(),
		ports.FieldOrder:     n.Order(),
		ports.FieldCreatedAt: utils.FormatRFC3339(n.CreatedAt()),
		ports.FieldUpdatedAt: utils.FormatRFC3339(n.UpdatedAt()),
	}
}

// FolderFromDocument rebuilds a folder entity from a remote document
func FolderFromDocument(doc ports.Document) (*entities.Folder, error) {
	id, err := valueobjects.NewNodeIDFromString(doc.ID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("folder document has no id")
	}

	return entities.ReconstructFolder(
		id,
		stringField(doc.Fields, ports.FieldParentID),
		stringField(doc.Fields, ports.FieldName),
		entities.FolderColor(stringField(doc.Fields, ports.FieldColor)),
		stringField(doc.Fields, ports.FieldIcon),
		stringField(doc.Fields, ports.FieldDescription),
		int64Field(doc.Fields, ports.FieldOrder),
		timeField(doc.Fields, ports.FieldCreatedAt),
		timeField(doc.Fields, ports.FieldUpdatedAt),
	), nil
}

// NoteFromDocument rebuilds a note entity from a remote document
func NoteFromDocument(doc ports.Document) (*entities.Note, error) {
	id, err := valueobjects.NewNodeIDFromString(doc.ID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("note document has no id")
	}

	return entities.ReconstructNote(
		id,
		stringField(doc.Fields, ports.FieldFolderID),
		stringField(doc.Fields, ports.FieldTitle),
		stringField(doc.Fields, ports.FieldContent),
		int64Field(doc.Fields, ports.FieldOrder),
		timeField(doc.Fields, ports.FieldCreatedAt),
		timeField(doc.Fields, ports.FieldUpdatedAt),
	), nil
}

func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

// int64Field tolerates the numeric widenings JSON and attribute marshalling
// introduce on round trips
func int64Field(fields map[string]interface{}, key string) int64 {
	switch v := fields[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func timeField(fields map[string]interface{}, key string) time.Time {
	s := stringField(fields, key)
	if s == "" {
		return time.Time{}
	}
	t, err := utils.ParseRFC3339(s)
	if err != nil {
		return time.Time{}
	}
	return t
}
