package entities

import (
	"strings"
	"time"

	"canopy-backend/domain/core/valueobjects"
	pkgerrors "canopy-backend/pkg/errors"
)

// Note is a leaf tree node holding sanitized rich-text content
type Note struct {
	id        valueobjects.NodeID
	folderID  string
	title     string
	content   string
	order     int64
	createdAt time.Time
	updatedAt time.Time
}

// NewNote creates a note. Title and content default to empty placeholders
// that the caller may overwrite later.
func NewNote(id valueobjects.NodeID, folderID string, order int64) *Note {
	if id.IsZero() {
		id = valueobjects.NewNodeID()
	}

	now := time.Now()
	return &Note{
		id:        id,
		folderID:  folderID,
		order:     order,
		createdAt: now,
		updatedAt: now,
	}
}

// ReconstructNote rebuilds a note from stored document fields
func ReconstructNote(id valueobjects.NodeID, folderID, title, content string, order int64, createdAt, updatedAt time.Time) *Note {
	return &Note{
		id:        id,
		folderID:  folderID,
		title:     title,
		content:   content,
		order:     order,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (n *Note) ID() valueobjects.NodeID { return n.id }
func (n *Note) Kind() NodeKind          { return NodeKindNote }
func (n *Note) ParentID() string        { return n.folderID }
func (n *Note) Order() int64            { return n.order }
func (n *Note) CreatedAt() time.Time    { return n.createdAt }
func (n *Note) UpdatedAt() time.Time    { return n.updatedAt }

func (n *Note) FolderID() string { return n.folderID }
func (n *Note) Title() string    { return n.title }
func (n *Note) Content() string  { return n.content }

func (*Note) isNode() {}

// Rename changes the note title. An unchanged title is reported so callers
// can skip the write.
func (n *Note) Rename(title string) (changed bool, err error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return false, pkgerrors.NewValidationError("note title cannot be empty")
	}
	if title == n.title {
		return false, nil
	}
	n.title = title
	n.touch()
	return true, nil
}

// SetContent replaces the note body with already-sanitized markup
func (n *Note) SetContent(content string) {
	n.content = content
	n.touch()
}

// MoveTo reparents the note with a freshly allocated order key
func (n *Note) MoveTo(folderID string, order int64) {
	n.folderID = folderID
	n.order = order
	n.touch()
}

// SetOrder assigns a new order key within the current folder
func (n *Note) SetOrder(order int64) {
	n.order = order
	n.touch()
}

// Clone returns an independent copy of the note
func (n *Note) Clone() *Note {
	copied := *n
	return &copied
}

func (n *Note) touch() {
	n.updatedAt = time.Now()
}
