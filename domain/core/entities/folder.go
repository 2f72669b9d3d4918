package entities

import (
	"strings"
	"time"

	"canopy-backend/domain/core/valueobjects"
	pkgerrors "canopy-backend/pkg/errors"
)

// FolderColor is an enum-like display tag
type FolderColor string

const (
	ColorNone   FolderColor = ""
	ColorRed    FolderColor = "red"
	ColorOrange FolderColor = "orange"
	ColorYellow FolderColor = "yellow"
	ColorGreen  FolderColor = "green"
	ColorBlue   FolderColor = "blue"
	ColorPurple FolderColor = "purple"
	ColorGray   FolderColor = "gray"
)

// Folder is a tree node that contains notes and sub-folders
type Folder struct {
	id          valueobjects.NodeID
	parentID    string
	name        string
	color       FolderColor
	icon        string
	description string
	order       int64
	createdAt   time.Time
	updatedAt   time.Time
}

// NewFolder creates a folder with business rule validation. The order key
// must come from the order allocator.
func NewFolder(id valueobjects.NodeID, parentID, name string, order int64) (*Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.NewValidationError("folder name cannot be empty")
	}
	if id.IsZero() {
		id = valueobjects.NewNodeID()
	}

	now := time.Now()
	return &Folder{
		id:        id,
		parentID:  parentID,
		name:      name,
		order:     order,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructFolder rebuilds a folder from stored document fields
func ReconstructFolder(id valueobjects.NodeID, parentID, name string, color FolderColor, icon, description string, order int64, createdAt, updatedAt time.Time) *Folder {
	return &Folder{
		id:          id,
		parentID:    parentID,
		name:        name,
		color:       color,
		icon:        icon,
		description: description,
		order:       order,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (f *Folder) ID() valueobjects.NodeID { return f.id }
func (f *Folder) Kind() NodeKind          { return NodeKindFolder }
func (f *Folder) ParentID() string        { return f.parentID }
func (f *Folder) Order() int64            { return f.order }
func (f *Folder) CreatedAt() time.Time    { return f.createdAt }
func (f *Folder) UpdatedAt() time.Time    { return f.updatedAt }

func (f *Folder) Name() string        { return f.name }
func (f *Folder) Color() FolderColor  { return f.color }
func (f *Folder) Icon() string        { return f.icon }
func (f *Folder) Description() string { return f.description }

func (*Folder) isNode() {}

// Rename changes the folder name. Returns a validation error for an empty
// name; an unchanged name is reported so callers can skip the write.
func (f *Folder) Rename(name string) (changed bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, pkgerrors.NewValidationError("folder name cannot be empty")
	}
	if name == f.name {
		return false, nil
	}
	f.name = name
	f.touch()
	return true, nil
}

// SetAppearance updates the display tags. Nil arguments leave a field unchanged.
func (f *Folder) SetAppearance(color *FolderColor, icon, description *string) {
	if color != nil {
		f.color = *color
	}
	if icon != nil {
		f.icon = *icon
	}
	if description != nil {
		f.description = *description
	}
	f.touch()
}

// MoveTo reparents the folder with a freshly allocated order key. The two
// fields change together so a partial move is never observable.
func (f *Folder) MoveTo(parentID string, order int64) {
	f.parentID = parentID
	f.order = order
	f.touch()
}

// SetOrder assigns a new order key within the current parent
func (f *Folder) SetOrder(order int64) {
	f.order = order
	f.touch()
}

// Clone returns an independent copy of the folder
func (f *Folder) Clone() *Folder {
	copied := *f
	return &copied
}

func (f *Folder) touch() {
	f.updatedAt = time.Now()
}
