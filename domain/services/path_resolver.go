package services

import (
	"go.uber.org/zap"

	"canopy-backend/domain/core/entities"
)

// RootCrumbName labels the synthetic root entry of every breadcrumb path
const RootCrumbName = "Home"

// Crumb is one entry of a navigable breadcrumb path
type Crumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PathResolver builds breadcrumb paths by walking parent pointers to the root
type PathResolver struct {
	logger *zap.Logger
}

// NewPathResolver creates a new path resolver
func NewPathResolver(logger *zap.Logger) *PathResolver {
	return &PathResolver{logger: logger}
}

// ResolvePath returns the path from the synthetic root down to the given
// folder. An empty currentFolderID yields just the root entry. The upward
// walk is bounded by the folder count; corrupt data returns the partial
// path reconstructed so far rather than failing.
func (r *PathResolver) ResolvePath(folders []*entities.Folder, currentFolderID string) []Crumb {
	root := Crumb{ID: "", Name: RootCrumbName}
	if currentFolderID == "" {
		return []Crumb{root}
	}

	byID := make(map[string]*entities.Folder, len(folders))
	for _, f := range folders {
		byID[f.ID().String()] = f
	}

	// Collected leaf-to-root, reversed below.
	var reversed []Crumb
	current := currentFolderID
	steps := 0
	for current != "" {
		if steps > len(folders) {
			r.logger.Error("breadcrumb walk exceeded safety ceiling, returning partial path",
				zap.String("folderID", currentFolderID),
				zap.Int("folderCount", len(folders)),
			)
			break
		}
		steps++

		folder, exists := byID[current]
		if !exists {
			r.logger.Warn("breadcrumb walk hit missing folder, returning partial path",
				zap.String("folderID", current),
			)
			break
		}
		reversed = append(reversed, Crumb{ID: folder.ID().String(), Name: folder.Name()})
		current = folder.ParentID()
	}

	path := make([]Crumb, 0, len(reversed)+1)
	path = append(path, root)
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}
