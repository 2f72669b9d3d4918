package handlers

import (
	"net/http"

	"canopy-backend/application/services"
	"canopy-backend/domain/core/entities"
	"canopy-backend/pkg/auth"
	"canopy-backend/pkg/common"
	"canopy-backend/pkg/errors"
	"canopy-backend/pkg/utils"
)

// folderResponse is the wire shape of a folder
type folderResponse struct {
	ID          string `json:"id"`
	ParentID    string `json:"parentId"`
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
	Order       int64  `json:"order"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// noteResponse is the wire shape of a note
type noteResponse struct {
	ID        string `json:"id"`
	FolderID  string `json:"folderId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Order     int64  `json:"order"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toFolderResponse(f *entities.Folder) folderResponse {
	return folderResponse{
		ID:          f.ID().String(),
		ParentID:    f.ParentID(),
		Name:        f.Name(),
		Color:       string(f.Color()),
		Icon:        f.Icon(),
		Description: f.Description(),
		Order:       f.Order(),
		CreatedAt:   utils.FormatRFC3339(f.CreatedAt()),
		UpdatedAt:   utils.FormatRFC3339(f.UpdatedAt()),
	}
}

func toNoteResponse(n *entities.Note) noteResponse {
	return noteResponse{
		ID:        n.ID().String(),
		FolderID:  n.FolderID(),
		Title:     n.Title(),
		Content:   n.Content(),
		Order:     n.Order(),
		CreatedAt: utils.FormatRFC3339(n.CreatedAt()),
		UpdatedAt: utils.FormatRFC3339(n.UpdatedAt()),
	}
}

// engineForRequest resolves the caller's mutation engine from the request
func engineForRequest(manager *services.TreeManager, r *http.Request) (*services.TreeService, error) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		return nil, errors.NewUnauthorizedError("not authenticated")
	}
	return manager.ForUser(r.Context(), user.UserID)
}

// respondAppError maps an engine error onto the response envelope
func respondAppError(w http.ResponseWriter, err error) {
	if appErr := errors.GetAppError(err); appErr != nil {
		common.RespondError(w, appErr.HTTPStatus, string(appErr.Type), appErr.Message)
		return
	}
	common.RespondError(w, http.StatusInternalServerError, string(errors.ErrorTypeInternal), "internal error")
}
