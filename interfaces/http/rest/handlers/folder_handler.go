package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"canopy-backend/application/services"
	"canopy-backend/domain/core/entities"
	"canopy-backend/pkg/common"
	"canopy-backend/pkg/utils"
)

// FolderHandler handles folder-related HTTP requests
type FolderHandler struct {
	manager *services.TreeManager
	logger  *zap.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(manager *services.TreeManager, logger *zap.Logger) *FolderHandler {
	return &FolderHandler{manager: manager, logger: logger}
}

// CreateFolderRequest represents the request body for creating a folder
type CreateFolderRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=120"`
	ParentID string `json:"parentId,omitempty"`
}

// UpdateFolderRequest represents the request body for updating a folder.
// Absent fields are left unchanged.
type UpdateFolderRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=120"`
	Color       *string `json:"color,omitempty" validate:"omitempty,oneof=red orange yellow green blue purple gray"`
	Icon        *string `json:"icon,omitempty" validate:"omitempty,max=60"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// MoveRequest represents the request body for moving a node into a folder
type MoveRequest struct {
	NewParentID string `json:"newParentId"`
}

// ReorderRequest names the drop position's neighbors; either may be empty
type ReorderRequest struct {
	BeforeID string `json:"beforeId"`
	AfterID  string `json:"afterId"`
}

// CreateFolder handles POST /folders
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	engine, err := engineForRequest(h.manager, r)
	if err != nil {
		respondAppError(w, err)
		return
	}

	folder, err := engine.CreateFolder(r.Context(), req.ParentID, req.Name)
	if err != nil {
		respondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, toFolderResponse(folder))
}

// UpdateFolder handles PATCH /folders/{folderID}: rename and appearance
func (h *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderID")

	var req UpdateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	engine, err := engineForRequest(h.manager, r)
	if err != nil {
		respondAppError(w, err)
		return
	}

	if req.Name != nil {
		if err := engine.Rename(r.Context(), folderID, *req.Name); err != nil {
			respondAppError(w, err)
			return
		}
	}
	if req.Color != nil || req.Icon != nil || req.Description != nil {
		var color *entities.FolderColor
		if req.Color != nil {
			c := entities.FolderColor(*req.Color)
			color = &c
		}
		if err := engine.UpdateFolderAppearance(r.Context(), folderID, color, req.Icon, req.Description); err != nil {
			respondAppError(w, err)
			return
		}
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"id": folderID})
}

// MoveFolder handles POST /folders/{folderID}/move
func (h *FolderHandler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	h.moveNode(w, r, chi.URLParam(r, "folderID"))
}

// ReorderFolder handles POST /folders/{folderID}/reorder
func (h *FolderHandler) ReorderFolder(w http.ResponseWriter, r *http.Request) {
	h.reorderNode(w, r, chi.URLParam(r, "folderID"))
}

// DeleteFolder handles DELETE /folders/{folderID}. The deletion is
// optimistic: it can be undone until the undo window elapses.
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderID")

	engine, err := engineForRequest(h.manager, r)
	if err != nil {
		respondAppError(w, err)
		return
	}

	if err := engine.Delete(r.Context(), folderID); err != nil {
		respondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"id": folderID, "status": "pending"})
}

// Children handles GET /tree/children?parentId=
func (h *FolderHandler) Children(w http.ResponseWriter, r *http.Request) {
	parentID := r.URL.Query().Get("parentId")

	engine, err := engineForRequest(h.manager, r)
	if err != nil {
		respondAppError(w, err)
		return
	}

	folders, notes := engine.Children(parentID)
	folderDTOs := make([]folderResponse, 0, len(folders))
	for _, f := range folders {
		folderDTOs = append(folderDTOs, toFolderResponse(f))
	}
	noteDTOs := make([]noteResponse, 0, len(notes))
	for _, n := range notes {
		noteDTOs = append(noteDTOs, toNoteResponse(n))
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"folders": folderDTOs,
		"notes":   noteDTOs,
	})
}

// Breadcrumbs handles GET /tree/breadcrumbs?folderId=
func (h *FolderHandler) Breadcrumbs(w http.ResponseWriter, r *http.Request) {
	folderID := r.URL.Query().Get("folderId")

	engine, err := engineForRequest(h.manager, r)
	if err != nil {
		respondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, engine.Breadcrumbs(folderID))
}

func (h *FolderHandler) moveNode(w http.ResponseWriter, r *http.Request, nodeID string) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	engine, err := engineForRequest(h.manager, r)
	if err != nil {
		respondAppError(w, err)
		return
	}

	if err := engine.Move(r.Context(), nodeID, req.NewParentID); err != nil {
		respondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"id": nodeID})
}

func (h *FolderHandler) reorderNode(w http.ResponseWriter, r *http.Request, nodeID string) {
	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	engine, err := engineForRequest(h.manager, r)
	if err != nil {
		respondAppError(w, err)
		return
	}

	if err := engine.Reorder(r.Context(), nodeID, req.BeforeID, req.AfterID); err != nil {
		respondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"id": nodeID})
}
