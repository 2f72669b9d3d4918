package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"canopy-backend/application/services"
	"canopy-backend/pkg/common"
	"canopy-backend/pkg/utils"
)

// NoteHandler handles note-related HTTP requests
type NoteHandler struct {
	manager *services.TreeManager
	logger  *zap.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(manager *services.TreeManager, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{manager: manager, logger: logger}
}

// CreateNoteRequest represents the request body for creating a note
type CreateNoteRequest struct {
	FolderID string `json:"folderId,omitempty"`
}

// UpdateNoteRequest represents the request body for updating a note.
// Absent fields are left unchanged.
type UpdateNoteRequest struct {
	Title   *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Content *string `json:"content,omitempty"`
}

// CreateNote handles POST /notes
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	engine, err := engineForRequest(h.manager, r)
	if err != nil {
		respondAppError(w, err)
		return
	}

	note, err := engine.CreateNote(r.Context(), req.FolderID)
	if err != nil {
		respondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, toNoteResponse(note))
}

// UpdateNote handles PATCH /notes/{noteID}: title and content
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteID")

	var req UpdateNoteRequest
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

	if req.Title != nil {
		if err := engine.Rename(r.Context(), noteID, *req.Title); err != nil {
			respondAppError(w, err)
			return
		}
	}
	if req.Content != nil {
		if err := engine.UpdateNoteContent(r.Context(), noteID, *req.Content); err != nil {
			respondAppError(w, err)
			return
		}
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"id": noteID})
}

// MoveNote handles POST /notes/{noteID}/move
func (h *NoteHandler) MoveNote(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteID")

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

	if err := engine.Move(r.Context(), noteID, req.NewParentID); err != nil {
		respondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"id": noteID})
}

// ReorderNote handles POST /notes/{noteID}/reorder
func (h *NoteHandler) ReorderNote(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteID")

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

	if err := engine.Reorder(r.Context(), noteID, req.BeforeID, req.AfterID); err != nil {
		respondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"id": noteID})
}

// DeleteNote handles DELETE /notes/{noteID}
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteID")

	engine, err := engineForRequest(h.manager, r)
	if err != nil {
		respondAppError(w, err)
		return
	}

	if err := engine.Delete(r.Context(), noteID); err != nil {
		respondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"id": noteID, "status": "pending"})
}
