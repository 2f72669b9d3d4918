package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"canopy-backend/application/services"
	"canopy-backend/pkg/common"
)

// TreeHandler exposes tree-wide operations that do not belong to a
// single folder or note: undo, pending-delete inspection.
type TreeHandler struct {
	manager *services.TreeManager
	logger  *zap.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(manager *services.TreeManager, logger *zap.Logger) *TreeHandler {
	return &TreeHandler{manager: manager, logger: logger}
}

// Undo handles POST /tree/undo. Restores the pending deletion if its
// window has not elapsed; otherwise it is a no-op.
func (h *TreeHandler) Undo(w http.ResponseWriter, r *http.Request) {
	engine, err := engineForRequest(h.manager, r)
	if err != nil {
		respondAppError(w, err)
		return
	}

	if err := engine.Undo(r.Context()); err != nil {
		respondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PendingDelete handles GET /tree/pending-delete
func (h *TreeHandler) PendingDelete(w http.ResponseWriter, r *http.Request) {
	engine, err := engineForRequest(h.manager, r)
	if err != nil {
		respondAppError(w, err)
		return
	}

	id, pending := engine.IsDeletePending()
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"pending": pending,
		"id":      id,
	})
}
