package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"canopy-backend/application/services"
	"canopy-backend/infrastructure/config"
	"canopy-backend/interfaces/http/rest/handlers"
	"canopy-backend/interfaces/http/rest/middleware"
	"canopy-backend/pkg/common"
)

// NewRouter assembles the HTTP surface: health probes plus the
// authenticated /api/v1 tree API.
func NewRouter(cfg *config.Config, manager *services.TreeManager, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(logger))

	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", healthCheck)
	r.Get("/ready", healthCheck)

	folderHandler := handlers.NewFolderHandler(manager, logger)
	noteHandler := handlers.NewNoteHandler(manager, logger)
	treeHandler := handlers.NewTreeHandler(manager, logger)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Authenticate(cfg, logger))

		api.Route("/folders", func(fr chi.Router) {
			fr.Post("/", folderHandler.CreateFolder)
			fr.Patch("/{folderID}", folderHandler.UpdateFolder)
			fr.Post("/{folderID}/move", folderHandler.MoveFolder)
			fr.Post("/{folderID}/reorder", folderHandler.ReorderFolder)
			fr.Delete("/{folderID}", folderHandler.DeleteFolder)
		})

		api.Route("/notes", func(nr chi.Router) {
			nr.Post("/", noteHandler.CreateNote)
			nr.Patch("/{noteID}", noteHandler.UpdateNote)
			nr.Post("/{noteID}/move", noteHandler.MoveNote)
			nr.Post("/{noteID}/reorder", noteHandler.ReorderNote)
			nr.Delete("/{noteID}", noteHandler.DeleteNote)
		})

		api.Route("/tree", func(tr chi.Router) {
			tr.Get("/children", folderHandler.Children)
			tr.Get("/breadcrumbs", folderHandler.Breadcrumbs)
			tr.Post("/undo", treeHandler.Undo)
			tr.Get("/pending-delete", treeHandler.PendingDelete)
		})
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
