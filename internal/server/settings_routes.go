package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/aristath/put-screener/internal/modules/settings"
)

// setupSettingsRoutes configures settings module routes
func (s *Server) setupSettingsRoutes(r chi.Router) {
	// Initialize settings module components
	settingsRepo := settings.NewRepository(s.configDB.Conn(), s.log)
	settingsService := settings.NewService(settingsRepo, s.log)
	settingsHandler := settings.NewHandler(settingsService, s.log)

	r.Route("/settings", func(r chi.Router) {
		// GET /api/settings - All settings with defaults applied
		r.Get("/", settingsHandler.HandleGetAll)

		// GET /api/settings/{key} - Get a single setting
		r.Get("/{key}", settingsHandler.HandleGet)

		// PUT /api/settings/{key} - Update a setting value
		r.Put("/{key}", settingsHandler.HandleUpdate)

		// DELETE /api/settings/{key} - Reset a setting to its default
		r.Delete("/{key}", settingsHandler.HandleReset)
	})
}
