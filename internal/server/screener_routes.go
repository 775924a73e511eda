package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/aristath/put-screener/internal/modules/screener"
)

// setupScreenerRoutes configures screener module routes
//
// The runner is shared with the scheduler so manual and scheduled
// screening runs cannot overlap.
func (s *Server) setupScreenerRoutes(r chi.Router) {
	screenerRepo := screener.NewRepository(s.resultsDB.Conn(), s.log)
	handlers := screener.NewHandlers(screenerRepo, s.runner, s.log)

	r.Route("/screener", func(r chi.Router) {
		// POST /api/screener/run - Start a screening run (202 if started, 409 if busy)
		r.Post("/run", handlers.HandleRun)

		// GET /api/screener/progress - Progress of the current or last run
		r.Get("/progress", handlers.HandleProgress)

		// GET /api/screener/results - Results of the latest completed run
		r.Get("/results", handlers.HandleResults)

		// GET /api/screener/runs - Recent run history
		r.Get("/runs", handlers.HandleRuns)
	})
}
