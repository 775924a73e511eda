package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers contains HTTP handlers for the ticker metrics API
type Handlers struct {
	repo    *Repository
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new metrics handlers instance
func NewHandlers(repo *Repository, service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo:    repo,
		service: service,
		log:     log.With().Str("handler", "metrics").Logger(),
	}
}

// HandleGet handles GET /api/metrics/{symbol}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	metrics, err := h.repo.GetLatestMetrics(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get metrics")
		http.Error(w, "Failed to get metrics", http.StatusInternalServerError)
		return
	}
	if metrics == nil {
		http.Error(w, "No metrics for symbol", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics)
}

// HandleCalculateAll handles POST /api/metrics/calculate
func (h *Handlers) HandleCalculateAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.CalculateAll(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Metrics calculation failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleCalculateSymbol handles POST /api/metrics/calculate/{symbol}
func (h *Handlers) HandleCalculateSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	metrics, err := h.service.CalculateSymbol(r.Context(), symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Metrics calculation failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics)
}
