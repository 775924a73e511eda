package history

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers contains HTTP handlers for price history API
type Handlers struct {
	repo    *Repository
	service *SyncService
	log     zerolog.Logger
}

// NewHandlers creates a new history handlers instance
func NewHandlers(repo *Repository, service *SyncService, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo:    repo,
		service: service,
		log:     log.With().Str("handler", "history").Logger(),
	}
}

// HandleGetPrices handles GET /api/history/{symbol}
func (h *Handlers) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	prices, err := h.repo.GetDailyPricesAsc(symbol, limit)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get daily prices")
		http.Error(w, "Failed to get prices", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"symbol": symbol,
		"bars":   len(prices),
		"prices": prices,
	})
}

// HandleSyncAll handles POST /api/history/sync
func (h *Handlers) HandleSyncAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SyncAll()
	if err != nil {
		h.log.Error().Err(err).Msg("History sync failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleSyncSymbol handles POST /api/history/sync/{symbol}
func (h *Handlers) HandleSyncSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	if err := h.service.SyncSymbol(symbol); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Symbol sync failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	status, err := h.repo.GetSyncStatus(symbol)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// HandleStatus handles GET /api/history/status
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.repo.GetAllSyncStatuses()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get sync statuses")
		http.Error(w, "Failed to get statuses", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statuses)
}
