package universe

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/put-screener/internal/database"
)

// Handlers contains HTTP handlers for universe API
type Handlers struct {
	repo      *Repository
	service   *Service
	validator *database.UniverseValidator
	log       zerolog.Logger
}

// NewHandlers creates a new universe handlers instance
func NewHandlers(repo *Repository, service *Service, validator *database.UniverseValidator, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo:      repo,
		service:   service,
		validator: validator,
		log:       log.With().Str("handler", "universe").Logger(),
	}
}

// HandleList handles GET /api/universe
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	var (
		securities interface{}
		err        error
	)

	switch r.URL.Query().Get("filter") {
	case "stocks":
		securities, err = h.repo.GetActiveStocks()
	case "etfs":
		securities, err = h.repo.GetBenchmarkETFs()
	case "all":
		securities, err = h.repo.GetAll()
	default:
		securities, err = h.repo.GetAllActive()
	}

	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list securities")
		http.Error(w, "Failed to list securities", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(securities)
}

// HandleGet handles GET /api/universe/{symbol}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	security, err := h.repo.GetBySymbol(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get security")
		http.Error(w, "Failed to get security", http.StatusInternalServerError)
		return
	}
	if security == nil {
		http.Error(w, "Security not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(security)
}

// HandleAddSymbols handles POST /api/universe/symbols
func (h *Handlers) HandleAddSymbols(w http.ResponseWriter, r *http.Request) {
	var req AddSymbolsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Symbols) == 0 {
		http.Error(w, "At least one symbol is required", http.StatusBadRequest)
		return
	}

	resp, err := h.service.AddSymbols(r.Context(), req.Symbols)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to add symbols")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandlePopulate handles POST /api/universe/populate
func (h *Handlers) HandlePopulate(w http.ResponseWriter, r *http.Request) {
	var req PopulateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	resp, err := h.service.PopulateFromScreen(r.Context(), req.Limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Universe population failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleRefresh handles POST /api/universe/refresh
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	refreshed, err := h.service.RefreshQuotes(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Quote refresh failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"refreshed": refreshed})
}

// HandleDeactivate handles DELETE /api/universe/{symbol}
func (h *Handlers) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	if err := h.service.Deactivate(symbol); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to deactivate security")
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"symbol": symbol, "status": "deactivated"})
}

// HandleReactivate handles POST /api/universe/{symbol}/reactivate
func (h *Handlers) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	if err := h.service.Reactivate(symbol); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to reactivate security")
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"symbol": symbol, "status": "active"})
}

// HandleStats handles GET /api/universe/stats
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get universe stats")
		http.Error(w, "Failed to get stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// HandleValidate handles GET /api/universe/validate
func (h *Handlers) HandleValidate(w http.ResponseWriter, r *http.Request) {
	result, err := h.validator.ValidateAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Universe validation failed")
		http.Error(w, "Validation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"valid":   result.IsValid,
		"summary": result.FormatErrors(),
		"details": result,
	})
}
