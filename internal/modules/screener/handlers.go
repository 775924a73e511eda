package screener

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
)

// Handlers contains HTTP handlers for the screener API
type Handlers struct {
	repo   *Repository
	runner *Runner
	log    zerolog.Logger
}

// NewHandlers creates a new screener handlers instance
func NewHandlers(repo *Repository, runner *Runner, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo:   repo,
		runner: runner,
		log:    log.With().Str("handler", "screener").Logger(),
	}
}

type runRequest struct {
	Symbols []string `json:"symbols"`
}

type resultsResponse struct {
	Run     *Run           `json:"run"`
	Skips   map[string]int `json:"skips"`
	Results []Opportunity  `json:"results"`
}

// HandleRun handles POST /api/screener/run
// The body is optional; {"symbols": [...]} restricts the run to those
// tickers. Responds 202 when the run starts, 409 when one is active.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !h.runner.TryStart(req.Symbols) {
		http.Error(w, "A screening run is already in progress", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "started"})
}

// HandleProgress handles GET /api/screener/progress
func (h *Handlers) HandleProgress(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.runner.Status())
}

// HandleResults handles GET /api/screener/results
// Serves the run named by ?run_id=, or the latest completed run.
func (h *Handlers) HandleResults(w http.ResponseWriter, r *http.Request) {
	var run *Run
	var err error

	if runID := r.URL.Query().Get("run_id"); runID != "" {
		run, err = h.repo.GetRun(runID)
	} else {
		run, err = h.repo.GetLatestRun()
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get screening run")
		http.Error(w, "Failed to get screening run", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "No screening run found", http.StatusNotFound)
		return
	}

	results, err := h.repo.GetResults(run.RunID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", run.RunID).Msg("Failed to get screening results")
		http.Error(w, "Failed to get screening results", http.StatusInternalServerError)
		return
	}
	skips, err := h.repo.GetSkips(run.RunID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", run.RunID).Msg("Failed to get screening skips")
		http.Error(w, "Failed to get screening skips", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []Opportunity{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resultsResponse{Run: run, Skips: skips, Results: results})
}

// HandleRuns handles GET /api/screener/runs
func (h *Handlers) HandleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := h.repo.ListRuns(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list screening runs")
		http.Error(w, "Failed to list screening runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []Run{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}
