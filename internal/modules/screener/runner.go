package screener

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrRunInProgress is returned when a run is requested while another
// is still executing.
var ErrRunInProgress = errors.New("a screening run is already in progress")

// Runner serializes screening runs and exposes live progress. The HTTP
// trigger and the scheduled job share one Runner, so only a single run
// executes at a time no matter who asked for it.
type Runner struct {
	service *Service
	log     zerolog.Logger

	mu         sync.Mutex
	running    bool
	startedAt  time.Time
	snapshot   Progress
	lastReport *RunReport
	lastErr    error
}

// RunStatus is a point-in-time view of the runner for the progress API.
type RunStatus struct {
	Running    bool    `json:"running"`
	State      string  `json:"state,omitempty"`
	Stage      string  `json:"stage,omitempty"`
	Symbol     string  `json:"symbol,omitempty"`
	Index      int     `json:"index"`
	Total      int     `json:"total"`
	Percent    float64 `json:"percent"`
	ElapsedMS  int64   `json:"elapsed_ms"`
	ETASeconds *int64  `json:"eta_seconds,omitempty"`
	LastRunID  string  `json:"last_run_id,omitempty"`
	LastError  string  `json:"last_error,omitempty"`
}

// NewRunner creates a new screener runner
func NewRunner(service *Service, log zerolog.Logger) *Runner {
	return &Runner{
		service: service,
		log:     log.With().Str("service", "screener_runner").Logger(),
	}
}

// TryStart launches a run on a background goroutine. Returns false if
// a run is already executing.
func (r *Runner) TryStart(symbols []string) bool {
	if !r.begin() {
		return false
	}

	go func() {
		report, err := r.service.Run(context.Background(), RunOptions{
			Symbols:  symbols,
			Progress: r.observe,
		})
		r.finish(report, err)
	}()
	return true
}

// RunBlocking executes a run on the caller's goroutine, holding the
// same single-run guard. Used by the scheduler so job timing reflects
// the actual run.
func (r *Runner) RunBlocking(ctx context.Context) error {
	if !r.begin() {
		return ErrRunInProgress
	}

	report, err := r.service.Run(ctx, RunOptions{Progress: r.observe})
	r.finish(report, err)
	return err
}

// Status reports whether a run is active and how far along it is. The
// ETA extrapolates from the per-ticker pace so far and is only present
// mid-loop.
func (r *Runner) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := RunStatus{Running: r.running}
	if r.lastReport != nil {
		status.LastRunID = r.lastReport.Run.RunID
	}
	if r.lastErr != nil {
		status.LastError = r.lastErr.Error()
	}
	if !r.running {
		return status
	}

	p := r.snapshot
	status.State = string(p.State)
	status.Stage = p.Stage
	status.Symbol = p.Symbol
	status.Index = p.Index
	status.Total = p.Total

	elapsed := time.Since(r.startedAt)
	status.ElapsedMS = elapsed.Milliseconds()
	if p.Total > 0 {
		status.Percent = float64(p.Index) / float64(p.Total) * 100
	}
	if p.State == StateTickerLoop && p.Index > 0 && p.Index < p.Total {
		perTicker := elapsed / time.Duration(p.Index)
		eta := int64((time.Duration(p.Total-p.Index) * perTicker).Seconds())
		status.ETASeconds = &eta
	}
	return status
}

func (r *Runner) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return false
	}
	r.running = true
	r.startedAt = time.Now().UTC()
	r.snapshot = Progress{State: StateInit}
	return true
}

func (r *Runner) finish(report *RunReport, err error) {
	r.mu.Lock()
	r.running = false
	r.lastReport = report
	r.lastErr = err
	r.mu.Unlock()

	if err != nil {
		r.log.Error().Err(err).Msg("Screening run failed")
	}
}

func (r *Runner) observe(p Progress) {
	r.mu.Lock()
	r.snapshot = p
	r.mu.Unlock()
}
