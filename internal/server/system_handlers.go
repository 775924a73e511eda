package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/put-screener/internal/database"
	"github.com/aristath/put-screener/internal/modules/universe"
	"github.com/aristath/put-screener/internal/reliability"
	"github.com/aristath/put-screener/internal/scheduler"
)

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log           zerolog.Logger
	startupTime   time.Time
	scheduler     *scheduler.Scheduler
	healthChecker *reliability.HealthChecker
	universeRepo  *universe.Repository
	databases     []*database.DB
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	sched *scheduler.Scheduler,
	healthChecker *reliability.HealthChecker,
	universeRepo *universe.Repository,
	databases ...*database.DB,
) *SystemHandlers {
	return &SystemHandlers{
		log:           log.With().Str("component", "system_handlers").Logger(),
		startupTime:   time.Now(),
		scheduler:     sched,
		healthChecker: healthChecker,
		universeRepo:  universeRepo,
		databases:     databases,
	}
}

// SystemStatusResponse represents the system status response
type SystemStatusResponse struct {
	Status         string         `json:"status"`
	UptimeHours    float64        `json:"uptime_hours"`
	CPUPercent     float64        `json:"cpu_percent"`
	RAMPercent     float64        `json:"ram_percent"`
	UniverseActive int            `json:"universe_active"`
	Databases      []DatabaseInfo `json:"databases"`
	TotalSizeMB    float64        `json:"total_size_mb"`
}

// DatabaseInfo holds size information for a single database file
type DatabaseInfo struct {
	Name      string  `json:"name"`
	SizeMB    float64 `json:"size_mb"`
	WALSizeMB float64 `json:"wal_size_mb"`
}

// JobsStatusResponse represents the scheduler job listing
type JobsStatusResponse struct {
	TotalJobs int               `json:"total_jobs"`
	Jobs      []scheduler.Entry `json:"jobs"`
}

// HandleSystemStatus handles GET /api/system/status
// Returns CPU, RAM, uptime, universe size and database file sizes.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := h.getSystemStats()

	var universeActive int
	if stats, err := h.universeRepo.Stats(); err != nil {
		h.log.Error().Err(err).Msg("Failed to get universe stats")
	} else {
		universeActive = stats.ActiveStocks
	}

	databases := make([]DatabaseInfo, 0, len(h.databases))
	totalSizeMB := 0.0

	for _, db := range h.databases {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			continue
		}

		info := DatabaseInfo{
			Name:      db.Name(),
			SizeMB:    float64(stats.SizeBytes) / 1024.0 / 1024.0,
			WALSizeMB: float64(stats.WALSizeBytes) / 1024.0 / 1024.0,
		}
		databases = append(databases, info)
		totalSizeMB += info.SizeMB
	}

	h.writeJSON(w, SystemStatusResponse{
		Status:         "ok",
		UptimeHours:    time.Since(h.startupTime).Hours(),
		CPUPercent:     cpuPercent,
		RAMPercent:     ramPercent,
		UniverseActive: universeActive,
		Databases:      databases,
		TotalSizeMB:    totalSizeMB,
	})
}

// HandleDatabases handles GET /api/system/databases
// Runs integrity checks, so it is heavier than the status endpoint.
func (h *SystemHandlers) HandleDatabases(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Collecting database metrics")

	metrics := h.healthChecker.CollectMetrics(r.Context())
	h.writeJSON(w, metrics)
}

// HandleListJobs handles GET /api/system/jobs
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.scheduler.Jobs()

	h.writeJSON(w, JobsStatusResponse{
		TotalJobs: len(jobs),
		Jobs:      jobs,
	})
}

// HandleRunJob handles POST /api/system/jobs/{name}/run
// The run is detached from the request; failures land in the job log.
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if !h.scheduler.HasJob(name) {
		http.Error(w, "Unknown job: "+name, http.StatusNotFound)
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")

	go func() {
		if err := h.scheduler.RunNow(name); err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Manually triggered job failed")
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "started", "job": name})
}

// getSystemStats calculates CPU and RAM usage percentages
// Uses a shorter interval (100ms) for faster response while still providing accurate readings
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
