package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/put-screener/internal/scheduler"
)

// stubJob is a minimal scheduler.Job for handler tests.
type stubJob struct {
	name string
	ran  chan struct{}
	err  error
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run() error {
	if j.ran != nil {
		j.ran <- struct{}{}
	}
	return j.err
}

func newTestScheduler(t *testing.T, jobs ...*stubJob) *scheduler.Scheduler {
	t.Helper()

	sched := scheduler.New(zerolog.Nop())
	for _, job := range jobs {
		require.NoError(t, sched.AddJob("0 30 22 * * *", job))
	}
	return sched
}

func TestSystemHandlers_HandleListJobs(t *testing.T) {
	sched := newTestScheduler(t,
		&stubJob{name: "price_sync"},
		&stubJob{name: "db_health"},
	)

	handlers := &SystemHandlers{
		log:       zerolog.Nop(),
		scheduler: sched,
	}

	req := httptest.NewRequest(http.MethodGet, "/api/system/jobs", nil)
	rec := httptest.NewRecorder()

	handlers.HandleListJobs(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response JobsStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, 2, response.TotalJobs)
	require.Len(t, response.Jobs, 2)
	assert.Equal(t, "db_health", response.Jobs[0].Name)
	assert.Equal(t, "price_sync", response.Jobs[1].Name)
	assert.Equal(t, "0 30 22 * * *", response.Jobs[0].Schedule)
}

func TestSystemHandlers_HandleRunJob(t *testing.T) {
	job := &stubJob{name: "price_sync", ran: make(chan struct{}, 1)}
	sched := newTestScheduler(t, job)

	handlers := &SystemHandlers{
		log:       zerolog.Nop(),
		scheduler: sched,
	}

	// Route through chi so the URL parameter is populated
	router := chi.NewRouter()
	router.Post("/api/system/jobs/{name}/run", handlers.HandleRunJob)

	req := httptest.NewRequest(http.MethodPost, "/api/system/jobs/price_sync/run", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "started", response["status"])
	assert.Equal(t, "price_sync", response["job"])

	// The job runs in the background after the response is written
	select {
	case <-job.ran:
	case <-time.After(time.Second):
		t.Fatal("job was not run")
	}
}

func TestSystemHandlers_HandleRunJob_Unknown(t *testing.T) {
	sched := newTestScheduler(t, &stubJob{name: "price_sync"})

	handlers := &SystemHandlers{
		log:       zerolog.Nop(),
		scheduler: sched,
	}

	router := chi.NewRouter()
	router.Post("/api/system/jobs/{name}/run", handlers.HandleRunJob)

	req := httptest.NewRequest(http.MethodPost, "/api/system/jobs/no_such_job/run", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_such_job")
}
