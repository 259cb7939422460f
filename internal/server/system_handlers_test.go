package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holistic-planner/internal/config"
	"github.com/aristath/holistic-planner/internal/database"
	"github.com/aristath/holistic-planner/internal/events"
	"github.com/aristath/holistic-planner/internal/scheduler"
)

type blockingJob struct {
	name    string
	release chan struct{}
	ran     chan struct{}
}

func newBlockingJob(name string) *blockingJob {
	return &blockingJob{name: name, release: make(chan struct{}), ran: make(chan struct{}, 1)}
}

func (j *blockingJob) Name() string { return j.name }

func (j *blockingJob) Run() error {
	<-j.release
	j.ran <- struct{}{}
	return errors.New("finished with error")
}

func testDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "planner.db"), Name: "planner"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestServer(t *testing.T, bus *events.Bus, jobs ...scheduler.Job) *Server {
	t.Helper()
	s := New(Config{
		Log:    zerolog.Nop(),
		DB:     testDB(t),
		Config: &config.Config{DataDir: t.TempDir(), Version: "test", DevMode: true},
		Bus:    bus,
		Jobs:   jobs,
	})
	s.systemHandlers.hostStats = func() (float64, float64) { return 12.5, 40 }
	s.systemHandlers.diskUsage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Total: 100e9, Free: 25e9, UsedPercent: 75}, nil
	}
	return s
}

func serve(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(t, s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestHandleSystemStatus(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(t, s, http.MethodGet, "/api/system/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, 12.5, status.CPUPercent)
	assert.Equal(t, 40.0, status.MemoryPercent)
	assert.InDelta(t, 25.0, status.DiskFreeGB, 1e-9)
	assert.Equal(t, "planner", status.Database.Name)
	assert.True(t, status.Database.Healthy)
}

func TestHandleDiskUsage(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(t, s, http.MethodGet, "/api/system/disk")
	require.Equal(t, http.StatusOK, rec.Code)

	var usage DiskUsageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usage))
	assert.InDelta(t, 100.0, usage.TotalGB, 1e-9)
	assert.Equal(t, 75.0, usage.UsedPercent)

	s.systemHandlers.diskUsage = func(string) (*disk.UsageStat, error) { return nil, errors.New("no such device") }
	rec = serve(t, s, http.MethodGet, "/api/system/disk")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleTriggerJob(t *testing.T) {
	job := newBlockingJob("planner_batch")
	s := newTestServer(t, nil, job)

	rec := serve(t, s, http.MethodPost, "/api/system/jobs/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, s, http.MethodPost, "/api/system/jobs/planner_batch")
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = serve(t, s, http.MethodPost, "/api/system/jobs/planner_batch")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, s, http.MethodGet, "/api/system/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Jobs []JobStatus `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Jobs, 1)
	assert.True(t, listing.Jobs[0].Running)

	close(job.release)
	<-job.ran
	assert.Eventually(t, func() bool { return !s.systemHandlers.isRunning("planner_batch") }, time.Second, 5*time.Millisecond)
}

func TestEventsStream(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	s := newTestServer(t, bus)
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/events/stream?types=PLAN_GENERATED", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frames := make(chan string, 4)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
				frames <- strings.TrimPrefix(line, "data: ")
			}
		}
		close(frames)
	}()

	assert.Contains(t, <-frames, `"connected"`)

	bus.EmitTyped("planner", &events.PlanningStatusData{PortfolioHash: "p1"})
	bus.EmitTyped("planner", &events.PlanGeneratedData{PortfolioHash: "p1", Steps: 2})

	var event events.Event
	require.NoError(t, json.Unmarshal([]byte(<-frames), &event))
	assert.Equal(t, events.PlanGenerated, event.Type)
	data, ok := event.Data.(*events.PlanGeneratedData)
	require.True(t, ok)
	assert.Equal(t, 2, data.Steps)
}

func TestStatusMonitor_EmitsOnChange(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	var mu sync.Mutex
	var emitted []*events.SystemStatusData
	bus.Subscribe(events.SystemStatusChanged, func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		emitted = append(emitted, e.Data.(*events.SystemStatusData))
	})

	s := newTestServer(t, bus)
	cpuPercent := 10.0
	s.systemHandlers.hostStats = func() (float64, float64) { return cpuPercent, 40 }
	monitor := NewStatusMonitor(bus, s.systemHandlers, zerolog.Nop())

	monitor.check(context.Background())
	monitor.check(context.Background())
	cpuPercent = 15
	monitor.check(context.Background())
	cpuPercent = 80
	monitor.check(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, emitted, 2)
	assert.Equal(t, 10.0, emitted[0].CPUPercent)
	assert.Equal(t, 80.0, emitted[1].CPUPercent)
	assert.True(t, emitted[1].DatabaseHealthy)
}

func TestStatusMonitor_StartStop(t *testing.T) {
	s := newTestServer(t, events.NewBus(zerolog.Nop()))
	monitor := NewStatusMonitor(nil, s.systemHandlers, zerolog.Nop())

	monitor.Start(time.Hour)
	assert.NotPanics(t, monitor.Stop)
}
