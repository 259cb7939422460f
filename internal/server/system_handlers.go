package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/holistic-planner/internal/database"
	"github.com/aristath/holistic-planner/internal/scheduler"
)

// SystemHandlers handles host monitoring and manual job triggers
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	version     string
	startupTime time.Time
	db          *database.DB

	// Overridable in tests
	hostStats func() (cpuPercent, memPercent float64)
	diskUsage func(path string) (*disk.UsageStat, error)

	mu      sync.Mutex
	jobs    map[string]scheduler.Job
	running map[string]bool
}

// SystemStatusResponse represents system status
type SystemStatusResponse struct {
	Status        string  `json:"status"` // "healthy" or "degraded"
	Version       string  `json:"version"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskFreeGB    float64 `json:"disk_free_gb"`
	Database      DBInfo  `json:"database"`
}

// DBInfo represents information about the planner database
type DBInfo struct {
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	SizeMB  float64 `json:"size_mb"`
	WALMB   float64 `json:"wal_mb"`
	Healthy bool    `json:"healthy"`
	Error   string  `json:"error,omitempty"`
}

// DiskUsageResponse represents disk usage statistics
type DiskUsageResponse struct {
	Path        string  `json:"path"`
	TotalGB     float64 `json:"total_gb"`
	FreeGB      float64 `json:"free_gb"`
	UsedPercent float64 `json:"used_percent"`
}

// JobStatus describes a registered job
type JobStatus struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir, version string, db *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		dataDir:     dataDir,
		version:     version,
		startupTime: time.Now(),
		db:          db,
		hostStats:   sampleHostStats,
		diskUsage:   disk.Usage,
		jobs:        make(map[string]scheduler.Job),
		running:     make(map[string]bool),
	}
}

// SetJobs registers jobs for manual triggering, keyed by name
func (h *SystemHandlers) SetJobs(jobs ...scheduler.Job) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, job := range jobs {
		if job != nil {
			h.jobs[job.Name()] = job
		}
	}
}

// GetSystemStatusSnapshot returns a snapshot of the current system status.
func (h *SystemHandlers) GetSystemStatusSnapshot(ctx context.Context) SystemStatusResponse {
	cpuPercent, memPercent := h.hostStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Database:      h.databaseInfo(ctx),
	}

	if usage, err := h.diskUsage(h.dataDir); err == nil {
		response.DiskFreeGB = float64(usage.Free) / 1e9
	} else {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	}

	if !response.Database.Healthy {
		response.Status = "degraded"
	}
	return response
}

func (h *SystemHandlers) databaseInfo(ctx context.Context) DBInfo {
	if h.db == nil {
		return DBInfo{Error: "database not configured"}
	}

	info := DBInfo{Name: h.db.Name(), Path: h.db.Path(), Healthy: true}
	if stat, err := os.Stat(h.db.Path()); err == nil {
		info.SizeMB = float64(stat.Size()) / 1024 / 1024
	}
	if stat, err := os.Stat(h.db.Path() + "-wal"); err == nil {
		info.WALMB = float64(stat.Size()) / 1024 / 1024
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.db.HealthCheck(ctx); err != nil {
		info.Healthy = false
		info.Error = err.Error()
	}
	return info
}

// HandleSystemStatus returns comprehensive system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.GetSystemStatusSnapshot(r.Context()))
}

// HandleDatabaseStats returns planner database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.databaseInfo(r.Context()))
}

// HandleDiskUsage returns usage of the filesystem holding the data directory
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.diskUsage(h.dataDir)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get disk usage")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get disk usage"})
		return
	}

	h.writeJSON(w, http.StatusOK, DiskUsageResponse{
		Path:        h.dataDir,
		TotalGB:     float64(usage.Total) / 1e9,
		FreeGB:      float64(usage.Free) / 1e9,
		UsedPercent: usage.UsedPercent,
	})
}

// HandleJobsStatus lists the registered jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	statuses := make([]JobStatus, 0, len(h.jobs))
	for name := range h.jobs {
		statuses = append(statuses, JobStatus{Name: name, Running: h.running[name]})
	}
	h.mu.Unlock()

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": statuses})
}

// HandleTriggerJob starts a registered job in the background
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	h.mu.Lock()
	job, ok := h.jobs[name]
	if !ok {
		h.mu.Unlock()
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not registered: " + name})
		return
	}
	if h.running[name] {
		h.mu.Unlock()
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": "job already running: " + name})
		return
	}
	h.running[name] = true
	h.mu.Unlock()

	h.log.Info().Str("job", name).Msg("Manual job triggered")

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.running, name)
			h.mu.Unlock()
		}()
		if err := job.Run(); err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Manual job failed")
		}
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "triggered",
		"message": name + " triggered successfully",
	})
}

// isRunning reports whether a manually triggered job is still going
func (h *SystemHandlers) isRunning(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running[name]
}

// sampleHostStats calculates CPU and RAM usage percentages.
// The CPU sample is short so status requests stay fast.
func sampleHostStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		return cpuPercent[0], 0
	}
	return cpuPercent[0], memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
