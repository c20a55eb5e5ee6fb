package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/signalist/signalist/internal/database"
	"github.com/signalist/signalist/internal/scheduler"
)

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status        string            `json:"status"` // "healthy" or "degraded"
	UptimeSeconds int64             `json:"uptime_seconds"`
	CPUPercent    float64           `json:"cpu_percent"`
	MemoryPercent float64           `json:"memory_percent"`
	Goroutines    int               `json:"goroutines"`
	Database      string            `json:"database"`
	Jobs          []scheduler.Entry `json:"jobs"`
}

// SystemHandlers serves status and diagnostics endpoints
type SystemHandlers struct {
	db          DatabaseStatus
	jobs        JobLister
	startupTime time.Time
	stats       func() (float64, float64)
	log         zerolog.Logger
}

// NewSystemHandlers creates system handlers. db and jobs may be nil.
func NewSystemHandlers(db DatabaseStatus, jobs JobLister, log zerolog.Logger) *SystemHandlers {
	h := &SystemHandlers{
		db:          db,
		jobs:        jobs,
		startupTime: time.Now(),
		log:         log.With().Str("handler", "system").Logger(),
	}
	h.stats = h.getSystemStats
	return h
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.stats()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		Jobs:          []scheduler.Entry{},
	}

	if h.db != nil {
		state := h.db.State()
		response.Database = string(state)
		if state == database.StateDisconnected {
			response.Status = "degraded"
		}
	}
	if h.jobs != nil {
		response.Jobs = h.jobs.Entries()
	}

	writeJSON(w, http.StatusOK, response, h.log)
}

// HandleDebugDB handles GET /api/debug/db. It connects if needed and reports the handle state.
func (h *SystemHandlers) HandleDebugDB(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	now := time.Now().UTC().Format(time.RFC3339)

	if h.db == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": "database not configured",
			"now":   now,
		}, h.log)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	db, err := h.db.Get(ctx)
	if err == nil {
		err = db.QuickCheck(ctx)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Database debug probe failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": err.Error(),
			"now":   now,
		}, h.log)
		return
	}

	state := h.db.State()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":         true,
		"readyState": ReadyState(state),
		"state":      string(state),
		"dbName":     h.db.Name(),
		"host":       db.Path(),
		"uri":        h.db.RedactedURI(),
		"now":        now,
	}, h.log)
}

// ReadyState maps a handle state to the numeric codes the debug endpoint reports:
// 0 disconnected, 1 connected, 2 connecting, 99 uninitialized.
func ReadyState(state database.State) int {
	switch state {
	case database.StateConnected:
		return 1
	case database.StateConnecting:
		return 2
	case database.StateUninitialized:
		return 99
	default:
		return 0
	}
}

// getSystemStats samples CPU over 100ms and reads memory usage
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
