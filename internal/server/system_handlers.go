package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/kpetrou/signalfolio/internal/cache"
)

// SystemHandlers serves process health and cache observability endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	cache     *cache.Cache
	startedAt time.Time
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(log zerolog.Logger, resultCache *cache.Cache) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		cache:     resultCache,
		startedAt: time.Now(),
	}
}

// HandleHealth handles GET /health and GET /api/system/health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.systemStats()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"cpu_percent":    cpuPct,
		"memory_percent": memPct,
	})
}

// HandleCacheStats handles GET /api/system/cache
func (h *SystemHandlers) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

// HandleCacheInvalidate handles DELETE /api/system/cache?prefix=analysis:
func (h *SystemHandlers) HandleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		h.cache.InvalidateAll()
	} else {
		h.cache.InvalidatePrefix(prefix)
	}

	h.log.Info().Str("prefix", prefix).Msg("Cache invalidated via API")
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// systemStats samples CPU and RAM usage. The CPU sample uses a short 100ms
// interval so the health endpoint stays fast.
func (h *SystemHandlers) systemStats() (float64, float64) {
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

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
