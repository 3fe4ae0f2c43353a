package http

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/agrismag/weather-relay/internal/traffic"
)

var shuttingDown atomic.Bool

// SetShuttingDown sets the drain flag. Call when SIGTERM/SIGINT is received so /health returns
// 503 and load balancers stop routing here.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown reports whether the process is draining.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// HealthConfig holds the thresholds for GET /health.
type HealthConfig struct {
	// DegradedWindow is the sliding window over which relay-internal errors are counted.
	DegradedWindow time.Duration
	// DegradedErrorPct is the internal error share (percent) at which status becomes degraded.
	// 0 disables the check.
	DegradedErrorPct int
	StartTime        time.Time
	Version          string
}

type healthState struct {
	config *HealthConfig
	mu     sync.Mutex
	prev   string
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
	window     traffic.Snapshot
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.health.mu.Lock()
	prev := h.health.prev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.health.prev = result.status
	h.health.mu.Unlock()

	weatherAPI := "healthy"
	if result.status == "degraded" {
		weatherAPI = "unhealthy"
	}
	resp := map[string]interface{}{
		"status":  result.status,
		"service": "weather-relay",
		"checks": map[string]string{
			"weatherApi": weatherAPI,
		},
		"window": map[string]int{
			"success":       result.window.Success,
			"upstreamError": result.window.UpstreamError,
			"internalError": result.window.InternalError,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if cfg := h.health.config; cfg != nil {
		if cfg.Version != "" {
			resp["version"] = cfg.Version
		}
		if !cfg.StartTime.IsZero() {
			resp["uptimeSeconds"] = int64(time.Since(cfg.StartTime).Seconds())
		}
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates, in order: shutting-down, degraded, healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if IsShuttingDown() {
		return healthResult{status: "shutting-down", statusCode: http.StatusServiceUnavailable, reason: "signal"}
	}
	cfg := h.health.config
	if cfg == nil || cfg.DegradedWindow <= 0 {
		return healthResult{status: "healthy", statusCode: http.StatusOK}
	}

	snap := traffic.Counts(cfg.DegradedWindow)
	if cfg.DegradedErrorPct > 0 && snap.Total() > 0 && snap.InternalErrorPct() >= float64(cfg.DegradedErrorPct) {
		return healthResult{status: "degraded", statusCode: http.StatusServiceUnavailable, reason: "error_rate_breach", window: snap}
	}
	return healthResult{status: "healthy", statusCode: http.StatusOK, window: snap}
}
