package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/agrismag/weather-relay/internal/client"
	"github.com/agrismag/weather-relay/internal/observability"
	"github.com/agrismag/weather-relay/internal/traffic"
	"github.com/agrismag/weather-relay/internal/validation"
)

// Error codes carried in the error payload.
const (
	codeInvalidParameter = "INVALID_PARAMETER"
	codeUpstreamError    = "UPSTREAM_ERROR"
	codeInternalError    = "INTERNAL_ERROR"
	codeNotFound         = "NOT_FOUND"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

const welcomeMessage = "Welcome to the Weather API"

// Handler holds dependencies for HTTP handlers. It has no per-request state.
type Handler struct {
	provider client.WeatherProvider
	health   *healthState
	logger   *zap.Logger
}

// NewHandler returns a new Handler. healthConfig may be nil, in which case /health only
// reports shutdown.
func NewHandler(provider client.WeatherProvider, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		provider: provider,
		health:   &healthState{config: healthConfig},
		logger:   logger,
	}
}

// GetRoot handles GET /.
func (h *Handler) GetRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
}

// GetCurrentWeather handles GET /weather/current?location=.
func (h *Handler) GetCurrentWeather(w http.ResponseWriter, r *http.Request) {
	location, err := validation.RequireQuery("location", r.URL.Query().Get("location"))
	if err != nil {
		writeValidationError(w, r, err)
		return
	}

	payload, err := h.provider.CurrentWeather(r.Context(), location)
	h.relay(w, r, payload, err)
}

// GetForecast handles GET /weather/forecast?location=&days=. days defaults to 3 and must be in
// [1,10]; violations are rejected before the provider is called.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	location, err := validation.RequireQuery("location", q.Get("location"))
	if err != nil {
		writeValidationError(w, r, err)
		return
	}
	days, err := validation.ParseDays(q.Get("days"))
	if err != nil {
		writeValidationError(w, r, err)
		return
	}

	payload, err := h.provider.Forecast(r.Context(), location, days)
	h.relay(w, r, payload, err)
}

// SearchLocations handles GET /weather/search?query=.
func (h *Handler) SearchLocations(w http.ResponseWriter, r *http.Request) {
	query, err := validation.RequireQuery("query", r.URL.Query().Get("query"))
	if err != nil {
		writeValidationError(w, r, err)
		return
	}

	payload, err := h.provider.SearchLocations(r.Context(), query)
	h.relay(w, r, payload, err)
}

// NotFound is the router's handler for unmatched paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, codeNotFound, "The requested resource was not found")
}

// MethodNotAllowed is the router's handler for known paths hit with an unsupported method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, codeMethodNotAllowed, "Method "+r.Method+" is not allowed")
}

// relay writes the provider payload verbatim, or the provider error in the uniform error shape.
func (h *Handler) relay(w http.ResponseWriter, r *http.Request, payload json.RawMessage, err error) {
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	traffic.Record(traffic.Success)
	writeRawJSON(w, http.StatusOK, payload)
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRawJSON writes an already-encoded JSON document without re-encoding it.
func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError writes an error response in the standard error format with status, code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"status":    status,
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationIDFromContext(r.Context()),
		},
	})
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	param := "unknown"
	var verr *validation.Error
	if errors.As(err, &verr) {
		param = verr.Param
	}
	observability.ValidationRejectsTotal.WithLabelValues(routeLabel(r), param).Inc()
	observability.LoggerFromContext(r.Context()).Debug("request rejected", zap.String("param", param), zap.Error(err))
	writeError(w, r, http.StatusBadRequest, codeInvalidParameter, err.Error())
}

// writeServiceError maps a provider error to its response. Upstream-reported errors keep the
// provider's status when it is an error status; everything else is a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.LoggerFromContext(r.Context())

	var e *client.Error
	if errors.As(err, &e) && e.Upstream() {
		traffic.Record(traffic.UpstreamError)
		status := e.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		fields := []zap.Field{
			zap.String("operation", string(e.Op)),
			zap.Int("upstream_status", e.StatusCode),
			zap.Int("provider_code", e.ProviderCode),
			zap.String("message", e.Message),
		}
		if status >= 500 {
			logger.Warn("weather provider error", fields...)
		} else {
			logger.Debug("weather provider error", fields...)
		}
		writeError(w, r, status, codeUpstreamError, e.Message)
		return
	}

	traffic.Record(traffic.InternalError)
	logger.Error("relay failure", zap.Error(err), zap.String("category", string(client.CategorizeError(err))))
	writeError(w, r, http.StatusInternalServerError, codeInternalError, err.Error())
}

// routeLabel returns the matched route template, bounding metric cardinality.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
