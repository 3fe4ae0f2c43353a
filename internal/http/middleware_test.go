package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/agrismag/weather-relay/internal/observability"
)

func TestCorrelationID_Generated(t *testing.T) {
	router := newTestRouter(&mockProvider{payload: json.RawMessage(`{}`)}, zap.NewNop())

	w := serve(t, router, "/weather/current?location=Paris")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get(correlationHeader), 36, "want a UUID")
}

func TestCorrelationID_Propagated(t *testing.T) {
	router := newTestRouter(&mockProvider{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/weather/current", nil)
	req.Header.Set(correlationHeader, "client-provided-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "client-provided-id", w.Header().Get(correlationHeader))
	body := decodeError(t, w)
	assert.Equal(t, "client-provided-id", body.Error.RequestID)
}

func TestCorrelationIDMiddleware_SetsContext(t *testing.T) {
	var gotID string
	var gotLogger *zap.Logger
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = observability.CorrelationIDFromContext(r.Context())
		gotLogger = observability.LoggerFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(correlationHeader, "abc")
	CorrelationIDMiddleware(zap.NewNop())(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "abc", gotID)
	assert.NotNil(t, gotLogger)
}

func TestAccessLog_OneLinePerRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router := newTestRouter(&mockProvider{payload: json.RawMessage(`{"a":1}`)}, zap.New(core))

	serve(t, router, "/weather/current?location=Paris")
	serve(t, router, "/missing")

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "GET", first["method"])
	assert.Equal(t, "/weather/current", first["route"])
	assert.EqualValues(t, 200, first["status"])
	assert.EqualValues(t, len(`{"a":1}`), first["bytes"])
	assert.Contains(t, first, "correlation_id")

	second := entries[1].ContextMap()
	assert.Equal(t, "unmatched", second["route"])
	assert.EqualValues(t, 404, second["status"])
}

func TestMetricsMiddleware_RecordsRouteTemplate(t *testing.T) {
	router := newTestRouter(&mockProvider{payload: json.RawMessage(`{}`)}, zap.NewNop())

	serve(t, router, "/weather/forecast?location=Paris&days=2")
	serve(t, router, "/weather/forecast?location=Paris&days=20")

	w := serve(t, router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `route="/weather/forecast",statusCode="2xx"`), "missing 2xx forecast sample")
	assert.True(t, strings.Contains(body, `route="/weather/forecast",statusCode="4xx"`), "missing 4xx forecast sample")
	assert.Contains(t, body, `validationRejectsTotal{param="days",route="/weather/forecast"}`)
}

func TestMetricsMiddleware_CountsUnmatchedRequests(t *testing.T) {
	router := newTestRouter(&mockProvider{}, zap.NewNop())

	serve(t, router, "/no/such/path")
	req := httptest.NewRequest(http.MethodPost, "/weather/current?location=Paris", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	body := serve(t, router, "/metrics").Body.String()
	assert.Contains(t, body, `httpRequestsTotal{method="GET",route="unmatched",statusCode="4xx"}`)
	assert.Contains(t, body, `httpRequestsTotal{method="POST",route="unmatched",statusCode="4xx"}`)
}

func TestMetricsMiddleware_InFlightReturnsToZero(t *testing.T) {
	before := InFlightCount()
	router := newTestRouter(&mockProvider{payload: json.RawMessage(`{}`)}, zap.NewNop())

	serve(t, router, "/weather/current?location=Paris")

	assert.Equal(t, before, InFlightCount())
}

func TestStatusRecorder_FirstWriteHeaderWins(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	rec.WriteHeader(http.StatusTeapot)
	rec.WriteHeader(http.StatusOK)
	_, _ = rec.Write([]byte("abc"))

	assert.Equal(t, http.StatusTeapot, rec.statusCode)
	assert.Equal(t, 3, rec.bytes)
}

func TestCORS_ActualRequest(t *testing.T) {
	router := newTestRouter(&mockProvider{payload: json.RawMessage(`{}`)}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/weather/current?location=Paris", nil)
	req.Header.Set("Origin", "https://frontend.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(w.Header().Get("Access-Control-Expose-Headers")), "x-correlation-id")
}

func TestCORS_CredentialedWildcardReflectsOrigin(t *testing.T) {
	router := newTestRouter(&mockProvider{payload: json.RawMessage(`{}`)}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "http://example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_WildcardWithoutCredentials(t *testing.T) {
	cfg := permissiveCORS()
	cfg.AllowCredentials = false
	router := NewRouter(NewHandler(&mockProvider{}, nil, nil), cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_Preflight(t *testing.T) {
	p := &mockProvider{payload: json.RawMessage(`{}`)}
	router := newTestRouter(p, zap.NewNop())

	req := httptest.NewRequest(http.MethodOptions, "/weather/current?location=Paris", nil)
	req.Header.Set("Origin", "https://frontend.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	req.Header.Set("Access-Control-Request-Headers", "X-Custom-Header")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
	assert.Empty(t, p.Calls(), "preflight must not reach the provider")
}

func TestCORS_RestrictedOrigin(t *testing.T) {
	cfg := permissiveCORS()
	cfg.AllowedOrigins = []string{"https://app.example.com"}
	router := NewRouter(NewHandler(&mockProvider{payload: json.RawMessage(`{}`)}, nil, nil), cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/weather/current?location=Paris", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
