package http

import (
	"net/http"
	"slices"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/agrismag/weather-relay/internal/config"
	"github.com/agrismag/weather-relay/internal/observability"
)

// NewRouter wires the public routes, middleware and CORS policy around h.
func NewRouter(h *Handler, corsConfig config.CORSConfig, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	correlation := CorrelationIDMiddleware(logger)

	router := mux.NewRouter()
	router.Use(correlation)
	router.Use(MetricsMiddleware)
	router.Use(AccessLogMiddleware)

	router.HandleFunc("/", h.GetRoot).Methods(http.MethodGet)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	// Full paths on the root router: a PathPrefix subrouter reports a method mismatch as 404.
	router.HandleFunc("/weather/current", h.GetCurrentWeather).Methods(http.MethodGet)
	router.HandleFunc("/weather/forecast", h.GetForecast).Methods(http.MethodGet)
	router.HandleFunc("/weather/search", h.SearchLocations).Methods(http.MethodGet)

	// mux skips middleware for these two, so the chain is applied explicitly.
	router.NotFoundHandler = correlation(MetricsMiddleware(AccessLogMiddleware(http.HandlerFunc(h.NotFound))))
	router.MethodNotAllowedHandler = correlation(MetricsMiddleware(AccessLogMiddleware(http.HandlerFunc(h.MethodNotAllowed))))

	return newCORS(corsConfig, logger).Handler(router)
}

func newCORS(c config.CORSConfig, logger *zap.Logger) *cors.Cors {
	opts := cors.Options{
		AllowedOrigins:   c.AllowedOrigins,
		AllowedMethods:   c.AllowedMethods,
		AllowedHeaders:   c.AllowedHeaders,
		ExposedHeaders:   []string{correlationHeader},
		AllowCredentials: c.AllowCredentials,
	}
	// A literal "*" is rejected by browsers on credentialed requests; reflect the origin instead.
	if c.AllowCredentials && slices.Contains(c.AllowedOrigins, "*") {
		opts.AllowOriginFunc = func(string) bool { return true }
	}
	if logger.Core().Enabled(zap.DebugLevel) {
		if stdLog, err := zap.NewStdLogAt(logger.Named("cors"), zap.DebugLevel); err == nil {
			opts.Logger = stdLog
		}
	}
	return cors.New(opts)
}
