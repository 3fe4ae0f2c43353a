//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/agrismag/weather-relay/internal/observability"
)

// IntegrationTestConfig holds configuration for tests that call the real weather provider.
type IntegrationTestConfig struct {
	APIKey  string
	APIURL  string
	Timeout time.Duration
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if WEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	apiURL := os.Getenv("WEATHER_API_URL")
	if apiURL == "" {
		apiURL = "http://api.weatherapi.com/v1"
	}

	timeout := 10 * time.Second
	if v := os.Getenv("INTEGRATION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}

	return IntegrationTestConfig{
		APIKey:  apiKey,
		APIURL:  apiURL,
		Timeout: timeout,
	}
}

// NewLogger returns the production logger, or a no-op logger if it cannot be built.
func NewLogger(t *testing.T) *zap.Logger {
	logger, err := observability.NewLogger()
	if err != nil {
		t.Logf("NewLogger() error = %v, using no-op logger", err)
		return zap.NewNop()
	}
	return logger
}
