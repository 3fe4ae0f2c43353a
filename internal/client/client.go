package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/agrismag/weather-relay/internal/observability"
)

// DefaultBaseURL is the WeatherAPI.com v1 endpoint used when no base URL is configured.
const DefaultBaseURL = "http://api.weatherapi.com/v1"

// WeatherProvider is the capability the router depends on. Every method returns the provider's
// JSON payload untouched, or an *Error.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, location string) (json.RawMessage, error)
	Forecast(ctx context.Context, location string, days int) (json.RawMessage, error)
	SearchLocations(ctx context.Context, query string) (json.RawMessage, error)
}

// Operation identifies one upstream call; it selects the path and the error message prefix.
type Operation string

const (
	OpCurrent  Operation = "current"
	OpForecast Operation = "forecast"
	OpSearch   Operation = "search"
)

func (op Operation) path() string {
	return string(op) + ".json"
}

func (op Operation) failurePrefix() string {
	switch op {
	case OpCurrent:
		return "Error fetching weather data"
	case OpForecast:
		return "Error fetching forecast data"
	case OpSearch:
		return "Error searching locations"
	default:
		return "Error calling weather provider"
	}
}

// WeatherAPIClient calls WeatherAPI.com. It holds no mutable state and is safe for concurrent use.
type WeatherAPIClient struct {
	apiKey  string
	baseURL *url.URL
	client  *http.Client
}

// NewWeatherAPIClient returns a client for the provider at baseURL. A zero timeout leaves outbound
// calls unbounded except by the caller's context.
func NewWeatherAPIClient(apiKey, baseURL string, timeout time.Duration) (*WeatherAPIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q: want absolute http(s) URL", baseURL)
	}

	return &WeatherAPIClient{
		apiKey:  apiKey,
		baseURL: u,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// CurrentWeather fetches current.json for location.
func (c *WeatherAPIClient) CurrentWeather(ctx context.Context, location string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("q", location)
	params.Set("aqi", "no")
	return c.do(ctx, OpCurrent, params)
}

// Forecast fetches forecast.json for location and the given number of days.
func (c *WeatherAPIClient) Forecast(ctx context.Context, location string, days int) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("q", location)
	params.Set("days", strconv.Itoa(days))
	params.Set("aqi", "no")
	params.Set("alerts", "no")
	return c.do(ctx, OpForecast, params)
}

// SearchLocations fetches search.json (autocomplete) for query.
func (c *WeatherAPIClient) SearchLocations(ctx context.Context, query string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("q", query)
	return c.do(ctx, OpSearch, params)
}

func (c *WeatherAPIClient) do(ctx context.Context, op Operation, params url.Values) (json.RawMessage, error) {
	start := time.Now()
	payload, status, err := c.call(ctx, op, params)
	label := "error"
	if status != 0 {
		label = observability.StatusLabel(status)
	}
	observability.WeatherAPICallsTotal.WithLabelValues(string(op), label).Inc()
	observability.WeatherAPIDuration.WithLabelValues(string(op), label).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.WeatherAPIErrorsTotal.WithLabelValues(string(op), string(CategorizeError(err))).Inc()
		return nil, err
	}
	return payload, nil
}

// call performs one round trip. status is the upstream HTTP status, or 0 when no response arrived.
func (c *WeatherAPIClient) call(ctx context.Context, op Operation, params url.Values) (json.RawMessage, int, error) {
	req, err := c.buildRequest(ctx, op, params)
	if err != nil {
		return nil, 0, internalError(op, fmt.Errorf("build request: %w", err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, internalError(op, redactURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, internalError(op, fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, upstreamError(op, resp.StatusCode, body)
	}

	if !json.Valid(body) {
		return nil, resp.StatusCode, internalError(op, fmt.Errorf("parse response: %w", errInvalidJSON))
	}
	return json.RawMessage(body), resp.StatusCode, nil
}

func (c *WeatherAPIClient) buildRequest(ctx context.Context, op Operation, params url.Values) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + op.path()
	params.Set("key", c.apiKey)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if corrID := observability.CorrelationIDFromContext(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}
	return req, nil
}

// redactURLError strips the request URL, which carries the API key, from transport errors.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
