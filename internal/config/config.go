package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// defaultWeatherAPIURL is the WeatherAPI.com v1 endpoint.
const defaultWeatherAPIURL = "http://api.weatherapi.com/v1"

// Config holds relay configuration loaded from .env, YAML and environment. It is built once at
// startup and never mutated afterwards.
type Config struct {
	ServerPort        string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration // 0 = unbounded, so slow upstream responses are not cut off
	IdleTimeout       time.Duration

	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration // 0 = no client timeout

	CORS CORSConfig

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	DegradedWindow   time.Duration
	DegradedErrorPct int // 0 disables the degraded health state
}

// CORSConfig is passed to the CORS middleware. The defaults allow everything; tighten per deployment.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
}

type fileConfig struct {
	Server struct {
		Port              string `yaml:"port"`
		ReadHeaderTimeout string `yaml:"read_header_timeout"`
		ReadTimeout       string `yaml:"read_timeout"`
		WriteTimeout      string `yaml:"write_timeout"`
		IdleTimeout       string `yaml:"idle_timeout"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	CORS struct {
		AllowedOrigins   []string `yaml:"allowed_origins"`
		AllowedMethods   []string `yaml:"allowed_methods"`
		AllowedHeaders   []string `yaml:"allowed_headers"`
		AllowCredentials *bool    `yaml:"allow_credentials"`
	} `yaml:"cors"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Health struct {
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct *int   `yaml:"degraded_error_pct"`
	} `yaml:"health"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
}

var (
	defaultCORSOrigins = []string{"*"}
	defaultCORSMethods = []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	defaultCORSHeaders = []string{"*"}
)

// Load reads .env (optional), config/{ENV_NAME}.yaml and config/secrets.yaml from the working
// directory. The YAML file may be absent only when ENV_NAME is unset. WEATHER_API_KEY (env, .env or
// secrets file) is required; WEATHER_API_URL and SERVER_PORT override the file.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}

	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env file: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	explicitEnv := env != ""
	if !explicitEnv {
		env = "dev"
	}

	var fc fileConfig
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicitEnv:
		// defaults only
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("config file not found: %s", configPath)
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = strings.TrimSpace(os.Getenv("SERVER_PORT"))
	if cfg.ServerPort == "" {
		cfg.ServerPort = strings.TrimSpace(fc.Server.Port)
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8000"
	}
	cfg.ReadHeaderTimeout = parseDuration(fc.Server.ReadHeaderTimeout, 5*time.Second)
	cfg.ReadTimeout = parseDuration(fc.Server.ReadTimeout, 10*time.Second)
	cfg.WriteTimeout = parseDurationOrZero(fc.Server.WriteTimeout, 0)
	cfg.IdleTimeout = parseDuration(fc.Server.IdleTimeout, 60*time.Second)

	cfg.WeatherAPIKey = strings.TrimSpace(os.Getenv("WEATHER_API_KEY"))
	if cfg.WeatherAPIKey == "" {
		key, err := readSecretsKey(filepath.Join(cwd, "config", "secrets.yaml"))
		if err != nil {
			return nil, err
		}
		cfg.WeatherAPIKey = key
	}
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY environment variable is not set (set env, .env or config/secrets.yaml weather_api_key)")
	}

	cfg.WeatherAPIURL = strings.TrimSpace(os.Getenv("WEATHER_API_URL"))
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = strings.TrimSpace(fc.WeatherAPI.URL)
	}
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = defaultWeatherAPIURL
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 0)

	cfg.CORS = CORSConfig{
		AllowedOrigins:   orDefault(fc.CORS.AllowedOrigins, defaultCORSOrigins),
		AllowedMethods:   orDefault(fc.CORS.AllowedMethods, defaultCORSMethods),
		AllowedHeaders:   orDefault(fc.CORS.AllowedHeaders, defaultCORSHeaders),
		AllowCredentials: true,
	}
	if fc.CORS.AllowCredentials != nil {
		cfg.CORS.AllowCredentials = *fc.CORS.AllowCredentials
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = 50
	if fc.Health.DegradedErrorPct != nil {
		cfg.DegradedErrorPct = *fc.Health.DegradedErrorPct
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readSecretsKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return strings.TrimSpace(sec.WeatherAPIKey), nil
}

// orDefault returns vals with blank entries removed, or def when nothing is left.
func orDefault(vals, def []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero and negative durations are returned as-is for validate to judge.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	u, err := url.Parse(cfg.WeatherAPIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("weather_api.url must be an absolute http(s) URL, got %q", cfg.WeatherAPIURL)
	}
	if cfg.WeatherAPITimeout < 0 {
		return fmt.Errorf("weather_api.timeout must not be negative")
	}
	if cfg.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must not be negative")
	}
	if cfg.DegradedErrorPct < 0 || cfg.DegradedErrorPct > 100 {
		return fmt.Errorf("health.degraded_error_pct must be between 0 and 100, got %d", cfg.DegradedErrorPct)
	}
	return nil
}
