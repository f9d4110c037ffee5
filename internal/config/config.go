package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/coastal-threat-monitor/internal/coastal"
)

// minRefreshInterval matches the scheduler's minute granularity.
const minRefreshInterval = time.Minute

type AppConfig struct {
	Port      string
	LogLevel  string
	LogFormat string

	WeatherProxyURL   string
	BackendURL        string
	OpenWeatherAPIKey string

	// Outbound call budget shared by every upstream client.
	OutboundTimeout    time.Duration
	OutboundMaxRetries int

	FallbackPolicy coastal.FallbackPolicy
	HistoryLimit   int

	// RefreshInterval controls how often monitored stations are refreshed.
	RefreshInterval   time.Duration
	MonitoredStations []string
	StationsFile      string
	Stations          []coastal.StationCoordinate

	GoogleGeocoderAPIKey string

	KafkaBrokers      []string
	ThreatAlertsTopic string

	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment, with an optional .env file.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:                 getenvDefault("PORT", "8080"),
		LogLevel:             getenvDefault("LOG_LEVEL", "info"),
		LogFormat:            getenvDefault("LOG_FORMAT", "json"),

		BackendURL:           getenvDefault("BACKEND_URL", "http://localhost:8000"),
		OpenWeatherAPIKey:    os.Getenv("OPENWEATHER_API_KEY"),
		MonitoredStations:    splitList(getenvDefault("MONITORED_STATIONS", "cb0201")),
		StationsFile:         os.Getenv("STATIONS_FILE"),
		GoogleGeocoderAPIKey: os.Getenv("GOOGLE_GEOCODER_API_KEY"),
		KafkaBrokers:         splitList(os.Getenv("KAFKA_BROKERS")),
		ThreatAlertsTopic:    getenvDefault("THREAT_ALERTS_TOPIC", "coastal-threat-alerts"),
	}

	// The proxy route is served by this process unless pointed elsewhere.
	cfg.WeatherProxyURL = getenvDefault("WEATHER_PROXY_URL", "http://localhost:"+cfg.Port)

	var err error
	if cfg.OutboundTimeout, err = getenvDuration("OUTBOUND_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.OutboundMaxRetries, err = getenvInt("OUTBOUND_MAX_RETRIES", 0); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit, err = getenvInt("HISTORY_LIMIT", coastal.DefaultHistoryLimit); err != nil {
		return nil, err
	}
	if cfg.FallbackPolicy, err = coastal.ParseFallbackPolicy(getenvDefault("FALLBACK_POLICY", string(coastal.PolicyProviderFirst))); err != nil {
		return nil, fmt.Errorf("invalid FALLBACK_POLICY: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.StationsFile != "" {
		stations, err := LoadStations(cfg.StationsFile)
		if err != nil {
			return nil, err
		}
		cfg.Stations = stations
	}

	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch {
	case c.HistoryLimit <= 0:
		return errors.New("HISTORY_LIMIT must be positive")
	case c.OutboundTimeout <= 0:
		return errors.New("OUTBOUND_TIMEOUT must be positive")
	case c.OutboundMaxRetries < 0:
		return errors.New("OUTBOUND_MAX_RETRIES must not be negative")
	case c.RefreshInterval < minRefreshInterval:
		return fmt.Errorf("REFRESH_INTERVAL must be at least %s", minRefreshInterval)
	case c.ShutdownTimeout <= 0:
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	case c.LogFormat != "json" && c.LogFormat != "text":
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// AlertsEnabled reports whether threat alerts should be published.
func (c *AppConfig) AlertsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
