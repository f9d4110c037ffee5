package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/coastal-threat-monitor/internal/coastal"
)

var envKeys = []string{
	"PORT", "LOG_LEVEL", "LOG_FORMAT", "WEATHER_PROXY_URL", "BACKEND_URL", "OPENWEATHER_API_KEY",
	"OUTBOUND_TIMEOUT", "OUTBOUND_MAX_RETRIES", "FALLBACK_POLICY", "HISTORY_LIMIT",
	"REFRESH_INTERVAL", "MONITORED_STATIONS", "STATIONS_FILE", "GOOGLE_GEOCODER_API_KEY",
	"KAFKA_BROKERS", "THREAT_ALERTS_TOPIC", "SHUTDOWN_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "http://localhost:8080", cfg.WeatherProxyURL)
	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	assert.Equal(t, 10*time.Second, cfg.OutboundTimeout)
	assert.Zero(t, cfg.OutboundMaxRetries)
	assert.Equal(t, coastal.PolicyProviderFirst, cfg.FallbackPolicy)
	assert.Equal(t, 1440, cfg.HistoryLimit)
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, []string{"cb0201"}, cfg.MonitoredStations)
	assert.Empty(t, cfg.Stations)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.AlertsEnabled())
	assert.Equal(t, "coastal-threat-alerts", cfg.ThreatAlertsTopic)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("FALLBACK_POLICY", "backend-first")
	t.Setenv("HISTORY_LIMIT", "60")
	t.Setenv("OUTBOUND_TIMEOUT", "3s")
	t.Setenv("OUTBOUND_MAX_RETRIES", "2")
	t.Setenv("MONITORED_STATIONS", " cb0201, cb0102 ,,")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, coastal.PolicyBackendFirst, cfg.FallbackPolicy)
	assert.Equal(t, 60, cfg.HistoryLimit)
	assert.Equal(t, 3*time.Second, cfg.OutboundTimeout)
	assert.Equal(t, 2, cfg.OutboundMaxRetries)
	assert.Equal(t, []string{"cb0201", "cb0102"}, cfg.MonitoredStations)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.AlertsEnabled())
}

func TestFromEnv_ProxyURLFollowsPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9090", cfg.WeatherProxyURL)

	t.Setenv("WEATHER_PROXY_URL", "http://proxy.internal:8080")
	cfg, err = FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://proxy.internal:8080", cfg.WeatherProxyURL)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]struct {
		key, value string
		msg        string
	}{
		"bad duration":      {"OUTBOUND_TIMEOUT", "soon", "OUTBOUND_TIMEOUT"},
		"zero timeout":      {"OUTBOUND_TIMEOUT", "0s", "OUTBOUND_TIMEOUT"},
		"bad int":           {"HISTORY_LIMIT", "lots", "HISTORY_LIMIT"},
		"zero history":      {"HISTORY_LIMIT", "0", "HISTORY_LIMIT"},
		"negative retries":  {"OUTBOUND_MAX_RETRIES", "-1", "OUTBOUND_MAX_RETRIES"},
		"refresh too short": {"REFRESH_INTERVAL", "30s", "REFRESH_INTERVAL"},
		"unknown policy":    {"FALLBACK_POLICY", "random", "FALLBACK_POLICY"},
		"bad log format":    {"LOG_FORMAT", "xml", "LOG_FORMAT"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestFromEnv_StationsFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "stations.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stations:\n  - id: cb0102\n    lat: 37.0\n    lon: -76.3\n"), 0o600))
	t.Setenv("STATIONS_FILE", path)

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Len(t, cfg.Stations, 1)
	assert.Equal(t, coastal.StationCoordinate{StationID: "cb0102", Lat: 37.0, Lon: -76.3}, cfg.Stations[0])
}

func TestFromEnv_MissingStationsFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("STATIONS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := FromEnv()
	require.Error(t, err)
}

func TestParseStations_Validation(t *testing.T) {
	_, err := ParseStations([]byte("stations:\n  - id: x\n    lat: 95\n    lon: 0\n"))
	assert.Error(t, err, "latitude out of range")

	_, err = ParseStations([]byte("stations:\n  - lat: 10\n    lon: 10\n"))
	assert.Error(t, err, "id required")

	_, err = ParseStations([]byte("stations:\n  - id: a\n    lat: 1\n    lon: 1\n  - id: a\n    lat: 2\n    lon: 2\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = ParseStations([]byte("stations: [oops"))
	assert.Error(t, err)

	stations, err := ParseStations([]byte("stations: []\n"))
	require.NoError(t, err)
	assert.Empty(t, stations)
}
