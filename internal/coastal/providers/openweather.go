package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/coastal-threat-monitor/internal/coastal"
)

// ErrNotConfigured is returned when no OpenWeatherMap key is set.
var ErrNotConfigured = errors.New("OpenWeather API not configured on server")

const defaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeatherProvider calls OpenWeatherMap directly. It backs the weather proxy route.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(cfg HTTPClientConfig, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: defaultOpenWeatherURL,
		httpCfg: cfg,
		circuit: newCircuitBreaker("openweather"),
	}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (p *OpenWeatherProvider) WithBaseURL(u string) *OpenWeatherProvider {
	p.baseURL = u
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Configured reports whether an API key is present.
func (p *OpenWeatherProvider) Configured() bool {
	return p.apiKey != ""
}

// FetchWeather returns the current weather at coords in metric units.
func (p *OpenWeatherProvider) FetchWeather(ctx context.Context, coords coastal.Coordinates) (coastal.WeatherSnapshot, error) {
	if !p.Configured() {
		return coastal.WeatherSnapshot{}, ErrNotConfigured
	}
	if !finite(coords.Lat) || !finite(coords.Lon) {
		return coastal.WeatherSnapshot{}, coastal.ErrInvalidCoordinates
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		return http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil)
	}

	var snap coastal.WeatherSnapshot
	err := getJSON(ctx, p.httpCfg, p.circuit, buildRequest, &snap)
	if err == nil {
		return snap, nil
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		var body struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(statusErr.Body, &body)
		return coastal.WeatherSnapshot{}, &coastal.ProviderError{
			Status:  statusErr.Code,
			Message: body.Message,
			Body:    string(statusErr.Body),
		}
	}
	return coastal.WeatherSnapshot{}, err
}
