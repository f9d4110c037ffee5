package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/coastal-threat-monitor/internal/coastal"
)

const statusSuccess = "success"

// ProxyEnvelope is the JSON shape answered by the weather proxy.
type ProxyEnvelope struct {
	Status  string                   `json:"status"`
	Data    *coastal.WeatherSnapshot `json:"data,omitempty"`
	Message string                   `json:"message,omitempty"`
}

// ProxyClient implements coastal.WeatherProvider against the weather proxy, which
// keeps third-party API keys server side.
type ProxyClient struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewProxyClient creates a client for {baseURL}/api/openweather/current.
func NewProxyClient(cfg HTTPClientConfig, baseURL string) *ProxyClient {
	return &ProxyClient{
		name:    "weather-proxy",
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: cfg,
		circuit: newCircuitBreaker("weather-proxy"),
	}
}

func (p *ProxyClient) Name() string {
	return p.name
}

// FetchWeather asks the proxy for the current weather at coords.
func (p *ProxyClient) FetchWeather(ctx context.Context, coords coastal.Coordinates) (coastal.WeatherSnapshot, error) {
	if !finite(coords.Lat) || !finite(coords.Lon) {
		return coastal.WeatherSnapshot{}, coastal.ErrInvalidCoordinates
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
		u := fmt.Sprintf("%s/api/openweather/current?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	var env ProxyEnvelope
	if err := getJSON(ctx, p.httpCfg, p.circuit, buildRequest, &env); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return coastal.WeatherSnapshot{}, &coastal.ProviderError{
				Status:  statusErr.Code,
				Message: envelopeMessage(statusErr.Body),
				Body:    string(statusErr.Body),
			}
		}
		return coastal.WeatherSnapshot{}, err
	}

	if env.Status != statusSuccess {
		msg := env.Message
		if msg == "" {
			msg = "weather provider returned status " + strconv.Quote(env.Status)
		}
		return coastal.WeatherSnapshot{}, &coastal.ProviderError{Status: http.StatusOK, Message: msg}
	}
	if env.Data == nil {
		return coastal.WeatherSnapshot{}, nil
	}
	return *env.Data, nil
}

// envelopeMessage pulls "message" out of an error body when it is a proxy envelope.
func envelopeMessage(body []byte) string {
	var env ProxyEnvelope
	if err := jsonUnmarshal(body, &env); err != nil {
		return ""
	}
	return env.Message
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
