package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/coastal-threat-monitor/internal/coastal"
)

// BackendClient implements coastal.BackendFetcher against the application backend.
// Every failure is reported as *coastal.BackendUnavailableError.
type BackendClient struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewBackendClient(cfg HTTPClientConfig, baseURL string) *BackendClient {
	return &BackendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: cfg,
		circuit: newCircuitBreaker("backend"),
	}
}

// currentsResponse accepts both a bare series and one wrapped in "data".
type currentsResponse struct {
	coastal.StationTimeSeries
	Data *coastal.StationTimeSeries `json:"data,omitempty"`
}

// FetchCurrents calls GET /api/noaa/currents/:stationId.
func (b *BackendClient) FetchCurrents(ctx context.Context, stationID string) (coastal.StationTimeSeries, error) {
	endpoint := "/api/noaa/currents/" + url.PathEscape(stationID)
	if stationID == "" {
		return coastal.StationTimeSeries{}, &coastal.BackendUnavailableError{
			Endpoint: endpoint,
			Err:      errors.New("station id is required"),
		}
	}

	var resp currentsResponse
	if err := b.get(ctx, endpoint, nil, &resp); err != nil {
		return coastal.StationTimeSeries{}, err
	}
	if resp.Data != nil {
		return *resp.Data, nil
	}
	return resp.StationTimeSeries, nil
}

// FetchThreats calls GET /api/threats/current?lat=&lon=.
func (b *BackendClient) FetchThreats(ctx context.Context, coords coastal.Coordinates) (coastal.ThreatAssessment, error) {
	const endpoint = "/api/threats/current"
	if !finite(coords.Lat) || !finite(coords.Lon) {
		return coastal.ThreatAssessment{}, &coastal.BackendUnavailableError{Endpoint: endpoint, Err: coastal.ErrInvalidCoordinates}
	}

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))

	var resp struct {
		Data *coastal.ThreatAssessment `json:"data"`
	}
	if err := b.get(ctx, endpoint, values, &resp); err != nil {
		return coastal.ThreatAssessment{}, err
	}
	if resp.Data == nil {
		return coastal.ThreatAssessment{}, &coastal.BackendUnavailableError{
			Endpoint: endpoint,
			Err:      errors.New("response has no data"),
		}
	}
	return *resp.Data, nil
}

func (b *BackendClient) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		u := b.baseURL + endpoint
		if len(query) > 0 {
			u = fmt.Sprintf("%s?%s", u, query.Encode())
		}
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	err := getJSON(ctx, b.httpCfg, b.circuit, buildRequest, out)
	if err == nil {
		return nil
	}

	unavailable := &coastal.BackendUnavailableError{Endpoint: endpoint, Err: err}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		unavailable.Status = statusErr.Code
	}
	return unavailable
}
