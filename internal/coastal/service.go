package coastal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/coastal-threat-monitor/internal/observability"
)

// FallbackPolicy names which upstream is tried first when coordinates are known.
type FallbackPolicy string

const (
	// PolicyProviderFirst tries the weather proxy and falls back to the backend.
	PolicyProviderFirst FallbackPolicy = "provider-first"
	// PolicyBackendFirst tries the backend and falls back to the weather proxy.
	PolicyBackendFirst FallbackPolicy = "backend-first"
)

// ParseFallbackPolicy validates a policy name.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch p := FallbackPolicy(s); p {
	case PolicyProviderFirst, PolicyBackendFirst:
		return p, nil
	default:
		return "", fmt.Errorf("unknown fallback policy %q", s)
	}
}

const (
	kindCurrents = "currents"
	kindThreats  = "threats"

	sourceProvider = "provider"
	sourceBackend  = "backend"
)

// Config bundles the collaborators of a Service. Store, Provider and Backend are required.
type Config struct {
	Store     Store
	Provider  WeatherProvider
	Backend   BackendFetcher
	Resolver  *Resolver
	Publisher ThreatPublisher

	Policy       FallbackPolicy
	HistoryLimit int

	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Service orchestrates upstream fetches, normalization and the keyed series cache.
type Service struct {
	store     Store
	provider  WeatherProvider
	backend   BackendFetcher
	resolver  *Resolver
	publisher ThreatPublisher

	policy       FallbackPolicy
	historyLimit int

	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService creates a Service, filling defaults for optional collaborators.
func NewService(cfg Config) *Service {
	s := &Service{
		store:        cfg.Store,
		provider:     cfg.Provider,
		backend:      cfg.Backend,
		resolver:     cfg.Resolver,
		publisher:    cfg.Publisher,
		policy:       cfg.Policy,
		historyLimit: cfg.HistoryLimit,
		clock:        cfg.Clock,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
	if s.resolver == nil {
		s.resolver = NewResolver()
	}
	if s.policy == "" {
		s.policy = PolicyProviderFirst
	}
	if s.historyLimit <= 0 {
		s.historyLimit = DefaultHistoryLimit
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetricsForTesting()
	}
	return s
}

// SeriesKey is the cache key for a request: the station id, or the coordinates when
// no station id is given. Empty means the request names no location at all.
func SeriesKey(stationID string, explicit *Coordinates) string {
	if stationID != "" {
		return stationID
	}
	if explicit != nil {
		return explicit.Key()
	}
	return ""
}

// Resolve exposes the coordinate resolver.
func (s *Service) Resolve(stationID string, explicit *Coordinates) (Coordinates, bool) {
	return s.resolver.Resolve(stationID, explicit)
}

// Stations lists the known station table, ordered by id.
func (s *Service) Stations() []StationCoordinate {
	stations := s.resolver.Stations()
	sort.Slice(stations, func(i, j int) bool { return stations[i].StationID < stations[j].StationID })
	return stations
}

// GetCurrents fetches one tick of currents for a station and merges it into the cache.
func (s *Service) GetCurrents(ctx context.Context, stationID string, explicit *Coordinates) (StationTimeSeries, error) {
	key := SeriesKey(stationID, explicit)
	if key == "" {
		return StationTimeSeries{}, ErrCoordinateUnresolved
	}

	gen := s.store.Begin(key)

	var coords *Coordinates
	if c, ok := s.resolver.Resolve(stationID, explicit); ok {
		coords = &c
	}

	payload, err := s.fetchCurrents(ctx, stationID, coords)
	if err != nil {
		return StationTimeSeries{}, err
	}

	series := NormalizeCurrents(payload, s.clock.Now(), s.historyLimit)
	merged, applied := s.store.MergeIfLatest(key, gen, series)
	if !applied {
		s.metrics.StaleDiscards.WithLabelValues(kindCurrents).Inc()
		s.logger.Info("discarding superseded currents result", "key", key, "source", series.Source)
		return merged, ErrSuperseded
	}

	s.metrics.SeriesLength.WithLabelValues(key).Set(float64(len(merged.Observations)))
	s.logger.Debug("currents merged", "key", key, "source", series.Source, "observations", len(merged.Observations))
	return merged, nil
}

func (s *Service) fetchCurrents(ctx context.Context, stationID string, coords *Coordinates) (CurrentsPayload, error) {
	if coords == nil {
		return s.currentsFromBackend(ctx, stationID, nil)
	}

	if s.policy == PolicyBackendFirst && stationID != "" {
		payload, err := s.currentsFromBackend(ctx, stationID, coords)
		if err == nil {
			return payload, nil
		}
		s.metrics.Fallbacks.WithLabelValues(kindCurrents).Inc()
		s.logger.Warn("backend currents failed, trying weather provider", "station", stationID, "error", err)

		payload, perr := s.currentsFromProvider(ctx, stationID, *coords)
		if perr == nil {
			return payload, nil
		}
		s.logger.Warn("weather provider currents failed", "station", stationID, "error", perr)
		return CurrentsPayload{}, err
	}

	payload, err := s.currentsFromProvider(ctx, stationID, *coords)
	if err == nil {
		return payload, nil
	}
	if stationID == "" {
		// Coordinate-only requests have no backend endpoint to fall back to.
		return CurrentsPayload{}, err
	}
	s.metrics.Fallbacks.WithLabelValues(kindCurrents).Inc()
	s.logger.Warn("weather provider failed, falling back to backend", "station", stationID, "error", err)
	return s.currentsFromBackend(ctx, stationID, coords)
}

func (s *Service) currentsFromProvider(ctx context.Context, stationID string, coords Coordinates) (CurrentsPayload, error) {
	start := s.clock.Now()
	snap, err := s.provider.FetchWeather(ctx, coords)
	s.observe(sourceProvider, kindCurrents, start, err)
	if err != nil {
		return CurrentsPayload{}, err
	}
	return CurrentsPayload{
		Source:    SourceProviderFallback,
		StationID: stationID,
		Coords:    &coords,
		Weather:   &snap,
	}, nil
}

func (s *Service) currentsFromBackend(ctx context.Context, stationID string, coords *Coordinates) (CurrentsPayload, error) {
	start := s.clock.Now()
	series, err := s.backend.FetchCurrents(ctx, stationID)
	s.observe(sourceBackend, kindCurrents, start, err)
	if err != nil {
		return CurrentsPayload{}, err
	}
	return CurrentsPayload{
		Source:    series.Source,
		StationID: stationID,
		Coords:    coords,
		Series:    &series,
	}, nil
}

// GetThreatsForStation resolves a station (or explicit coordinates) and assesses threats there.
func (s *Service) GetThreatsForStation(ctx context.Context, stationID string, explicit *Coordinates) (ThreatAssessment, error) {
	coords, ok := s.resolver.Resolve(stationID, explicit)
	if !ok {
		return ThreatAssessment{}, fmt.Errorf("station %q: %w", stationID, ErrCoordinateUnresolved)
	}
	return s.GetThreats(ctx, coords)
}

// GetThreats produces a fresh assessment for coords. It replaces the stored one
// unless a newer assessment was stored while this one was in flight.
func (s *Service) GetThreats(ctx context.Context, coords Coordinates) (ThreatAssessment, error) {
	gen := s.store.BeginAssessment()

	a, err := s.fetchThreats(ctx, coords)
	if err != nil {
		return ThreatAssessment{}, err
	}

	if !s.store.SetAssessmentIfLatest(gen, a) {
		// A newer assessment is already stored; the caller still gets its own result.
		s.metrics.StaleDiscards.WithLabelValues(kindThreats).Inc()
		s.logger.Info("newer threat assessment already stored, not replacing it", "coords", coords.Key(), "source", a.Source)
		return a, nil
	}

	for _, t := range a.Threats {
		s.metrics.ThreatEvents.WithLabelValues(string(t.Type)).Inc()
	}
	s.publish(ctx, a)
	return a, nil
}

func (s *Service) fetchThreats(ctx context.Context, coords Coordinates) (ThreatAssessment, error) {
	if s.policy == PolicyBackendFirst {
		a, err := s.threatsFromBackend(ctx, coords)
		if err == nil {
			return a, nil
		}
		s.metrics.Fallbacks.WithLabelValues(kindThreats).Inc()
		s.logger.Warn("backend threats failed, trying weather provider", "coords", coords.Key(), "error", err)

		a, perr := s.threatsFromProvider(ctx, coords)
		if perr == nil {
			return a, nil
		}
		s.logger.Warn("weather provider threats failed", "coords", coords.Key(), "error", perr)
		return ThreatAssessment{}, err
	}

	a, err := s.threatsFromProvider(ctx, coords)
	if err == nil {
		return a, nil
	}
	s.metrics.Fallbacks.WithLabelValues(kindThreats).Inc()
	s.logger.Warn("weather provider failed, falling back to backend", "coords", coords.Key(), "error", err)
	return s.threatsFromBackend(ctx, coords)
}

func (s *Service) threatsFromProvider(ctx context.Context, coords Coordinates) (ThreatAssessment, error) {
	start := s.clock.Now()
	snap, err := s.provider.FetchWeather(ctx, coords)
	s.observe(sourceProvider, kindThreats, start, err)
	if err != nil {
		return ThreatAssessment{}, err
	}

	missing := MissingInputs(snap)
	return ThreatAssessment{
		Source:        SourceProviderFallback,
		Coords:        coords,
		FetchedAt:     s.clock.Now().UTC(),
		Weather:       snap,
		Threats:       EvaluateThreats(snap),
		LowConfidence: len(missing) > 0,
		MissingInputs: missing,
	}, nil
}

func (s *Service) threatsFromBackend(ctx context.Context, coords Coordinates) (ThreatAssessment, error) {
	start := s.clock.Now()
	a, err := s.backend.FetchThreats(ctx, coords)
	s.observe(sourceBackend, kindThreats, start, err)
	if err != nil {
		return ThreatAssessment{}, err
	}

	if a.Source == "" {
		a.Source = SourceBackend
	}
	if a.Coords == (Coordinates{}) {
		a.Coords = coords
	}
	if a.FetchedAt.IsZero() {
		a.FetchedAt = s.clock.Now().UTC()
	}
	if a.Threats == nil {
		a.Threats = EvaluateThreats(a.Weather)
		a.MissingInputs = MissingInputs(a.Weather)
		a.LowConfidence = len(a.MissingInputs) > 0
	}
	return a, nil
}

func (s *Service) publish(ctx context.Context, a ThreatAssessment) {
	if s.publisher == nil || len(a.Threats) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, a); err != nil {
		s.logger.Warn("publishing threat alert failed", "coords", a.Coords.Key(), "error", err)
		return
	}
	s.metrics.AlertsPublished.Inc()
}

func (s *Service) observe(source, kind string, start time.Time, err error) {
	outcome := "success"
	switch {
	case errors.Is(err, ErrTimeout):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	s.metrics.UpstreamRequests.WithLabelValues(source, kind, outcome).Inc()
	s.metrics.UpstreamDuration.WithLabelValues(source).Observe(s.clock.Since(start).Seconds())
}

// Series returns the cached series for a key.
func (s *Service) Series(key string) (StationTimeSeries, error) {
	return s.store.Get(key)
}

// CachedKeys lists the keys that currently hold a series.
func (s *Service) CachedKeys() []string {
	return s.store.Keys()
}

// LatestAssessment returns the stored threat assessment.
func (s *Service) LatestAssessment() (ThreatAssessment, error) {
	return s.store.LatestAssessment()
}

// ClearStation drops the cached series for one key. In-flight results for it are discarded.
func (s *Service) ClearStation(key string) {
	s.store.Clear(key)
	s.metrics.SeriesLength.DeleteLabelValues(key)
}

// ClearAll drops every cached series and the stored assessment.
func (s *Service) ClearAll() {
	s.store.ClearAll()
	s.metrics.SeriesLength.Reset()
}

// LiveStats summarizes the newest observation for dashboard display.
type LiveStats struct {
	Station          string     `json:"station"`
	Source           string     `json:"source"`
	SpeedKnots       *float64   `json:"speedKnots"`
	DirectionDegrees *float64   `json:"directionDegrees"`
	DirectionText    string     `json:"directionText"`
	LastUpdate       *time.Time `json:"lastUpdate"`
	Observations     int        `json:"observations"`
}

// LiveStats reads the cached series for key.
func (s *Service) LiveStats(key string) (LiveStats, error) {
	series, err := s.store.Get(key)
	if err != nil {
		return LiveStats{}, err
	}

	stats := LiveStats{
		Station:       series.StationInfo.Name,
		Source:        series.Source,
		DirectionText: "N/A",
		Observations:  len(series.Observations),
	}
	if stats.Station == "" {
		stats.Station = key
	}
	latest, ok := series.Latest()
	if !ok {
		return stats, nil
	}
	stats.SpeedKnots = latest.SpeedKnots
	stats.DirectionDegrees = latest.DirectionDegrees
	if latest.DirectionDegrees != nil {
		stats.DirectionText = CompassPoint(*latest.DirectionDegrees)
	}
	ts := latest.Timestamp
	stats.LastUpdate = &ts
	return stats, nil
}
