package coastal

import (
	"context"
)

// WeatherProvider abstracts the weather proxy (the "provider adapter").
type WeatherProvider interface {
	Name() string
	FetchWeather(ctx context.Context, coords Coordinates) (WeatherSnapshot, error)
}

// BackendFetcher abstracts the application's own backend.
type BackendFetcher interface {
	FetchCurrents(ctx context.Context, stationID string) (StationTimeSeries, error)
	FetchThreats(ctx context.Context, coords Coordinates) (ThreatAssessment, error)
}

// Store is the contract of the keyed time-series cache.
// Begin* hands out a generation; a result is only applied if its generation is
// still the latest for the key.
type Store interface {
	Get(key string) (StationTimeSeries, error)
	Begin(key string) uint64
	MergeIfLatest(key string, gen uint64, incoming StationTimeSeries) (StationTimeSeries, bool)
	Clear(key string)
	ClearAll()
	Keys() []string

	BeginAssessment() uint64
	SetAssessmentIfLatest(gen uint64, a ThreatAssessment) bool
	LatestAssessment() (ThreatAssessment, error)
}

// ThreatPublisher forwards assessments that contain threats.
type ThreatPublisher interface {
	Publish(ctx context.Context, a ThreatAssessment) error
}

// Geocoder turns a place name into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, city, country string) (Coordinates, error)
}
