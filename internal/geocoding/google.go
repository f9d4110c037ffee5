// Package geocoding resolves city/country names to coordinates.
package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/coastal-threat-monitor/internal/coastal"
)

// ErrNoAPIKey is returned when the Google geocoder is used without a key.
var ErrNoAPIKey = errors.New("google geocoder api key is not configured")

type lookupFunc func(geocoder.Address) (geocoder.Location, error)

// GoogleGeocoder implements coastal.Geocoder with the Google Geocoding API.
type GoogleGeocoder struct {
	lookup lookupFunc
}

// NewGoogleGeocoder sets the package-wide key of the geocoder library, so only one
// instance should exist per process.
func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{lookup: geocoder.Geocoding}, nil
}

// Geocode looks up city and country. The library call has no context support, so a
// cancelled ctx abandons the call rather than aborting it.
func (g *GoogleGeocoder) Geocode(ctx context.Context, city, country string) (coastal.Coordinates, error) {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	if city == "" {
		return coastal.Coordinates{}, fmt.Errorf("geocode: city is required")
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		loc, err := g.lookup(geocoder.Address{City: city, Country: country})
		done <- result{loc, err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return coastal.Coordinates{}, fmt.Errorf("geocode %s, %s: %w", city, country, coastal.ErrTimeout)
		}
		return coastal.Coordinates{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return coastal.Coordinates{}, fmt.Errorf("geocode %s, %s: %w", city, country, r.err)
		}
		return coastal.Coordinates{Lat: r.loc.Latitude, Lon: r.loc.Longitude}, nil
	}
}
