package coastal

import (
	"math"
	"time"
)

const msToKnots = 1.943844

// KnotsFromMS converts m/s to knots rounded to two decimals.
func KnotsFromMS(ms float64) float64 {
	return math.Round(ms*msToKnots*100) / 100
}

// CurrentsPayload is what either upstream path produced before normalization.
// Provider payloads carry Weather; backend payloads carry Series.
type CurrentsPayload struct {
	Source    string
	StationID string
	Coords    *Coordinates
	Weather   *WeatherSnapshot
	Series    *StationTimeSeries
}

// NormalizeObservation turns a provider snapshot into an observation stamped with now.
// The provider reports no observation time, so the fetch time stands in for it.
func NormalizeObservation(snap WeatherSnapshot, now time.Time) Observation {
	now = now.UTC()
	raw := snap
	obs := Observation{
		Timestamp: now,
		Time:      now,
		Raw:       &raw,
	}
	if snap.Wind != nil {
		if snap.Wind.Speed != nil {
			ms := *snap.Wind.Speed
			kn := KnotsFromMS(ms)
			obs.SpeedMS = &ms
			obs.SpeedKnots = &kn
		}
		if snap.Wind.Deg != nil {
			deg := *snap.Wind.Deg
			obs.DirectionDegrees = &deg
		}
	}
	return obs
}

// NormalizeCurrents builds the canonical series for one fetch. Backend series pass
// through with observations truncated to the newest limit entries.
func NormalizeCurrents(p CurrentsPayload, now time.Time, limit int) StationTimeSeries {
	if p.Source == SourceProviderFallback || p.Series == nil {
		var snap WeatherSnapshot
		if p.Weather != nil {
			snap = *p.Weather
		}
		name := snap.Name
		if name == "" {
			name = p.StationID
		}
		raw := snap
		return StationTimeSeries{
			Source:       SourceProviderFallback,
			StationInfo:  StationInfo{Name: name, Coords: p.Coords},
			Observations: []Observation{NormalizeObservation(snap, now)},
			Raw:          &raw,
		}
	}

	out := *p.Series
	if out.Source == "" {
		out.Source = SourceBackend
	}
	if out.StationInfo.Name == "" {
		out.StationInfo.Name = p.StationID
	}
	if out.StationInfo.Coords == nil {
		out.StationInfo.Coords = p.Coords
	}
	out.Observations = Tail(out.Observations, limit)
	return out
}

// Tail returns a copy of the last limit observations. limit <= 0 keeps everything.
func Tail(obs []Observation, limit int) []Observation {
	if limit > 0 && len(obs) > limit {
		obs = obs[len(obs)-limit:]
	}
	out := make([]Observation, len(obs))
	copy(out, obs)
	return out
}

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// CompassPoint formats degrees as one of 16 compass points.
func CompassPoint(deg float64) string {
	idx := int(math.Round(deg/22.5)) % 16
	if idx < 0 {
		idx += 16
	}
	return compassPoints[idx]
}
