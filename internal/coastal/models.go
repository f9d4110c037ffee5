package coastal

import (
	"fmt"
	"time"
)

// Source tags carried by series and assessments.
const (
	SourceProviderFallback = "openweather-fallback"
	SourceBackend          = "backend"
)

// DefaultHistoryLimit is roughly 24h of observations at 1-minute resolution.
const DefaultHistoryLimit = 1440

// Coordinates is a geographic position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Key returns a stable key for coordinates, used when no station id is given.
func (c Coordinates) Key() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// StationCoordinate is one entry of the static station table.
type StationCoordinate struct {
	StationID string  `json:"stationId" yaml:"id" validate:"required"`
	Lat       float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lon       float64 `json:"lon" yaml:"lon" validate:"gte=-180,lte=180"`
}

// Coordinates returns the position of the station.
func (s StationCoordinate) Coordinates() Coordinates {
	return Coordinates{Lat: s.Lat, Lon: s.Lon}
}

// Wind is the wind block of a weather snapshot. Speed is in m/s.
type Wind struct {
	Speed *float64 `json:"speed,omitempty"`
	Deg   *float64 `json:"deg,omitempty"`
}

// Rain holds precipitation totals in mm.
type Rain struct {
	OneHour   *float64 `json:"1h,omitempty"`
	ThreeHour *float64 `json:"3h,omitempty"`
}

// WeatherCondition is a single condition entry such as "Clear" or "Thunderstorm".
type WeatherCondition struct {
	Main        string `json:"main"`
	Description string `json:"description,omitempty"`
}

// MainReadings mirrors the provider's "main" block.
type MainReadings struct {
	Temp      *float64 `json:"temp,omitempty"`
	FeelsLike *float64 `json:"feels_like,omitempty"`
	TempMin   *float64 `json:"temp_min,omitempty"`
	TempMax   *float64 `json:"temp_max,omitempty"`
	Pressure  *float64 `json:"pressure,omitempty"`
	Humidity  *float64 `json:"humidity,omitempty"`
}

// WeatherSnapshot is the provider-neutral result of a weather query.
// Nil blocks mean the provider did not report them.
type WeatherSnapshot struct {
	Wind    *Wind              `json:"wind"`
	Rain    *Rain              `json:"rain"`
	Weather []WeatherCondition `json:"weather"`
	Main    *MainReadings      `json:"main"`
	Name    string             `json:"name,omitempty"`
}

// Observation is one normalized current/weather reading.
// SpeedKnots is nil exactly when SpeedMS is nil.
type Observation struct {
	Timestamp        time.Time        `json:"timestamp"`
	Time             time.Time        `json:"time"`
	SpeedKnots       *float64         `json:"speed_knots"`
	SpeedMS          *float64         `json:"speed_ms"`
	DirectionDegrees *float64         `json:"direction_degrees"`
	Raw              *WeatherSnapshot `json:"raw,omitempty"`
}

// StationInfo describes where a series was observed.
type StationInfo struct {
	Name   string       `json:"name"`
	Coords *Coordinates `json:"coords"`
}

// StationTimeSeries is the per-station aggregate of observations, oldest first.
type StationTimeSeries struct {
	Source       string           `json:"source"`
	StationInfo  StationInfo      `json:"station_info"`
	Observations []Observation    `json:"observations"`
	Raw          *WeatherSnapshot `json:"raw,omitempty"`
}

// Latest returns the newest observation, if any.
func (s StationTimeSeries) Latest() (Observation, bool) {
	if len(s.Observations) == 0 {
		return Observation{}, false
	}
	return s.Observations[len(s.Observations)-1], true
}

// ThreatType enumerates the hazards the evaluator can raise.
type ThreatType string

const (
	ThreatExtremeWind  ThreatType = "extreme_wind"
	ThreatHighWind     ThreatType = "high_wind"
	ThreatHeavyRain    ThreatType = "heavy_rain"
	ThreatRain         ThreatType = "rain"
	ThreatThunderstorm ThreatType = "thunderstorm"
)

// Severity of a threat event.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// ThreatEvent is a discrete hazard flag derived from a weather snapshot.
type ThreatEvent struct {
	Type     ThreatType `json:"type"`
	Severity Severity   `json:"severity"`
	Detail   string     `json:"detail"`
}

// ThreatAssessment replaces any previous assessment wholesale.
type ThreatAssessment struct {
	Source        string          `json:"source"`
	Coords        Coordinates     `json:"coords"`
	FetchedAt     time.Time       `json:"fetchedAt"`
	Weather       WeatherSnapshot `json:"weather"`
	Threats       []ThreatEvent   `json:"threats"`
	LowConfidence bool            `json:"lowConfidence"`
	MissingInputs []string        `json:"missingInputs,omitempty"`
}
