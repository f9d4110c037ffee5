package coastal

import (
	"fmt"

	"github.com/i474232898/coastal-threat-monitor/internal/common"
)

// Thresholds for the threat heuristics.
const (
	ExtremeWindMS = 20.0
	HighWindMS    = 10.0
	HeavyRainMM   = 20.0
	RainMM        = 2.0
)

// EvaluateThreats derives threat events from a snapshot, always in wind, rain,
// thunderstorm order. Missing inputs count as zero.
func EvaluateThreats(snap WeatherSnapshot) []ThreatEvent {
	threats := make([]ThreatEvent, 0, 3)

	wind := windSpeed(snap)
	switch {
	case wind >= ExtremeWindMS:
		threats = append(threats, ThreatEvent{
			Type:     ThreatExtremeWind,
			Severity: SeverityHigh,
			Detail:   fmt.Sprintf("Wind speed %.1f m/s", wind),
		})
	case wind >= HighWindMS:
		threats = append(threats, ThreatEvent{
			Type:     ThreatHighWind,
			Severity: SeverityMedium,
			Detail:   fmt.Sprintf("Wind speed %.1f m/s", wind),
		})
	}

	rain := precipitation(snap)
	switch {
	case rain >= HeavyRainMM:
		threats = append(threats, ThreatEvent{
			Type:     ThreatHeavyRain,
			Severity: SeverityHigh,
			Detail:   fmt.Sprintf("Rainfall %.1f mm", rain),
		})
	case rain >= RainMM:
		threats = append(threats, ThreatEvent{
			Type:     ThreatRain,
			Severity: SeverityMedium,
			Detail:   fmt.Sprintf("Rainfall %.1f mm", rain),
		})
	}

	if cond := primaryCondition(snap); common.HasAnyFold(cond, "thunderstorm") {
		threats = append(threats, ThreatEvent{
			Type:     ThreatThunderstorm,
			Severity: SeverityMedium,
			Detail:   fmt.Sprintf("Conditions: %s", cond),
		})
	}

	return threats
}

// MissingInputs lists the key inputs that were absent from the snapshot. Rain is not
// listed: providers omit it when it is not raining.
func MissingInputs(snap WeatherSnapshot) []string {
	var missing []string
	if snap.Wind == nil || snap.Wind.Speed == nil {
		missing = append(missing, "wind")
	}
	if primaryCondition(snap) == "" {
		missing = append(missing, "weather")
	}
	return missing
}

func windSpeed(snap WeatherSnapshot) float64 {
	if snap.Wind == nil || snap.Wind.Speed == nil {
		return 0
	}
	return *snap.Wind.Speed
}

// precipitation prefers the 1h total and falls back to 3h when 1h is absent or zero.
func precipitation(snap WeatherSnapshot) float64 {
	if snap.Rain == nil {
		return 0
	}
	if snap.Rain.OneHour != nil && *snap.Rain.OneHour != 0 {
		return *snap.Rain.OneHour
	}
	if snap.Rain.ThreeHour != nil {
		return *snap.Rain.ThreeHour
	}
	return 0
}

func primaryCondition(snap WeatherSnapshot) string {
	if len(snap.Weather) == 0 {
		return ""
	}
	return snap.Weather[0].Main
}
