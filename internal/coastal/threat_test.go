package coastal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func windSnap(speed float64) WeatherSnapshot {
	return WeatherSnapshot{Wind: &Wind{Speed: ptr(speed)}}
}

func rainSnap(oneHour float64) WeatherSnapshot {
	return WeatherSnapshot{Rain: &Rain{OneHour: ptr(oneHour)}}
}

func types(events []ThreatEvent) []ThreatType {
	out := make([]ThreatType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestEvaluateThreats_WindBoundaries(t *testing.T) {
	cases := []struct {
		speed    float64
		want     []ThreatType
		severity Severity
	}{
		{9.99, []ThreatType{}, ""},
		{10.0, []ThreatType{ThreatHighWind}, SeverityMedium},
		{19.99, []ThreatType{ThreatHighWind}, SeverityMedium},
		{20.0, []ThreatType{ThreatExtremeWind}, SeverityHigh},
	}
	for _, tc := range cases {
		got := EvaluateThreats(windSnap(tc.speed))
		assert.Equal(t, tc.want, types(got), "speed=%v", tc.speed)
		if len(got) == 1 {
			assert.Equal(t, tc.severity, got[0].Severity)
		}
	}
}

func TestEvaluateThreats_RainBoundaries(t *testing.T) {
	cases := []struct {
		mm       float64
		want     []ThreatType
		severity Severity
	}{
		{1.99, []ThreatType{}, ""},
		{2.0, []ThreatType{ThreatRain}, SeverityMedium},
		{19.99, []ThreatType{ThreatRain}, SeverityMedium},
		{20.0, []ThreatType{ThreatHeavyRain}, SeverityHigh},
	}
	for _, tc := range cases {
		got := EvaluateThreats(rainSnap(tc.mm))
		assert.Equal(t, tc.want, types(got), "rain=%v", tc.mm)
		if len(got) == 1 {
			assert.Equal(t, tc.severity, got[0].Severity)
		}
	}
}

func TestEvaluateThreats_RainFallsBackToThreeHour(t *testing.T) {
	got := EvaluateThreats(WeatherSnapshot{Rain: &Rain{ThreeHour: ptr(25)}})
	assert.Equal(t, []ThreatType{ThreatHeavyRain}, types(got))

	got = EvaluateThreats(WeatherSnapshot{Rain: &Rain{OneHour: ptr(0), ThreeHour: ptr(3)}})
	assert.Equal(t, []ThreatType{ThreatRain}, types(got))

	got = EvaluateThreats(WeatherSnapshot{Rain: &Rain{OneHour: ptr(1), ThreeHour: ptr(30)}})
	assert.Empty(t, got, "1h wins when present")
}

func TestEvaluateThreats_ThunderstormCaseInsensitive(t *testing.T) {
	for _, main := range []string{"Thunderstorm", "THUNDERSTORM", "thunderstorm"} {
		got := EvaluateThreats(WeatherSnapshot{Weather: []WeatherCondition{{Main: main}}})
		require.Len(t, got, 1, main)
		assert.Equal(t, ThreatThunderstorm, got[0].Type)
		assert.Equal(t, SeverityMedium, got[0].Severity)
	}
}

func TestEvaluateThreats_AllThreeInOrder(t *testing.T) {
	snap := WeatherSnapshot{
		Wind:    &Wind{Speed: ptr(22)},
		Rain:    &Rain{OneHour: ptr(25)},
		Weather: []WeatherCondition{{Main: "Thunderstorm"}},
	}

	got := EvaluateThreats(snap)
	require.Len(t, got, 3)
	assert.Equal(t, ThreatEvent{Type: ThreatExtremeWind, Severity: SeverityHigh, Detail: "Wind speed 22.0 m/s"}, got[0])
	assert.Equal(t, ThreatEvent{Type: ThreatHeavyRain, Severity: SeverityHigh, Detail: "Rainfall 25.0 mm"}, got[1])
	assert.Equal(t, ThreatThunderstorm, got[2].Type)
	assert.Equal(t, SeverityMedium, got[2].Severity)
}

func TestEvaluateThreats_CalmConditions(t *testing.T) {
	snap := WeatherSnapshot{
		Wind:    &Wind{Speed: ptr(5.14), Deg: ptr(270)},
		Weather: []WeatherCondition{{Main: "Clear"}},
	}
	got := EvaluateThreats(snap)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEvaluateThreats_EmptySnapshot(t *testing.T) {
	assert.Empty(t, EvaluateThreats(WeatherSnapshot{}))
	assert.Empty(t, EvaluateThreats(WeatherSnapshot{Wind: &Wind{}, Rain: &Rain{}}))
}

func TestMissingInputs(t *testing.T) {
	assert.Equal(t, []string{"wind", "weather"}, MissingInputs(WeatherSnapshot{}))
	assert.Equal(t, []string{"weather"}, MissingInputs(windSnap(3)))
	assert.Empty(t, MissingInputs(WeatherSnapshot{
		Wind:    &Wind{Speed: ptr(3)},
		Weather: []WeatherCondition{{Main: "Clouds"}},
	}))
}
