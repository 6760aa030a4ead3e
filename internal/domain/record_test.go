package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReading(t *testing.T) {
	tests := []struct {
		raw   string
		want  float64
		valid bool
	}{
		{"21.5", 21.5, true},
		{" 3 ", 3, true},
		{"-2.1", -2.1, true},
		{"-899.9", -899.9, true},
		{"-900", 0, false},
		{"-998.9", 0, false},
		{"-999", 0, false},
		{"", 0, false},
		{"강수없음", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseReading(tt.raw)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSky(t *testing.T) {
	for code, want := range map[string]Sky{"1": SkyClear, "3": SkyMostlyCloudy, "4": SkyOvercast, "4.0": SkyOvercast} {
		got, ok := ParseSky(code)
		require.True(t, ok, code)
		assert.Equal(t, want, got)
	}
	_, ok := ParseSky("2")
	assert.False(t, ok)
}

func TestParsePrecip(t *testing.T) {
	got, ok := ParsePrecip("0")
	require.True(t, ok)
	assert.Equal(t, PrecipNone, got)

	got, ok = ParsePrecip("7")
	require.True(t, ok)
	assert.Equal(t, PrecipSnowFlurry, got)

	_, ok = ParsePrecip("8")
	assert.False(t, ok)
	_, ok = ParsePrecip("x")
	assert.False(t, ok)
}

func TestWeatherSnapshot_Sampled(t *testing.T) {
	var w WeatherSnapshot
	assert.Equal(t, []string{FieldAirTemp, FieldWindSpeed}, w.Missing())
	assert.True(t, w.Empty())

	w.AirTemp = Float64(FillerAirTemp)
	w.WindSpeed = Float64(FillerWindSpeed)
	w.MarkSampled(FieldAirTemp)
	w.MarkSampled(FieldWindSpeed)
	w.MarkSampled(FieldWindSpeed)
	assert.True(t, w.Complete())
	assert.True(t, w.Sampled)
	assert.Equal(t, []string{FieldAirTemp, FieldWindSpeed}, w.SampledFields)

	w.UnmarkSampled(FieldWindSpeed)
	assert.True(t, w.Sampled)
	assert.False(t, w.IsSampled(FieldWindSpeed))

	w.UnmarkSampled(FieldAirTemp)
	assert.False(t, w.Sampled)
	assert.Nil(t, w.SampledFields)
}

func TestOceanSnapshot_HasMeasurement(t *testing.T) {
	assert.False(t, OceanSnapshot{StationName: "거제도"}.HasMeasurement())
	assert.True(t, OceanSnapshot{WaveHeight: Float64(0.4)}.HasMeasurement())
}

func TestSeaInfoRecord_JSONOmitsAbsentValues(t *testing.T) {
	rec := SeaInfoRecord{
		Coordinate: Coordinate{Lat: 35.1, Lon: 129.1},
		Weather:    WeatherSnapshot{WindSpeed: Float64(3.4), WindSource: WindFromNowcast},
		TideError:  "upstream rate limit exceeded",
		Tide:       []TideEvent{},
	}

	b, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	weather := m["weather"].(map[string]any)
	assert.NotContains(t, weather, "airTemp")
	assert.Equal(t, 3.4, weather["windSpeed"])
	assert.NotContains(t, m, "ocean")
	assert.NotContains(t, m, "weatherError")
	assert.Equal(t, "upstream rate limit exceeded", m["tideError"])
	assert.Equal(t, []any{}, m["tide"])
}

func TestSampleRecord(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, KST)
	rec := SampleRecord(now)

	assert.True(t, rec.UsingSampleData)
	assert.True(t, rec.Weather.Sampled)
	require.NotNil(t, rec.NearestStation)
	require.Len(t, rec.Tide, 2)
	assert.Equal(t, TideHigh, rec.Tide[0].Kind)
	assert.Equal(t, now, rec.GeneratedAt)
}
