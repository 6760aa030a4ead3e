package domain

import (
	"strconv"
	"strings"
	"time"
)

// MissingThreshold is the value at or below which KMA readings are gaps.
const MissingThreshold = -900.0

// Filler values used when every weather source has failed.
const (
	FillerAirTemp   = 22.0
	FillerWindSpeed = 3.0
)

// Required weather fields. A snapshot missing either keeps the chain going.
const (
	FieldAirTemp   = "airTemp"
	FieldWindSpeed = "windSpeed"
)

// Sky is the KMA SKY category.
type Sky string

const (
	SkyClear        Sky = "clear"
	SkyMostlyCloudy Sky = "mostly_cloudy"
	SkyOvercast     Sky = "overcast"
)

// ParseSky maps a SKY code (1, 3, 4) to its label.
func ParseSky(code string) (Sky, bool) {
	switch normalizeCode(code) {
	case "1":
		return SkyClear, true
	case "3":
		return SkyMostlyCloudy, true
	case "4":
		return SkyOvercast, true
	}
	return "", false
}

// Precip is the KMA PTY category.
type Precip string

const (
	PrecipNone        Precip = "none"
	PrecipRain        Precip = "rain"
	PrecipRainSnow    Precip = "rain_snow"
	PrecipSnow        Precip = "snow"
	PrecipShower      Precip = "shower"
	PrecipDrizzle     Precip = "drizzle"
	PrecipDrizzleSnow Precip = "drizzle_snow"
	PrecipSnowFlurry  Precip = "snow_flurry"
)

var precipCodes = [...]Precip{
	PrecipNone, PrecipRain, PrecipRainSnow, PrecipSnow,
	PrecipShower, PrecipDrizzle, PrecipDrizzleSnow, PrecipSnowFlurry,
}

// ParsePrecip maps a PTY code (0..7) to its label.
func ParsePrecip(code string) (Precip, bool) {
	n, err := strconv.Atoi(normalizeCode(code))
	if err != nil || n < 0 || n >= len(precipCodes) {
		return "", false
	}
	return precipCodes[n], true
}

// "1.0" and " 1" are both seen in the wild.
func normalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if f, err := strconv.ParseFloat(code, 64); err == nil && f == float64(int(f)) {
		return strconv.Itoa(int(f))
	}
	return code
}

// ParseReading parses a numeric upstream value. Empty, unparsable and
// sentinel values are reported as absent.
func ParseReading(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || !finite(f) || f <= MissingThreshold {
		return 0, false
	}
	return f, true
}

// WindSource records where the reported wind speed came from.
type WindSource string

const (
	WindFromForecast      WindSource = "forecast"
	WindFromNowcast       WindSource = "nowcast"
	WindFromUltraForecast WindSource = "ultra_forecast"
	WindFromNeighborCell  WindSource = "neighbor_cell"
	WindFromBuoy          WindSource = "buoy"
	WindFromFiller        WindSource = "filler"
)

// CellOffset is the distance in cells from the requested cell to the one a
// value was taken from.
type CellOffset struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// WeatherSnapshot is the merged weather at a grid cell.
type WeatherSnapshot struct {
	AirTemp        *float64    `json:"airTemp,omitempty"`
	Sky            Sky         `json:"sky,omitempty"`
	PrecipType     Precip      `json:"precipType,omitempty"`
	WindSpeed      *float64    `json:"windSpeed,omitempty"`
	WindSource     WindSource  `json:"windSource,omitempty"`
	WindCellOffset *CellOffset `json:"windCellOffset,omitempty"`
	Sampled        bool        `json:"sampled"`
	SampledFields  []string    `json:"sampledFields,omitempty"`
	SourceDegraded bool        `json:"sourceDegraded"`
}

// Missing lists the required fields that are still absent.
func (w WeatherSnapshot) Missing() []string {
	var out []string
	if w.AirTemp == nil {
		out = append(out, FieldAirTemp)
	}
	if w.WindSpeed == nil {
		out = append(out, FieldWindSpeed)
	}
	return out
}

// Complete reports whether every required field is present.
func (w WeatherSnapshot) Complete() bool {
	return w.AirTemp != nil && w.WindSpeed != nil
}

// Empty reports whether the snapshot carries no value at all.
func (w WeatherSnapshot) Empty() bool {
	return w.AirTemp == nil && w.WindSpeed == nil && w.Sky == "" && w.PrecipType == ""
}

// MarkSampled flags field as filler.
func (w *WeatherSnapshot) MarkSampled(field string) {
	for _, f := range w.SampledFields {
		if f == field {
			return
		}
	}
	w.SampledFields = append(w.SampledFields, field)
	w.Sampled = true
}

// UnmarkSampled clears the filler flag for field after it was replaced by a
// real value.
func (w *WeatherSnapshot) UnmarkSampled(field string) {
	kept := w.SampledFields[:0]
	for _, f := range w.SampledFields {
		if f != field {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	w.SampledFields = kept
	w.Sampled = len(kept) > 0
}

// IsSampled reports whether field holds a filler value.
func (w WeatherSnapshot) IsSampled(field string) bool {
	for _, f := range w.SampledFields {
		if f == field {
			return true
		}
	}
	return false
}

// OceanSnapshot is the latest buoy observation.
type OceanSnapshot struct {
	WaterTemp        *float64 `json:"waterTemp,omitempty"`
	WaveHeight       *float64 `json:"waveHeight,omitempty"`
	CurrentSpeed     *float64 `json:"currentSpeed,omitempty"`
	CurrentDirection *float64 `json:"currentDirection,omitempty"`
	WindSpeed        *float64 `json:"windSpeed,omitempty"`
	WindDirection    *float64 `json:"windDirection,omitempty"`
	StationName      string   `json:"stationName,omitempty"`
	StationCode      string   `json:"stationCode,omitempty"`
	ObservedAt       string   `json:"observedAt,omitempty"`
}

// HasMeasurement reports whether at least one numeric field is present.
func (o OceanSnapshot) HasMeasurement() bool {
	return o.WaterTemp != nil || o.WaveHeight != nil || o.CurrentSpeed != nil ||
		o.CurrentDirection != nil || o.WindSpeed != nil || o.WindDirection != nil
}

// SeaInfoRecord is the aggregated answer for one coordinate.
type SeaInfoRecord struct {
	Coordinate      Coordinate      `json:"coordinate"`
	Grid            GridCell        `json:"grid"`
	NearestStation  *Station        `json:"nearestStation,omitempty"`
	NearestBeach    *Station        `json:"nearestBeach,omitempty"`
	Weather         WeatherSnapshot `json:"weather"`
	WeatherError    string          `json:"weatherError,omitempty"`
	Ocean           *OceanSnapshot  `json:"ocean,omitempty"`
	OceanError      string          `json:"oceanError,omitempty"`
	Tide            []TideEvent     `json:"tide"`
	TideError       string          `json:"tideError,omitempty"`
	Cached          bool            `json:"cached"`
	UsingSampleData bool            `json:"usingSampleData"`
	Error           string          `json:"error,omitempty"`
	GeneratedAt     time.Time       `json:"generatedAt"`
}

// SampleRecord is a fixed record for demos and clients without a location.
// It is clearly marked and never comes from an upstream call.
func SampleRecord(now time.Time) SeaInfoRecord {
	day := now.In(KST)
	at := func(h, m int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, KST)
	}
	busan := Station{Code: "DT_0005", Name: "부산 (샘플 데이터)", Lat: 35.1, Lon: 129.05}
	return SeaInfoRecord{
		Coordinate:     busan.Coordinate(),
		Grid:           GridCell{X: 97, Y: 74},
		NearestStation: &busan,
		Weather: WeatherSnapshot{
			AirTemp:    Float64(22),
			Sky:        SkyClear,
			PrecipType: PrecipNone,
			WindSpeed:  Float64(3.5),
			WindSource: WindFromFiller,
			Sampled:    true,
		},
		Ocean: &OceanSnapshot{
			WaterTemp:    Float64(20),
			WaveHeight:   Float64(0.5),
			CurrentSpeed: Float64(0.4),
		},
		Tide: []TideEvent{
			{Kind: TideHigh, Time: at(4, 30), Level: 720},
			{Kind: TideLow, Time: at(11, 0), Level: 150},
		},
		UsingSampleData: true,
		GeneratedAt:     now,
	}
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}
