package khoa

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/couchcryptid/sea-info-service/internal/adapter/upstream"
	"github.com/couchcryptid/sea-info-service/internal/domain"
)

// BuoyClient fetches the latest real-time observation of an ocean buoy.
type BuoyClient struct {
	fetcher *upstream.Fetcher
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// NewBuoyClient creates a buoy observation client.
func NewBuoyClient(fetcher *upstream.Fetcher, baseURL, apiKey string, logger *slog.Logger) *BuoyClient {
	return &BuoyClient{
		fetcher: fetcher,
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger,
	}
}

// Observation returns the most recent reading of station. A reading with no
// numeric measurement is reported as upstream.ErrEmptyPayload.
func (c *BuoyClient) Observation(ctx context.Context, station domain.Station) (domain.OceanSnapshot, error) {
	params := url.Values{
		"serviceKey": {c.apiKey},
		"obsCode":    {station.Code},
		"pageNo":     {"1"},
		"numOfRows":  {"1"},
		"type":       {"json"},
	}

	var snap domain.OceanSnapshot
	err := c.fetcher.Fetch(ctx, upstream.Request{
		Source: SourceBuoy,
		URL:    c.baseURL,
		Params: params,
	}, func(resp upstream.Response) error {
		items, err := upstream.DecodeItems[buoyItem](resp)
		if err != nil {
			return err
		}
		snap = items[0].snapshot(station)
		if !snap.HasMeasurement() {
			return upstream.ErrEmptyPayload
		}
		c.logger.Debug("buoy observation", "station", station.Code, "observed_at", snap.ObservedAt, "format", resp.Format.String())
		return nil
	})
	return snap, err
}

type buoyItem struct {
	StationName upstream.Value `json:"obsvtrNm" xml:"obsvtrNm"`
	ObservedAt  upstream.Value `json:"obsrvnDt" xml:"obsrvnDt"`
	WaveHeight  upstream.Value `json:"wvhgt" xml:"wvhgt"`
	CurrentSpd  upstream.Value `json:"crsp" xml:"crsp"`
	CurrentDir  upstream.Value `json:"crdir" xml:"crdir"`
	WaterTemp   upstream.Value `json:"wtem" xml:"wtem"`
	WindSpeed   upstream.Value `json:"wspd" xml:"wspd"`
	WindDir     upstream.Value `json:"wndrct" xml:"wndrct"`
}

func (it buoyItem) snapshot(station domain.Station) domain.OceanSnapshot {
	name := strings.TrimSpace(string(it.StationName))
	if name == "" {
		name = station.Name
	}
	return domain.OceanSnapshot{
		WaterTemp:        reading(it.WaterTemp),
		WaveHeight:       nonNegative(it.WaveHeight),
		CurrentSpeed:     nonNegative(it.CurrentSpd),
		CurrentDirection: nonNegative(it.CurrentDir),
		WindSpeed:        nonNegative(it.WindSpeed),
		WindDirection:    nonNegative(it.WindDir),
		StationName:      name,
		StationCode:      station.Code,
		ObservedAt:       strings.TrimSpace(string(it.ObservedAt)),
	}
}

func reading(v upstream.Value) *float64 {
	f, ok := domain.ParseReading(string(v))
	if !ok {
		return nil
	}
	return domain.Float64(f)
}

// Speeds, heights and bearings cannot be negative; negative values are gaps.
func nonNegative(v upstream.Value) *float64 {
	f := reading(v)
	if f == nil || *f < 0 {
		return nil
	}
	return f
}
