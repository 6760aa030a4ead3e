// Package khoa fetches tide forecasts and buoy observations from the Korea
// Hydrographic and Oceanographic Agency services on data.go.kr.
package khoa

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/sea-info-service/internal/adapter/upstream"
	"github.com/couchcryptid/sea-info-service/internal/domain"
)

// Upstream source labels.
const (
	SourceTide = "khoa_tide"
	SourceBuoy = "khoa_buoy"
)

// TideClient fetches predicted high/low water for a tide station.
type TideClient struct {
	fetcher *upstream.Fetcher
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// NewTideClient creates a tide forecast client.
func NewTideClient(fetcher *upstream.Fetcher, baseURL, apiKey string, logger *slog.Logger) *TideClient {
	return &TideClient{
		fetcher: fetcher,
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger,
	}
}

// Tide returns the station's tide events for the KST day containing now, in
// upstream order. Events the source labeled keep their kind; the rest are
// unclassified.
func (c *TideClient) Tide(ctx context.Context, station domain.Station, now time.Time) ([]domain.TideEvent, error) {
	params := url.Values{
		"serviceKey": {c.apiKey},
		"obsCode":    {station.Code},
		"date":       {domain.TideDate(now)},
		"pageNo":     {"1"},
		"numOfRows":  {"300"},
		"type":       {"json"},
	}

	var events []domain.TideEvent
	err := c.fetcher.Fetch(ctx, upstream.Request{
		Source: SourceTide,
		URL:    c.baseURL,
		Params: params,
	}, func(resp upstream.Response) error {
		items, err := decodeTideItems(resp)
		if err != nil {
			return err
		}
		events = normalizeTideItems(items)
		c.logger.Debug("tide items", "station", station.Code, "items", len(items), "events", len(events), "format", resp.Format.String())
		if len(events) == 0 {
			return upstream.ErrEmptyPayload
		}
		return nil
	})
	return events, err
}

// tideItem accepts the field names of every known response variant.
type tideItem struct {
	PredcDt     upstream.Value `json:"predcDt" xml:"predcDt"`
	TphTime     upstream.Value `json:"tph_time" xml:"tph_time"`
	TideTime    upstream.Value `json:"tide_time" xml:"tide_time"`
	RecordTime  upstream.Value `json:"record_time" xml:"record_time"`
	PredcTdlvVl upstream.Value `json:"predcTdlvVl" xml:"predcTdlvVl"`
	TphLevel    upstream.Value `json:"tph_level" xml:"tph_level"`
	TideLevel   upstream.Value `json:"tide_level" xml:"tide_level"`
	ExtrSe      upstream.Value `json:"extrSe" xml:"extrSe"`
	HLCode      upstream.Value `json:"hl_code" xml:"hl_code"`
}

// legacyTide is the older {"result":{"data":[...]}} shape.
type legacyTide struct {
	Result *struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	} `json:"result"`
}

func decodeTideItems(resp upstream.Response) ([]tideItem, error) {
	if resp.Format == upstream.FormatJSON {
		var legacy legacyTide
		if err := json.Unmarshal(resp.Body, &legacy); err == nil && legacy.Result != nil {
			items, err := upstream.DecodeOneOrMany[tideItem](legacy.Result.Data)
			if err != nil {
				return nil, err
			}
			if len(items) == 0 {
				if msg := strings.TrimSpace(legacy.Result.Error); msg != "" {
					return nil, fmt.Errorf("%w: %s", upstream.ErrEmptyPayload, msg)
				}
				return nil, upstream.ErrEmptyPayload
			}
			return items, nil
		}
	}
	return upstream.DecodeItems[tideItem](resp)
}

func normalizeTideItems(items []tideItem) []domain.TideEvent {
	events := make([]domain.TideEvent, 0, len(items))
	for _, it := range items {
		ts, ok := parseTideTime(firstNonEmpty(it.PredcDt, it.TphTime, it.TideTime, it.RecordTime))
		if !ok {
			continue
		}
		level, ok := domain.ParseReading(firstNonEmpty(it.PredcTdlvVl, it.TphLevel, it.TideLevel))
		if !ok {
			continue
		}
		events = append(events, domain.TideEvent{Kind: tideKind(it), Time: ts, Level: level})
	}
	return events
}

func tideKind(it tideItem) domain.TideKind {
	switch strings.TrimSpace(string(it.ExtrSe)) {
	case "1", "3":
		return domain.TideHigh
	case "2", "4":
		return domain.TideLow
	}
	switch strings.ToUpper(strings.TrimSpace(string(it.HLCode))) {
	case "H":
		return domain.TideHigh
	case "L":
		return domain.TideLow
	}
	return domain.TideUnclassified
}

var tideTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"20060102150405",
	"200601021504",
}

func parseTideTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range tideTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, domain.KST); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func firstNonEmpty(values ...upstream.Value) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}
