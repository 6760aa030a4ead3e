// Package kma fetches gridded weather from the KMA village forecast service.
package kma

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/sea-info-service/internal/adapter/upstream"
	"github.com/couchcryptid/sea-info-service/internal/domain"
)

// Upstream source labels.
const (
	SourceForecast      = "kma_forecast"
	SourceNowcast       = "kma_nowcast"
	SourceUltraForecast = "kma_ultra_forecast"
)

// KMA category codes.
const (
	catTemp      = "TMP"
	catUltraTemp = "T1H"
	catSky       = "SKY"
	catPrecip    = "PTY"
	catWind      = "WSD"
)

// Client implements the three weather products used by the aggregator.
// Each call returns only the fields the product supplied.
type Client struct {
	fetcher *upstream.Fetcher
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// NewClient creates a KMA client rooted at baseURL.
func NewClient(fetcher *upstream.Fetcher, baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		fetcher: fetcher,
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger,
	}
}

// Forecast reads the short-range forecast for cell, picking for each
// category the slot nearest now.
func (c *Client) Forecast(ctx context.Context, cell domain.GridCell, now time.Time) (domain.WeatherSnapshot, error) {
	base := domain.ForecastBaseTime(now)
	var snap domain.WeatherSnapshot
	err := c.fetch(ctx, SourceForecast, "getVilageFcst", 1000, base, cell, func(items []item) error {
		snap = fromForecast(items, now, catTemp)
		return nonEmpty(snap)
	})
	return snap, err
}

// Nowcast reads the ultra-short-range observation for cell.
func (c *Client) Nowcast(ctx context.Context, cell domain.GridCell, now time.Time) (domain.WeatherSnapshot, error) {
	base := domain.UltraBaseTime(now)
	var snap domain.WeatherSnapshot
	err := c.fetch(ctx, SourceNowcast, "getUltraSrtNcst", 100, base, cell, func(items []item) error {
		snap = fromNowcast(items)
		return nonEmpty(snap)
	})
	return snap, err
}

// UltraForecast reads the ultra-short-range forecast for cell, picking for
// each category the slot nearest now.
func (c *Client) UltraForecast(ctx context.Context, cell domain.GridCell, now time.Time) (domain.WeatherSnapshot, error) {
	base := domain.UltraBaseTime(now)
	var snap domain.WeatherSnapshot
	err := c.fetch(ctx, SourceUltraForecast, "getUltraSrtFcst", 100, base, cell, func(items []item) error {
		snap = fromForecast(items, now, catUltraTemp)
		return nonEmpty(snap)
	})
	return snap, err
}

func (c *Client) fetch(ctx context.Context, source, operation string, rows int, base domain.BaseTime, cell domain.GridCell, use func([]item) error) error {
	params := url.Values{
		"serviceKey": {c.apiKey},
		"pageNo":     {"1"},
		"numOfRows":  {strconv.Itoa(rows)},
		"dataType":   {"JSON"},
		"base_date":  {base.Date},
		"base_time":  {base.Time},
		"nx":         {strconv.Itoa(cell.X)},
		"ny":         {strconv.Itoa(cell.Y)},
	}
	return c.fetcher.Fetch(ctx, upstream.Request{
		Source: source,
		URL:    c.baseURL + "/" + operation,
		Params: params,
	}, func(resp upstream.Response) error {
		items, err := upstream.DecodeItems[item](resp)
		if err != nil {
			return err
		}
		c.logger.Debug("kma items", "source", source, "count", len(items), "nx", cell.X, "ny", cell.Y, "base", base.String())
		return use(items)
	})
}

func nonEmpty(s domain.WeatherSnapshot) error {
	if s.Empty() {
		return upstream.ErrEmptyPayload
	}
	return nil
}

// item covers both forecast (fcst*) and observation (obsrValue) rows.
type item struct {
	Category  upstream.Value `json:"category" xml:"category"`
	FcstDate  upstream.Value `json:"fcstDate" xml:"fcstDate"`
	FcstTime  upstream.Value `json:"fcstTime" xml:"fcstTime"`
	FcstValue upstream.Value `json:"fcstValue" xml:"fcstValue"`
	ObsrValue upstream.Value `json:"obsrValue" xml:"obsrValue"`
}
