package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/sea-info-service/internal/adapter/upstream"
	"github.com/couchcryptid/sea-info-service/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrNoWeatherData is reported when no weather source supplied a real value
// for any required field.
var ErrNoWeatherData = errors.New("no weather data")

// weatherStep is one attempt in the weather chain. Its result is folded into
// the snapshot, filling only fields that are still absent.
type weatherStep struct {
	name   string
	source domain.WindSource
	fetch  func(ctx context.Context, cell domain.GridCell, now time.Time) (domain.WeatherSnapshot, error)
}

func (a *Aggregator) cellSteps() []weatherStep {
	return []weatherStep{
		{name: "forecast", source: domain.WindFromForecast, fetch: a.weather.Forecast},
		{name: "nowcast", source: domain.WindFromNowcast, fetch: a.weather.Nowcast},
		{name: "ultra_forecast", source: domain.WindFromUltraForecast, fetch: a.weather.UltraForecast},
	}
}

// runWeather walks the chain: forecast, nowcast, ultra forecast, wind from
// neighbouring cells, then filler. The returned error is non-nil only when
// every required field had to be filled.
func (a *Aggregator) runWeather(ctx context.Context, cell domain.GridCell, now time.Time) (domain.WeatherSnapshot, error) {
	ctx, span := a.tracer.Start(ctx, "aggregator.weather")
	defer span.End()
	span.SetAttributes(attribute.Int("grid.x", cell.X), attribute.Int("grid.y", cell.Y))

	var (
		snap          domain.WeatherSnapshot
		firstErr      error
		primaryFailed bool
		reachable     bool
	)
	record := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	for i, step := range a.cellSteps() {
		if i > 0 && snap.Complete() {
			break
		}
		delta, err := step.fetch(ctx, cell, now)
		if err != nil {
			a.logger.Warn("weather step failed", "step", step.name, "nx", cell.X, "ny", cell.Y, "error", err)
			record(err)
			if i == 0 {
				primaryFailed = true
			}
			if !unreachable(err) {
				reachable = true
			}
			continue
		}
		reachable = true
		if fold(&snap, delta, step.source) {
			a.metrics.FallbackSteps.WithLabelValues("weather", step.name).Inc()
		}
	}

	// Neighbouring cells are served by the same upstream, so they are only
	// asked when it answered for this cell.
	switch {
	case snap.WindSpeed != nil || a.settings.GridSearchRadius <= 0:
	case !reachable:
		a.logger.Warn("weather upstream unreachable, skipping neighbor cells", "nx", cell.X, "ny", cell.Y)
	default:
		a.logger.Info("searching neighbor cells for wind", "nx", cell.X, "ny", cell.Y, "missing", snap.Missing(), "radius", a.settings.GridSearchRadius)
		if err := a.searchNeighbors(ctx, cell, now, &snap); err != nil {
			record(err)
		}
	}

	hasReal := snap.AirTemp != nil || snap.WindSpeed != nil
	snap.SourceDegraded = primaryFailed && hasReal

	if fillMissing(&snap) {
		a.metrics.FallbackSteps.WithLabelValues("weather", "filler").Inc()
	}
	if hasReal {
		return snap, nil
	}

	err := ErrNoWeatherData
	if firstErr != nil {
		err = fmt.Errorf("%w: %w", ErrNoWeatherData, firstErr)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return snap, err
}

// searchNeighbors retries the cell steps for wind speed on rings of cells
// around center, nearest ring first. Other fields are never taken from a
// neighbour. An unreachable or rate-limited upstream ends the search.
func (a *Aggregator) searchNeighbors(ctx context.Context, center domain.GridCell, now time.Time, snap *domain.WeatherSnapshot) error {
	var firstErr error
	for radius := 1; radius <= a.settings.GridSearchRadius; radius++ {
		for _, off := range ringOffsets(center, radius) {
			candidate := center.Offset(off.DX, off.DY)
			for _, step := range a.cellSteps() {
				if snap.WindSpeed != nil {
					return firstErr
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				delta, err := step.fetch(ctx, candidate, now)
				if err != nil {
					a.logger.Debug("neighbor cell step failed", "step", step.name, "nx", candidate.X, "ny", candidate.Y, "error", err)
					if firstErr == nil {
						firstErr = err
					}
					if unreachable(err) {
						return err
					}
					continue
				}
				offset := off
				if foldWind(snap, delta, &offset) {
					a.logger.Info("wind filled from neighbor cell", "step", step.name, "dx", off.DX, "dy", off.DY)
					a.metrics.FallbackSteps.WithLabelValues("weather", "neighbor_cell").Inc()
				}
			}
		}
	}
	return firstErr
}

// unreachable reports whether err means the upstream could not be asked at
// all, rather than answering without data.
func unreachable(err error) bool {
	return errors.Is(err, upstream.ErrUnavailable) ||
		errors.Is(err, upstream.ErrRateLimited) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// ringOffsets lists the in-region cells at Chebyshev distance radius from
// center, row by row from the top-left.
func ringOffsets(center domain.GridCell, radius int) []domain.CellOffset {
	var out []domain.CellOffset
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if max(abs(dx), abs(dy)) != radius {
				continue
			}
			if !center.Offset(dx, dy).InRegion() {
				continue
			}
			out = append(out, domain.CellOffset{DX: dx, DY: dy})
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// fold copies the fields of delta that dst lacks. It reports whether anything
// was copied.
func fold(dst *domain.WeatherSnapshot, delta domain.WeatherSnapshot, source domain.WindSource) bool {
	filled := false
	if dst.AirTemp == nil && delta.AirTemp != nil {
		dst.AirTemp = delta.AirTemp
		filled = true
	}
	if dst.WindSpeed == nil && delta.WindSpeed != nil {
		dst.WindSpeed = delta.WindSpeed
		dst.WindSource = source
		filled = true
	}
	if dst.Sky == "" && delta.Sky != "" {
		dst.Sky = delta.Sky
		filled = true
	}
	if dst.PrecipType == "" && delta.PrecipType != "" {
		dst.PrecipType = delta.PrecipType
		filled = true
	}
	return filled
}

// foldWind takes only the wind speed of a neighbouring cell's delta.
func foldWind(dst *domain.WeatherSnapshot, delta domain.WeatherSnapshot, offset *domain.CellOffset) bool {
	if dst.WindSpeed != nil || delta.WindSpeed == nil {
		return false
	}
	dst.WindSpeed = delta.WindSpeed
	dst.WindSource = domain.WindFromNeighborCell
	dst.WindCellOffset = offset
	return true
}

// fillMissing applies filler values to absent required fields.
func fillMissing(snap *domain.WeatherSnapshot) bool {
	filled := fillAirTemp(snap)
	if snap.WindSpeed == nil {
		snap.WindSpeed = domain.Float64(domain.FillerWindSpeed)
		snap.WindSource = domain.WindFromFiller
		snap.WindCellOffset = nil
		snap.MarkSampled(domain.FieldWindSpeed)
		filled = true
	}
	return filled
}

func fillAirTemp(snap *domain.WeatherSnapshot) bool {
	if snap.AirTemp != nil {
		return false
	}
	snap.AirTemp = domain.Float64(domain.FillerAirTemp)
	snap.MarkSampled(domain.FieldAirTemp)
	return true
}

// substituteBuoyWind replaces a filler wind speed with the buoy's measured
// one. Real model values are never replaced.
func substituteBuoyWind(snap *domain.WeatherSnapshot, ocean *domain.OceanSnapshot) bool {
	if ocean == nil || ocean.WindSpeed == nil || !snap.IsSampled(domain.FieldWindSpeed) {
		return false
	}
	snap.WindSpeed = domain.Float64(*ocean.WindSpeed)
	snap.WindSource = domain.WindFromBuoy
	snap.UnmarkSampled(domain.FieldWindSpeed)
	return true
}
