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
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNoTideStation = errors.New("no tide station")
	ErrNoTideData    = errors.New("no tide data")
	ErrNoOceanData   = errors.New("no ocean data")
)

// runTide fetches the nearest station's events for today and reduces them
// to high/low water. The slice is never nil.
func (a *Aggregator) runTide(ctx context.Context, station *domain.Station, now time.Time) ([]domain.TideEvent, error) {
	ctx, span := a.tracer.Start(ctx, "aggregator.tide")
	defer span.End()

	if station == nil {
		return []domain.TideEvent{}, failSpan(span, ErrNoTideStation)
	}
	span.SetAttributes(attribute.String("station.code", station.Code))

	raw, err := a.tide.Tide(ctx, *station, now)
	if err != nil {
		a.logger.Warn("tide fetch failed", "station", station.Code, "error", err)
		return []domain.TideEvent{}, failSpan(span, err)
	}

	events := domain.NormalizeTide(raw)
	if len(events) == 0 {
		return []domain.TideEvent{}, failSpan(span, ErrNoTideData)
	}
	a.metrics.FallbackSteps.WithLabelValues("tide", tideStep(raw, events)).Inc()
	return events, nil
}

func tideStep(raw, events []domain.TideEvent) string {
	switch {
	case domain.HasLabels(raw):
		return "labeled"
	case events[0].Kind == domain.TideUnclassified:
		return "unclassified"
	default:
		return "extrema"
	}
}

// runOcean queries the nearest buoys in distance order. The first usable
// observation wins and the remaining buoys are not queried.
func (a *Aggregator) runOcean(ctx context.Context, coord domain.Coordinate) (*domain.OceanSnapshot, error) {
	ctx, span := a.tracer.Start(ctx, "aggregator.ocean")
	defer span.End()

	candidates := domain.NearestN(coord, a.stations.Buoy, a.settings.BuoyCandidates)
	for i, station := range candidates {
		if ctx.Err() != nil {
			return nil, failSpan(span, fmt.Errorf("%w: %w", ErrNoOceanData, ctx.Err()))
		}
		obs, err := a.buoy.Observation(ctx, station)
		if err != nil {
			a.logger.Warn("buoy observation failed", "station", station.Code, "rank", i, "error", err)
			if errors.Is(err, upstream.ErrRateLimited) {
				return nil, failSpan(span, fmt.Errorf("%w: %w", ErrNoOceanData, err))
			}
			continue
		}
		step := "nearest"
		if i > 0 {
			step = "next_buoy"
		}
		a.metrics.FallbackSteps.WithLabelValues("ocean", step).Inc()
		span.SetAttributes(attribute.String("station.code", station.Code), attribute.Int("station.rank", i))
		return &obs, nil
	}
	return nil, failSpan(span, ErrNoOceanData)
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// errorMessage renders a domain error for the record. Rate limiting is
// reported with one fixed message whatever the source.
func errorMessage(err error) string {
	if errors.Is(err, upstream.ErrRateLimited) {
		return upstream.ErrRateLimited.Error()
	}
	return err.Error()
}
