// Package aggregator builds a SeaInfoRecord for a coordinate by running the
// weather, tide and ocean fallback chains concurrently and merging their
// results.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/sea-info-service/internal/cache"
	"github.com/couchcryptid/sea-info-service/internal/domain"
	"github.com/couchcryptid/sea-info-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// WeatherProvider supplies the three gridded weather products for a cell.
// Each call returns only the fields its product supplied.
type WeatherProvider interface {
	Forecast(ctx context.Context, cell domain.GridCell, now time.Time) (domain.WeatherSnapshot, error)
	Nowcast(ctx context.Context, cell domain.GridCell, now time.Time) (domain.WeatherSnapshot, error)
	UltraForecast(ctx context.Context, cell domain.GridCell, now time.Time) (domain.WeatherSnapshot, error)
}

// TideProvider returns a station's tide events for the day containing now.
type TideProvider interface {
	Tide(ctx context.Context, station domain.Station, now time.Time) ([]domain.TideEvent, error)
}

// BuoyProvider returns the latest observation of a buoy.
type BuoyProvider interface {
	Observation(ctx context.Context, station domain.Station) (domain.OceanSnapshot, error)
}

// Publisher receives every freshly aggregated record.
type Publisher interface {
	Publish(ctx context.Context, rec domain.SeaInfoRecord) error
}

// Options are the per-request flags.
type Options struct {
	// NoCache skips the cache read. The fresh record is still stored.
	NoCache bool
	// UseSample returns the fixed sample record without any upstream call.
	UseSample bool
}

// Settings tune the fallback chains.
type Settings struct {
	BuoyCandidates   int
	GridSearchRadius int
	// LookupTimeout bounds one aggregation, whoever is waiting for it.
	LookupTimeout  time.Duration
	PublishTimeout time.Duration
}

const (
	defaultLookupTimeout  = 30 * time.Second
	defaultPublishTimeout = 5 * time.Second
)

// Deps are the collaborators of an Aggregator. Publisher and Clock are optional.
type Deps struct {
	Weather   WeatherProvider
	Tide      TideProvider
	Buoy      BuoyProvider
	Stations  *domain.StationTables
	Cache     *cache.Cache
	Publisher Publisher
	Clock     clockwork.Clock
}

// Aggregator is the aggregation controller.
type Aggregator struct {
	weather   WeatherProvider
	tide      TideProvider
	buoy      BuoyProvider
	stations  *domain.StationTables
	cache     *cache.Cache
	publisher Publisher
	clock     clockwork.Clock
	settings  Settings
	logger    *slog.Logger
	metrics   *observability.Metrics
	tracer    trace.Tracer

	flights    singleflight.Group
	publishing sync.WaitGroup
}

// New creates an Aggregator.
func New(deps Deps, settings Settings, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if settings.LookupTimeout <= 0 {
		settings.LookupTimeout = defaultLookupTimeout
	}
	if settings.PublishTimeout <= 0 {
		settings.PublishTimeout = defaultPublishTimeout
	}
	if deps.Stations.Loaded() {
		metrics.StationsReady.Set(1)
	}
	return &Aggregator{
		weather:   deps.Weather,
		tide:      deps.Tide,
		buoy:      deps.Buoy,
		stations:  deps.Stations,
		cache:     deps.Cache,
		publisher: deps.Publisher,
		clock:     clock,
		settings:  settings,
		logger:    logger,
		metrics:   metrics,
		tracer:    otel.Tracer(observability.TracerName),
	}
}

// CheckReadiness returns nil once the station tables are loaded.
func (a *Aggregator) CheckReadiness(_ context.Context) error {
	if !a.stations.Loaded() {
		return errors.New("station tables are not loaded")
	}
	return nil
}

// Lookup returns the record for coord. The error is non-nil only for input
// errors (domain.ErrInvalidCoordinate, domain.ErrOutsideRegion) and for a
// cancelled ctx; upstream failures are reported inside the record.
//
// The aggregation itself runs detached from ctx, bounded by
// Settings.LookupTimeout, so a caller that gives up never changes the record
// other callers of the same key receive.
func (a *Aggregator) Lookup(ctx context.Context, coord domain.Coordinate, opts Options) (domain.SeaInfoRecord, error) {
	start := a.clock.Now()
	defer func() {
		a.metrics.LookupDuration.Observe(a.clock.Since(start).Seconds())
	}()

	if opts.UseSample {
		a.metrics.Lookups.WithLabelValues("sample").Inc()
		return domain.SampleRecord(start), nil
	}

	cell, err := domain.Project(coord)
	if err != nil {
		a.metrics.Lookups.WithLabelValues("invalid").Inc()
		return domain.SeaInfoRecord{}, err
	}

	ctx, span := a.tracer.Start(ctx, "aggregator.Lookup", trace.WithAttributes(
		attribute.Float64("coordinate.lat", coord.Lat),
		attribute.Float64("coordinate.lon", coord.Lon),
		attribute.Bool("nocache", opts.NoCache),
	))
	defer span.End()

	if opts.NoCache {
		a.metrics.Cache.WithLabelValues("bypass").Inc()
	} else if rec, ok := a.cache.Get(coord); ok {
		a.metrics.Cache.WithLabelValues("hit").Inc()
		a.logger.Debug("cache hit", "key", coord.Key())
		span.SetAttributes(attribute.Bool("cache.hit", true))
		rec.Cached = true
		a.metrics.Lookups.WithLabelValues(outcome(rec)).Inc()
		return rec, nil
	} else {
		a.metrics.Cache.WithLabelValues("miss").Inc()
		a.logger.Debug("cache miss", "key", coord.Key())
	}

	if err := ctx.Err(); err != nil {
		return domain.SeaInfoRecord{}, err
	}

	// Concurrent misses for one key share a single aggregation.
	ch := a.flights.DoChan(coord.Key(), func() (any, error) {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.settings.LookupTimeout)
		defer cancel()
		return a.aggregate(actx, coord, cell), nil
	})
	select {
	case res := <-ch:
		rec := res.Val.(domain.SeaInfoRecord)
		span.SetAttributes(attribute.Bool("shared", res.Shared))
		a.metrics.Lookups.WithLabelValues(outcome(rec)).Inc()
		return rec, nil
	case <-ctx.Done():
		return domain.SeaInfoRecord{}, ctx.Err()
	}
}

// Close waits for in-flight record publications.
func (a *Aggregator) Close() {
	a.publishing.Wait()
}

// aggregate runs the three chains and merges them. Panics are recovered
// here and reported in the record's top-level error.
func (a *Aggregator) aggregate(ctx context.Context, coord domain.Coordinate, cell domain.GridCell) (rec domain.SeaInfoRecord) {
	now := a.clock.Now()
	rec = domain.SeaInfoRecord{
		Coordinate:  coord,
		Grid:        cell,
		Tide:        []domain.TideEvent{},
		GeneratedAt: now,
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("aggregation panicked", "coordinate", coord.String(), "panic", r, "stack", string(debug.Stack()))
			rec.Error = fmt.Sprintf("internal error: %v", r)
		}
	}()

	if st, ok := domain.Nearest(coord, a.stations.Tide); ok {
		rec.NearestStation = &st
	}
	if st, ok := domain.Nearest(coord, a.stations.Beaches); ok {
		rec.NearestBeach = &st
	}

	var (
		weather    domain.WeatherSnapshot
		weatherErr error
		tide       []domain.TideEvent
		tideErr    error
		ocean      *domain.OceanSnapshot
		oceanErr   error
		faults     faultList
	)

	// Each chain reports through its own variables and always returns nil,
	// so one failing domain never cancels the others.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.guard("weather", &faults, func() {
		weather, weatherErr = a.runWeather(gctx, cell, now)
	}))
	g.Go(a.guard("tide", &faults, func() {
		tide, tideErr = a.runTide(gctx, rec.NearestStation, now)
	}))
	g.Go(a.guard("ocean", &faults, func() {
		ocean, oceanErr = a.runOcean(gctx, coord)
	}))
	_ = g.Wait()

	rec.Weather = weather
	if weatherErr != nil {
		rec.WeatherError = errorMessage(weatherErr)
	}
	if tide != nil {
		rec.Tide = tide
	}
	if tideErr != nil {
		rec.TideError = errorMessage(tideErr)
	}
	rec.Ocean = ocean
	if oceanErr != nil {
		rec.OceanError = errorMessage(oceanErr)
	}

	if substituteBuoyWind(&rec.Weather, rec.Ocean) {
		a.metrics.FallbackSteps.WithLabelValues("weather", "buoy").Inc()
	}
	if fillAirTemp(&rec.Weather) {
		a.logger.Warn("air temperature filled after merge", "coordinate", coord.String())
	}
	for _, field := range rec.Weather.SampledFields {
		a.metrics.Sampled.WithLabelValues(field).Inc()
	}
	if msgs := faults.list(); len(msgs) > 0 {
		rec.Error = "internal error: " + strings.Join(msgs, "; ")
	}

	// A record cut short by the lookup deadline or a recovered fault must not
	// be served to later callers.
	if ctx.Err() == nil && rec.Error == "" {
		a.cache.Put(coord, rec)
		a.publish(ctx, rec)
	}
	return rec
}

func (a *Aggregator) guard(name string, faults *faultList, fn func()) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("domain chain panicked", "domain", name, "panic", r, "stack", string(debug.Stack()))
				faults.add(fmt.Sprintf("%s: %v", name, r))
			}
		}()
		fn()
		return nil
	}
}

func (a *Aggregator) publish(ctx context.Context, rec domain.SeaInfoRecord) {
	if a.publisher == nil {
		return
	}
	a.publishing.Add(1)
	go func() {
		defer a.publishing.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.settings.PublishTimeout)
		defer cancel()
		if err := a.publisher.Publish(pctx, rec); err != nil {
			a.logger.Warn("publish record failed", "key", rec.Coordinate.Key(), "error", err)
			a.metrics.RecordsPublished.WithLabelValues("error").Inc()
			return
		}
		a.metrics.RecordsPublished.WithLabelValues("success").Inc()
	}()
}

type faultList struct {
	mu   sync.Mutex
	msgs []string
}

func (f *faultList) add(msg string) {
	f.mu.Lock()
	f.msgs = append(f.msgs, msg)
	f.mu.Unlock()
}

func (f *faultList) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.msgs...)
}

func outcome(rec domain.SeaInfoRecord) string {
	switch {
	case rec.Error != "":
		return "error"
	case rec.WeatherError != "" || rec.TideError != "" || rec.OceanError != "":
		return "partial"
	default:
		return "ok"
	}
}
