package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/couchcryptid/sea-info-service/internal/adapter/khoa"
	"github.com/couchcryptid/sea-info-service/internal/adapter/kma"
	"github.com/couchcryptid/sea-info-service/internal/adapter/upstream"
	"github.com/couchcryptid/sea-info-service/internal/aggregator"
	"github.com/couchcryptid/sea-info-service/internal/cache"
	"github.com/couchcryptid/sea-info-service/internal/config"
	"github.com/couchcryptid/sea-info-service/internal/domain"
	"github.com/couchcryptid/sea-info-service/internal/observability"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type coordFlags struct {
	lat, lon float64
}

func (f *coordFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "latitude in decimal degrees")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "longitude in decimal degrees")
}

func (f *coordFlags) coordinate() domain.Coordinate {
	return domain.Coordinate{Lat: f.lat, Lon: f.lon}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "seactl",
		Short:        "Query Korean coastal weather, tide and buoy data",
		SilenceUsage: true,
	}
	root.AddCommand(newLookupCmd(), newGridCmd(), newStationsCmd())
	return root
}

func newLookupCmd() *cobra.Command {
	var (
		coord   coordFlags
		sample  bool
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Aggregate weather, tide and ocean data for a coordinate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if verbose {
				cfg.LogLevel = "debug"
			}
			logger := observability.NewStderrLogger(cfg)

			agg, err := buildAggregator(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rec, err := agg.Lookup(ctx, coord.coordinate(), aggregator.Options{UseSample: sample})
			if err != nil {
				return err
			}
			return writeRecord(cmd.OutOrStdout(), rec)
		},
	}
	coord.register(cmd)
	cmd.Flags().BoolVar(&sample, "sample", false, "return the built-in sample record")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log upstream calls")
	return cmd
}

func newGridCmd() *cobra.Command {
	var coord coordFlags
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Project a coordinate onto the KMA forecast grid",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cell, err := domain.Project(coord.coordinate())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "nx=%d ny=%d\n", cell.X, cell.Y)
			return nil
		},
	}
	coord.register(cmd)
	return cmd
}

func newStationsCmd() *cobra.Command {
	var (
		coord coordFlags
		buoys int
	)
	cmd := &cobra.Command{
		Use:   "stations",
		Short: "Resolve the nearest tide station, beach and buoys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := coord.coordinate()
			if err := c.Validate(); err != nil {
				return err
			}
			tables, err := domain.LoadStationTables()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tCODE\tNAME\tKM")
			if st, ok := domain.Nearest(c, tables.Tide); ok {
				printStation(tw, "tide", c, st)
			}
			if st, ok := domain.Nearest(c, tables.Beaches); ok {
				printStation(tw, "beach", c, st)
			}
			for _, st := range domain.NearestN(c, tables.Buoy, buoys) {
				printStation(tw, "buoy", c, st)
			}
			return tw.Flush()
		},
	}
	coord.register(cmd)
	cmd.Flags().IntVar(&buoys, "buoys", 3, "number of nearest buoys to list")
	return cmd
}

func printStation(w io.Writer, kind string, c domain.Coordinate, st domain.Station) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\n", kind, st.Code, st.Name, domain.Haversine(c, st.Coordinate()))
}

func writeRecord(w io.Writer, rec domain.SeaInfoRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rec)
}

// buildAggregator wires the live upstream clients. The CLI never publishes.
func buildAggregator(cfg *config.Config, logger *slog.Logger) (*aggregator.Aggregator, error) {
	stations, err := domain.LoadStationTables()
	if err != nil {
		return nil, err
	}
	metrics := observability.NewMetrics()
	fetcher := upstream.NewFetcher(cfg.UpstreamTimeout, cfg.UpstreamRateLimit, metrics, logger)
	return aggregator.New(aggregator.Deps{
		Weather:  kma.NewClient(fetcher, cfg.KMABaseURL, cfg.APIKey, logger),
		Tide:     khoa.NewTideClient(fetcher, cfg.KHOATideURL, cfg.TideAPIKey, logger),
		Buoy:     khoa.NewBuoyClient(fetcher, cfg.KHOABuoyURL, cfg.APIKey, logger),
		Stations: stations,
		Cache:    cache.New(cfg.CacheTTL, 1, nil),
	}, aggregator.Settings{
		BuoyCandidates:   cfg.BuoyCandidates,
		GridSearchRadius: cfg.GridSearchRadius,
		LookupTimeout:    cfg.LookupTimeout,
	}, logger, metrics), nil
}
