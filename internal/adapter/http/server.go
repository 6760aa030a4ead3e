package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/sea-info-service/internal/aggregator"
	"github.com/couchcryptid/sea-info-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// Lookuper answers sea-info lookups.
type Lookuper interface {
	Lookup(ctx context.Context, coord domain.Coordinate, opts aggregator.Options) (domain.SeaInfoRecord, error)
}

// Server exposes the sea-info API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	lookup     Lookuper
	logger     *slog.Logger
	limiter    *rate.Limiter
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithWriteTimeout sets the server write timeout. It must outlast the
// longest lookup.
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.httpServer.WriteTimeout = d
		}
	}
}

// WithRateLimit caps /api/ requests at perMinute across all clients.
// Requests beyond the cap get 429.
func WithRateLimit(perMinute int) ServerOption {
	return func(s *Server) {
		if perMinute > 0 {
			s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
		}
	}
}

// NewServer creates an HTTP server with /api/sea-info, /healthz, /readyz,
// and /metrics routes.
func NewServer(addr string, lookup Lookuper, ready sharedobs.ReadinessChecker, logger *slog.Logger, opts ...ServerOption) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		lookup: lookup,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux.Handle("GET /api/sea-info", s.limitRate(http.HandlerFunc(s.handleSeaInfo)))
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer.Handler = otelhttp.NewHandler(withRequestID(s.logRequests(mux)), "sea-info",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleSeaInfo(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := aggregator.Options{
		NoCache:   parseFlag(q.Get("nocache")),
		UseSample: parseFlag(q.Get("useSample")),
	}

	coord, err := parseCoordinate(q)
	if err != nil && !opts.UseSample {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rec, err := s.lookup.Lookup(r.Context(), coord, opts)
	switch {
	case errors.Is(err, domain.ErrInvalidCoordinate), errors.Is(err, domain.ErrOutsideRegion):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		s.logger.Warn("lookup aborted", "coordinate", coord.String(), "request_id", RequestID(r.Context()), "error", err)
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	status := http.StatusOK
	if rec.Error != "" {
		status = http.StatusInternalServerError
	}
	sharedobs.WriteJSON(w, status, rec)
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
