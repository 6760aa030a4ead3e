// Package upstream is the shared HTTP layer for the data.go.kr APIs: rate
// limiting, per-call timeouts, tracing, metrics and response envelope decoding.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/sea-info-service/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

var (
	// ErrRateLimited is returned when a source answers HTTP 429.
	ErrRateLimited = errors.New("upstream rate limit exceeded")
	// ErrEmptyPayload is returned when a source answers without usable items.
	ErrEmptyPayload = errors.New("upstream returned no data")
	// ErrResultCode is returned when the envelope header reports a failure.
	ErrResultCode = errors.New("upstream result code")
	// ErrUnavailable wraps timeouts, transport failures and 5xx answers:
	// the source could not be asked, as opposed to having nothing to say.
	ErrUnavailable = errors.New("upstream unavailable")
)

const maxErrorBody = 512

// Format is the detected encoding of a response body.
type Format int

const (
	FormatJSON Format = iota
	FormatXML
)

func (f Format) String() string {
	if f == FormatXML {
		return "xml"
	}
	return "json"
}

// Response is a raw upstream body with its sniffed format.
type Response struct {
	Body   []byte
	Format Format
}

// Request describes one upstream GET.
type Request struct {
	Source  string // metrics and log label, e.g. "kma_forecast"
	URL     string
	Params  url.Values
	Timeout time.Duration // overrides the fetcher default when > 0
}

// Fetcher performs rate-limited, traced GET requests against upstream APIs.
type Fetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewFetcher creates a fetcher allowing ratePerSecond requests per second
// across every source, each bounded by timeout.
func NewFetcher(timeout time.Duration, ratePerSecond float64, metrics *observability.Metrics, logger *slog.Logger) *Fetcher {
	burst := max(int(ratePerSecond), 1)
	return &Fetcher{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch issues req and hands the body to decode. The outcome is recorded
// from both the transport result and the decode error.
func (f *Fetcher) Fetch(ctx context.Context, req Request, decode func(Response) error) error {
	start := time.Now()
	resp, err := f.get(ctx, req)
	f.metrics.UpstreamDuration.WithLabelValues(req.Source).Observe(time.Since(start).Seconds())
	if err == nil {
		err = decode(resp)
	}
	f.metrics.UpstreamRequests.WithLabelValues(req.Source, outcome(err)).Inc()
	if err != nil {
		return fmt.Errorf("%s: %w", req.Source, err)
	}
	return nil
}

func (f *Fetcher) get(ctx context.Context, req Request) (Response, error) {
	timeout := f.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		return Response{}, fmt.Errorf("%w: rate limiter: %w", ErrUnavailable, err)
	}

	fullURL := req.URL
	if len(req.Params) > 0 {
		fullURL += "?" + req.Params.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}

	f.logger.Debug("upstream request", "source", req.Source, "url", redact(req.URL, req.Params))

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("%w: request: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return Response{}, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if resp.StatusCode >= http.StatusInternalServerError {
			return Response{}, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, bytes.TrimSpace(body))
		}
		return Response{}, fmt.Errorf("API error: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read body: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Response{}, ErrEmptyPayload
	}
	return Response{Body: body, Format: Sniff(body)}, nil
}

// Sniff reports XML when the body starts with '<', JSON otherwise.
func Sniff(body []byte) Format {
	if trimmed := bytes.TrimLeft(body, " \t\r\n\ufeff"); len(trimmed) > 0 && trimmed[0] == '<' {
		return FormatXML
	}
	return FormatJSON
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrEmptyPayload):
		return "empty"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// redact drops the service key so it never reaches the logs.
func redact(base string, params url.Values) string {
	if len(params) == 0 {
		return base
	}
	clean := url.Values{}
	for k, v := range params {
		if k == "serviceKey" || k == "ServiceKey" {
			continue
		}
		clean[k] = v
	}
	return base + "?" + clean.Encode()
}
