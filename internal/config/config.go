package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// maxUpstreamTimeout is the exclusive upper bound for UPSTREAM_TIMEOUT.
const maxUpstreamTimeout = 10 * time.Second

// writeTimeoutMargin is added to LookupTimeout for the HTTP write timeout.
const writeTimeoutMargin = 10 * time.Second

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Inbound API rate limit, requests per minute across all clients.
	RateLimitMax      int
	RateLimitDisabled bool

	// Upstream data.go.kr configuration.
	APIKey            string
	TideAPIKey        string
	KMABaseURL        string
	KHOATideURL       string
	KHOABuoyURL       string
	UpstreamTimeout   time.Duration
	UpstreamRateLimit float64

	// Aggregation configuration.
	LookupTimeout    time.Duration
	CacheTTL         time.Duration
	CacheSize        int
	BuoyCandidates   int
	GridSearchRadius int

	// Record publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// Tracing.
	TracingEnabled     bool
	TracingExporter    string
	OTLPEndpoint       string
	TracingSampleRatio float64
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	rateLimitMax, err := parsePositiveInt("RATE_LIMIT_MAX", 100)
	if err != nil {
		return nil, err
	}

	upstreamTimeout, err := parseDuration("UPSTREAM_TIMEOUT", "5s")
	if err != nil || upstreamTimeout >= maxUpstreamTimeout {
		return nil, errors.New("invalid UPSTREAM_TIMEOUT")
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("UPSTREAM_RATE_LIMIT", "10"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid UPSTREAM_RATE_LIMIT")
	}

	lookupTimeout, err := parseDuration("LOOKUP_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	if lookupTimeout <= upstreamTimeout {
		return nil, errors.New("invalid LOOKUP_TIMEOUT: must exceed UPSTREAM_TIMEOUT")
	}

	cacheTTL, err := parseDuration("CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("CACHE_SIZE", 100)
	if err != nil {
		return nil, err
	}

	buoyCandidates, err := parsePositiveInt("BUOY_CANDIDATES", 10)
	if err != nil {
		return nil, err
	}

	radius, err := strconv.Atoi(sharedcfg.EnvOrDefault("GRID_SEARCH_RADIUS", "1"))
	if err != nil || radius < 0 {
		return nil, errors.New("invalid GRID_SEARCH_RADIUS")
	}

	sampleRatio, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("TRACING_SAMPLE_RATIO", "1.0"), 64)
	if err != nil || sampleRatio < 0 || sampleRatio > 1 {
		return nil, errors.New("invalid TRACING_SAMPLE_RATIO")
	}

	apiKey := os.Getenv("DATA_GO_KR_API_KEY")

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		RateLimitMax:      rateLimitMax,
		RateLimitDisabled: os.Getenv("DISABLE_RATE_LIMIT") == "true",

		APIKey:            apiKey,
		TideAPIKey:        sharedcfg.EnvOrDefault("TIDE_API_KEY", apiKey),
		KMABaseURL:        sharedcfg.EnvOrDefault("KMA_BASE_URL", "http://apis.data.go.kr/1360000/VilageFcstInfoService_2.0"),
		KHOATideURL:       sharedcfg.EnvOrDefault("KHOA_TIDE_URL", "http://apis.data.go.kr/1192136/tideFcstHghLw/GetTideFcstHghLwApiService"),
		KHOABuoyURL:       sharedcfg.EnvOrDefault("KHOA_BUOY_URL", "https://apis.data.go.kr/1192136/twRecent/GetTWRecentApiService"),
		UpstreamTimeout:   upstreamTimeout,
		UpstreamRateLimit: rateLimit,

		LookupTimeout:    lookupTimeout,
		CacheTTL:         cacheTTL,
		CacheSize:        cacheSize,
		BuoyCandidates:   buoyCandidates,
		GridSearchRadius: radius,

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "sea-info-records"),

		TracingEnabled:     os.Getenv("TRACING_ENABLED") == "true",
		TracingExporter:    strings.ToLower(sharedcfg.EnvOrDefault("TRACING_EXPORTER", "stdout")),
		OTLPEndpoint:       sharedcfg.EnvOrDefault("OTLP_ENDPOINT", "localhost:4318"),
		TracingSampleRatio: sampleRatio,
	}

	if cfg.APIKey == "" {
		return nil, errors.New("DATA_GO_KR_API_KEY is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}
	if cfg.TracingExporter != "stdout" && cfg.TracingExporter != "otlp" {
		return nil, errors.New("invalid TRACING_EXPORTER")
	}

	return cfg, nil
}

// WriteTimeout is the HTTP server write timeout: long enough for a lookup
// that runs into LookupTimeout to still be written.
func (c *Config) WriteTimeout() time.Duration {
	return c.LookupTimeout + writeTimeoutMargin
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

