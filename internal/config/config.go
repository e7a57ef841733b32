package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/groundwater-trends/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Backend API configuration.
	BackendBaseURL      string
	BackendTimeout      time.Duration
	BackendRateLimit    float64 // requests per second, 0 = unlimited
	StationFetchTimeout time.Duration
	FetchConcurrency    int

	// Aggregation and trend configuration.
	MinCoverage  float64
	TrendWindow  int
	LookbackDays int

	// Refresh pipeline configuration.
	Regions           []string
	RefreshInterval   time.Duration
	SnapshotCacheSize int

	// Kafka snapshot publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	backendTimeout, err := parsePositiveDuration("BACKEND_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	stationTimeout, err := parsePositiveDuration("STATION_FETCH_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("BACKEND_RATE_LIMIT", "20"), 64)
	if err != nil || rateLimit < 0 {
		return nil, errors.New("invalid BACKEND_RATE_LIMIT: must be a non-negative number")
	}

	minCoverage, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("MIN_COVERAGE", "0.8"), 64)
	if err != nil || minCoverage <= 0 || minCoverage > 1 {
		return nil, errors.New("invalid MIN_COVERAGE: must be in (0, 1]")
	}

	concurrency, err := parseIntAtLeast("FETCH_CONCURRENCY", "8", 1)
	if err != nil {
		return nil, err
	}
	trendWindow, err := parseIntInRange("TREND_WINDOW", "7", domain.MinTrendWindow, domain.MaxTrendWindow)
	if err != nil {
		return nil, err
	}
	lookbackDays, err := parseIntAtLeast("LOOKBACK_DAYS", "7", 1)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseIntAtLeast("SNAPSHOT_CACHE_SIZE", "64", 1)
	if err != nil {
		return nil, err
	}

	kafkaTopic := os.Getenv("KAFKA_TOPIC")
	kafkaEnabled := kafkaTopic != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}
	if kafkaTopic == "" {
		kafkaTopic = "groundwater-region-snapshots"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		BackendBaseURL:      strings.TrimRight(sharedcfg.EnvOrDefault("BACKEND_BASE_URL", "http://127.0.0.1:8000"), "/"),
		BackendTimeout:      backendTimeout,
		BackendRateLimit:    rateLimit,
		StationFetchTimeout: stationTimeout,
		FetchConcurrency:    concurrency,

		MinCoverage:  minCoverage,
		TrendWindow:  trendWindow,
		LookbackDays: lookbackDays,

		Regions:           ParseList(os.Getenv("REGIONS")),
		RefreshInterval:   refreshInterval,
		SnapshotCacheSize: cacheSize,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   kafkaTopic,
	}

	if u, err := url.Parse(cfg.BackendBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid BACKEND_BASE_URL %q: must be an absolute URL", cfg.BackendBaseURL)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

// ParseList splits a comma-separated list, trimming blanks and dropping empty
// entries. Region names keep their case.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseIntAtLeast(key, fallback string, minimum int) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || n < minimum {
		return 0, fmt.Errorf("invalid %s: must be an integer >= %d", key, minimum)
	}
	return n, nil
}

func parseIntInRange(key, fallback string, minimum, maximum int) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || n < minimum || n > maximum {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, minimum, maximum)
	}
	return n, nil
}
