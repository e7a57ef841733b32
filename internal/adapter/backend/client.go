package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/groundwater-trends/internal/domain"
	"github.com/couchcryptid/groundwater-trends/internal/observability"
	"golang.org/x/time/rate"
)

const (
	stationsPath = "/api/water-levels/groundwater-stations/"
	levelsPath   = "/api/water-levels/groundwater-levels/"
)

// Client implements domain.StationSource against the backend water-levels API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a backend API client. ratePerSecond caps outgoing
// requests; zero disables the limit.
func NewClient(baseURL string, timeout time.Duration, ratePerSecond float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		limiter: newLimiter(ratePerSecond),
		metrics: metrics,
		logger:  logger,
	}
}

func newLimiter(ratePerSecond float64) *rate.Limiter {
	if ratePerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(math.Ceil(ratePerSecond))
	return rate.NewLimiter(rate.Limit(ratePerSecond), burst)
}

// ListStations returns the full station directory.
func (c *Client) ListStations(ctx context.Context) ([]domain.Station, error) {
	var stations []domain.Station
	if err := c.getJSON(ctx, c.baseURL+stationsPath, "stations", &stations); err != nil {
		return nil, err
	}
	return stations, nil
}

// FetchLevels returns readings for one station dated on or after start.
func (c *Client) FetchLevels(ctx context.Context, stationID, start string) ([]domain.LevelReading, error) {
	params := url.Values{
		"station__station_id": {stationID},
		"date__gte":           {start},
	}

	var readings []domain.LevelReading
	if err := c.getJSON(ctx, c.baseURL+levelsPath+"?"+params.Encode(), "levels", &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

func (c *Client) getJSON(ctx context.Context, fullURL, endpoint string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.BackendRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("%s request: rate limit wait: %w", endpoint, err)
	}

	start := time.Now()
	err := c.doRequest(ctx, fullURL, endpoint, v)
	c.metrics.BackendDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.BackendRequests.WithLabelValues(endpoint, "error").Inc()
		c.logger.Debug("backend request failed", "endpoint", endpoint, "url", fullURL, "error", err)
		return err
	}
	c.metrics.BackendRequests.WithLabelValues(endpoint, "success").Inc()
	return nil
}

func (c *Client) doRequest(ctx context.Context, fullURL, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("backend API error: %s: status %d: %s", endpoint, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}
