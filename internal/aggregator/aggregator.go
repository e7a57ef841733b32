// Package aggregator builds regional groundwater series from per-station
// readings fetched through a domain.StationSource.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/groundwater-trends/internal/domain"
	"github.com/couchcryptid/groundwater-trends/internal/observability"
	"golang.org/x/sync/errgroup"
)

// DefaultMinCoverage is the fraction of region stations a date needs before
// it is shown.
const DefaultMinCoverage = 0.8

// Options tune the station fetch fan-out.
type Options struct {
	// FetchTimeout bounds each station fetch. Zero means no per-station limit.
	FetchTimeout time.Duration
	// Concurrency caps in-flight station fetches. Zero or less means unbounded.
	Concurrency int
}

// Aggregator fetches a region's stations and merges them into one series.
// It holds no per-call state and is safe for concurrent use.
type Aggregator struct {
	source  domain.StationSource
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates an Aggregator reading from source.
func New(source domain.StationSource, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		source:  source,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// Region is the result of one aggregation: the stations matched in the
// directory and the trimmed series.
type Region struct {
	Stations []domain.Station
	Series   []domain.AggregatedPoint
}

// AggregateRegion returns the region's daily mean series from startDate
// onward, cut after the last date on which at least ceil(N*minCoverage) of
// the region's N stations reported. An unknown region yields an empty series.
// Station fetch failures only remove that station's readings; a directory
// failure is returned as an error wrapping domain.ErrDirectoryUnavailable.
func (a *Aggregator) AggregateRegion(ctx context.Context, region, startDate string, minCoverage float64) ([]domain.AggregatedPoint, error) {
	r, err := a.Aggregate(ctx, region, startDate, minCoverage)
	if err != nil {
		return nil, err
	}
	return r.Series, nil
}

// Aggregate is AggregateRegion that also reports the matched stations.
func (a *Aggregator) Aggregate(ctx context.Context, region, startDate string, minCoverage float64) (Region, error) {
	if err := domain.ValidateCoverage(minCoverage); err != nil {
		return Region{}, err
	}
	if err := domain.ValidateStartDate(startDate); err != nil {
		return Region{}, err
	}

	start := time.Now()
	defer func() {
		a.metrics.AggregationDuration.Observe(time.Since(start).Seconds())
	}()

	stations, err := a.regionStations(ctx, region)
	if err != nil {
		a.metrics.RegionsAggregated.WithLabelValues("error").Inc()
		return Region{}, err
	}
	if len(stations) == 0 {
		a.logger.Info("no stations in region", "region", region)
		a.metrics.RegionsAggregated.WithLabelValues("empty").Inc()
		return Region{Stations: stations, Series: []domain.AggregatedPoint{}}, nil
	}

	results := a.fetchAll(ctx, stations, startDate)
	if err := ctx.Err(); err != nil {
		a.metrics.RegionsAggregated.WithLabelValues("error").Inc()
		return Region{}, err
	}

	merged := domain.MergeReadings(results, len(stations))
	series, err := domain.TrimLowCoverage(merged, len(stations), minCoverage)
	if err != nil {
		return Region{}, err
	}

	a.metrics.PointsTrimmed.Add(float64(len(merged) - len(series)))
	if len(series) == 0 {
		a.metrics.RegionsAggregated.WithLabelValues("empty").Inc()
	} else {
		a.metrics.RegionsAggregated.WithLabelValues("ok").Inc()
		latest := series[len(series)-1]
		a.metrics.RegionCoverage.WithLabelValues(region).Set(float64(latest.StationsReporting) / float64(len(stations)))
	}

	a.logger.Debug("region aggregated",
		"region", region,
		"start", startDate,
		"stations", len(stations),
		"points", len(merged),
		"retained", len(series),
	)
	return Region{Stations: stations, Series: series}, nil
}

// StationNames returns the distinct station names in region.
func (a *Aggregator) StationNames(ctx context.Context, region string) ([]string, error) {
	stations, err := a.listStations(ctx)
	if err != nil {
		return nil, err
	}
	return domain.StationNames(stations, region), nil
}

func (a *Aggregator) regionStations(ctx context.Context, region string) ([]domain.Station, error) {
	stations, err := a.listStations(ctx)
	if err != nil {
		return nil, err
	}
	return domain.FilterRegion(stations, region), nil
}

func (a *Aggregator) listStations(ctx context.Context) ([]domain.Station, error) {
	stations, err := a.source.ListStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDirectoryUnavailable, err)
	}
	return stations, nil
}

// fetchAll fetches every station concurrently. The returned slice is indexed
// like stations; a failed fetch leaves its Err set and never cancels the
// others.
func (a *Aggregator) fetchAll(ctx context.Context, stations []domain.Station, startDate string) []domain.FetchResult {
	results := make([]domain.FetchResult, len(stations))

	var g errgroup.Group
	if a.opts.Concurrency > 0 {
		g.SetLimit(a.opts.Concurrency)
	}
	for i, s := range stations {
		g.Go(func() error {
			results[i] = a.fetchStation(ctx, s.StationID, startDate)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (a *Aggregator) fetchStation(ctx context.Context, stationID, startDate string) domain.FetchResult {
	fetchCtx := ctx
	if a.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, a.opts.FetchTimeout)
		defer cancel()
	}

	readings, err := a.source.FetchLevels(fetchCtx, stationID, startDate)
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
		}
		a.metrics.StationFetches.WithLabelValues(outcome).Inc()
		a.logger.Warn("station fetch failed, excluding station",
			"station_id", stationID,
			"start", startDate,
			"outcome", outcome,
			"error", err,
		)
		return domain.FetchResult{StationID: stationID, Err: err}
	}

	a.metrics.StationFetches.WithLabelValues("success").Inc()
	return domain.FetchResult{StationID: stationID, Readings: readings}
}
