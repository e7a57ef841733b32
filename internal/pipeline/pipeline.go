package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/groundwater-trends/internal/aggregator"
	"github.com/couchcryptid/groundwater-trends/internal/domain"
	"github.com/couchcryptid/groundwater-trends/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// RegionAggregator produces the series and station set for one region.
type RegionAggregator interface {
	Aggregate(ctx context.Context, region, startDate string, minCoverage float64) (aggregator.Region, error)
}

// SnapshotLoader writes a batch of region snapshots to a destination.
type SnapshotLoader interface {
	LoadBatch(ctx context.Context, snapshots []domain.RegionSnapshot) error
}

// Options configure the refresh loop.
type Options struct {
	Regions      []string
	MinCoverage  float64
	LookbackDays int
	Interval     time.Duration
}

// Pipeline periodically aggregates the configured regions, builds a
// snapshot for each and hands the batch to the loader.
type Pipeline struct {
	aggregator RegionAggregator
	builder    *SnapshotBuilder
	loader     SnapshotLoader
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	opts       Options
	ready      atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(agg RegionAggregator, builder *SnapshotBuilder, loader SnapshotLoader, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	return &Pipeline{
		aggregator: agg,
		builder:    builder,
		loader:     loader,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		opts:       opts,
	}
}

// CheckReadiness returns nil once at least one refresh cycle has loaded
// snapshots.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no region snapshots loaded yet")
	}
	return nil
}

// Run refreshes all regions immediately and then every Interval until the
// context is cancelled. A failed cycle is retried with exponential backoff
// instead of waiting for the next tick.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		"regions", p.opts.Regions,
		"interval", p.opts.Interval,
		"lookback_days", p.opts.LookbackDays,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for ctx.Err() == nil {
		wait := p.opts.Interval
		if err := p.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			p.logger.Error("refresh cycle failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = retry.NextBackoff(backoff, maxBackoff)
		} else {
			backoff = initialBackoff
		}

		if !p.sleep(ctx, wait) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// RunOnce performs a single refresh cycle. Regions that fail to aggregate
// are logged and left out of the batch; the cycle fails only when no region
// could be refreshed or the loader rejects the batch.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	started := p.clock.Now()
	start := domain.LookbackStart(started, p.opts.LookbackDays)

	snapshots := make([]domain.RegionSnapshot, 0, len(p.opts.Regions))
	for _, region := range p.opts.Regions {
		r, err := p.aggregator.Aggregate(ctx, region, start, p.opts.MinCoverage)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn("region refresh failed, skipping", "region", region, "error", err)
			continue
		}
		snap, err := p.builder.Build(region, start, p.opts.MinCoverage, r)
		if err != nil {
			p.logger.Warn("build snapshot failed, skipping", "region", region, "error", err)
			continue
		}
		snapshots = append(snapshots, snap)
	}

	if len(snapshots) == 0 {
		return fmt.Errorf("no regions refreshed out of %d", len(p.opts.Regions))
	}

	if err := p.loader.LoadBatch(ctx, snapshots); err != nil {
		p.metrics.PublishErrors.Inc()
		return fmt.Errorf("load snapshots: %w", err)
	}

	p.metrics.SnapshotsPublished.Add(float64(len(snapshots)))
	p.metrics.CycleDuration.Observe(p.clock.Since(started).Seconds())
	p.ready.Store(true)
	p.logger.Info("refresh cycle complete", "start", start, "snapshots", len(snapshots))
	return nil
}

// sleep waits on the injected clock so tests can drive the schedule.
func (p *Pipeline) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

// MultiLoader fans a batch out to several loaders in order. Every loader is
// attempted; their errors are joined.
type MultiLoader []SnapshotLoader

func (m MultiLoader) LoadBatch(ctx context.Context, snapshots []domain.RegionSnapshot) error {
	var errs []error
	for _, l := range m {
		if err := l.LoadBatch(ctx, snapshots); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
