package pipeline

import (
	"github.com/couchcryptid/groundwater-trends/internal/aggregator"
	"github.com/couchcryptid/groundwater-trends/internal/domain"
	"github.com/jonboulle/clockwork"
)

// SnapshotBuilder turns an aggregated region into a RegionSnapshot with its
// summary and trend indicators.
type SnapshotBuilder struct {
	clock       clockwork.Clock
	trendWindow int
}

// NewSnapshotBuilder creates a builder classifying trends over trendWindow
// points. A nil clock uses the real clock.
func NewSnapshotBuilder(clock clockwork.Clock, trendWindow int) *SnapshotBuilder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SnapshotBuilder{clock: clock, trendWindow: trendWindow}
}

func (b *SnapshotBuilder) Build(region, start string, minCoverage float64, r aggregator.Region) (domain.RegionSnapshot, error) {
	series := r.Series
	if series == nil {
		series = []domain.AggregatedPoint{}
	}
	snap := domain.RegionSnapshot{
		Region:        region,
		Start:         start,
		MinCoverage:   minCoverage,
		TotalStations: len(r.Stations),
		Series:        series,
		GeneratedAt:   b.clock.Now().UTC(),
	}

	summary, ok := domain.Summarize(series)
	if !ok {
		return snap, nil
	}
	trend, err := domain.ClassifyTrend(summary.CurrentLevel, summary.ChangeOverPeriod, b.trendWindow)
	if err != nil {
		return domain.RegionSnapshot{}, err
	}
	synthetic, err := domain.SynthesizeSeries(summary.CurrentLevel, summary.ChangeOverPeriod, b.trendWindow)
	if err != nil {
		return domain.RegionSnapshot{}, err
	}

	snap.Summary = &summary
	snap.Trend = &trend
	snap.SyntheticTrend = synthetic
	return snap, nil
}
