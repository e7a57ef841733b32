package aggregator_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/groundwater-trends/internal/aggregator"
	"github.com/couchcryptid/groundwater-trends/internal/domain"
	"github.com/couchcryptid/groundwater-trends/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	regionNorth = "north"
	startDate   = "2024-01-01"
	day1        = "2024-02-01"
	day2        = "2024-02-02"
)

// --- fake station source ---

type fakeSource struct {
	stations    []domain.Station
	levels      map[string][]domain.LevelReading
	failures    map[string]error
	delays      map[string]time.Duration
	listErr     error
	mu          sync.Mutex
	fetched     []string
	starts      []string
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeSource) ListStations(_ context.Context) ([]domain.Station, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.stations, nil
}

func (f *fakeSource) FetchLevels(ctx context.Context, stationID, start string) ([]domain.LevelReading, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.fetched = append(f.fetched, stationID)
	f.starts = append(f.starts, start)
	f.mu.Unlock()

	if d := f.delays[stationID]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.failures[stationID]; err != nil {
		return nil, err
	}
	return f.levels[stationID], nil
}

func northSource() *fakeSource {
	return &fakeSource{
		stations: []domain.Station{
			{StationID: "A", Name: "Station A", Region: regionNorth},
			{StationID: "B", Name: "Station B", Region: regionNorth},
			{StationID: "C", Name: "Station C", Region: "south"},
		},
		levels: map[string][]domain.LevelReading{
			"A": {{Date: day1, Value: 10}, {Date: day2, Value: 20}},
			"B": {{Date: day1, Value: 20}, {Date: day2, Value: 40}},
			"C": {{Date: day1, Value: 999}},
		},
	}
}

func newAggregator(src domain.StationSource, opts aggregator.Options) (*aggregator.Aggregator, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	return aggregator.New(src, opts, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics), metrics
}

// --- tests ---

func TestAggregateRegion_FullCoverage(t *testing.T) {
	src := northSource()
	agg, metrics := newAggregator(src, aggregator.Options{})

	got, err := agg.AggregateRegion(context.Background(), regionNorth, startDate, aggregator.DefaultMinCoverage)
	require.NoError(t, err)

	assert.Equal(t, []domain.AggregatedPoint{
		{Date: day1, Value: 15, StationsReporting: 2, TotalStations: 2},
		{Date: day2, Value: 30, StationsReporting: 2, TotalStations: 2},
	}, got)
	assert.ElementsMatch(t, []string{"A", "B"}, src.fetched, "only region stations are fetched")
	assert.Equal(t, []string{startDate, startDate}, src.starts)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RegionsAggregated.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RegionCoverage.WithLabelValues(regionNorth)))
}

func TestAggregateRegion_TrailingGapTrimmed(t *testing.T) {
	src := northSource()
	src.levels["B"] = []domain.LevelReading{{Date: day1, Value: 20}}
	agg, metrics := newAggregator(src, aggregator.Options{})

	got, err := agg.AggregateRegion(context.Background(), regionNorth, startDate, 0.8)
	require.NoError(t, err)

	assert.Equal(t, []domain.AggregatedPoint{
		{Date: day1, Value: 15, StationsReporting: 2, TotalStations: 2},
	}, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PointsTrimmed))
}

func TestAggregateRegion_StationFailureDegrades(t *testing.T) {
	src := northSource()
	src.failures = map[string]error{"B": errors.New("502 bad gateway")}
	agg, metrics := newAggregator(src, aggregator.Options{})

	got, err := agg.AggregateRegion(context.Background(), regionNorth, startDate, 0.5)
	require.NoError(t, err)

	assert.Equal(t, []domain.AggregatedPoint{
		{Date: day1, Value: 10, StationsReporting: 1, TotalStations: 2},
		{Date: day2, Value: 20, StationsReporting: 1, TotalStations: 2},
	}, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StationFetches.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StationFetches.WithLabelValues("success")))
}

func TestAggregateRegion_StationFailureBelowThreshold(t *testing.T) {
	src := northSource()
	src.failures = map[string]error{"B": errors.New("boom")}
	agg, _ := newAggregator(src, aggregator.Options{})

	got, err := agg.AggregateRegion(context.Background(), regionNorth, startDate, 0.8)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAggregateRegion_TimeoutTreatedAsFailure(t *testing.T) {
	src := northSource()
	src.delays = map[string]time.Duration{"B": time.Second}
	agg, metrics := newAggregator(src, aggregator.Options{FetchTimeout: 20 * time.Millisecond})

	got, err := agg.AggregateRegion(context.Background(), regionNorth, startDate, 0.5)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].StationsReporting)
	assert.Equal(t, 10.0, got[0].Value)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StationFetches.WithLabelValues("timeout")))
}

func TestAggregateRegion_UnknownRegionIsEmpty(t *testing.T) {
	src := northSource()
	agg, metrics := newAggregator(src, aggregator.Options{})

	got, err := agg.AggregateRegion(context.Background(), "North", startDate, 0.8)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, src.fetched)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RegionsAggregated.WithLabelValues("empty")))
}

func TestAggregateRegion_DirectoryFailure(t *testing.T) {
	src := northSource()
	src.listErr = errors.New("connection refused")
	agg, _ := newAggregator(src, aggregator.Options{})

	_, err := agg.AggregateRegion(context.Background(), regionNorth, startDate, 0.8)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDirectoryUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAggregateRegion_InvalidArguments(t *testing.T) {
	src := northSource()
	agg, _ := newAggregator(src, aggregator.Options{})

	_, err := agg.AggregateRegion(context.Background(), regionNorth, startDate, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidCoverage)

	_, err = agg.AggregateRegion(context.Background(), regionNorth, startDate, 1.01)
	assert.ErrorIs(t, err, domain.ErrInvalidCoverage)

	_, err = agg.AggregateRegion(context.Background(), regionNorth, "01/01/2024", 0.8)
	assert.ErrorIs(t, err, domain.ErrInvalidStartDate)

	assert.Empty(t, src.fetched, "invalid arguments fail before any fetch")
}

func TestAggregateRegion_CancelledContext(t *testing.T) {
	src := northSource()
	src.delays = map[string]time.Duration{"A": time.Second, "B": time.Second}
	agg, _ := newAggregator(src, aggregator.Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := agg.AggregateRegion(ctx, regionNorth, startDate, 0.8)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAggregateRegion_ConcurrencyLimit(t *testing.T) {
	src := &fakeSource{levels: map[string][]domain.LevelReading{}, delays: map[string]time.Duration{}}
	for _, id := range []string{"S1", "S2", "S3", "S4", "S5", "S6"} {
		src.stations = append(src.stations, domain.Station{StationID: id, Name: id, Region: regionNorth})
		src.levels[id] = []domain.LevelReading{{Date: day1, Value: 1}}
		src.delays[id] = 10 * time.Millisecond
	}
	agg, _ := newAggregator(src, aggregator.Options{Concurrency: 2})

	got, err := agg.AggregateRegion(context.Background(), regionNorth, startDate, 1)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, 6, got[0].StationsReporting)
	assert.LessOrEqual(t, src.maxInFlight.Load(), int32(2))
}

func TestAggregateRegion_Idempotent(t *testing.T) {
	src := northSource()
	agg, _ := newAggregator(src, aggregator.Options{})

	first, err := agg.AggregateRegion(context.Background(), regionNorth, startDate, 0.8)
	require.NoError(t, err)
	second, err := agg.AggregateRegion(context.Background(), regionNorth, startDate, 0.8)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAggregate_ReportsStations(t *testing.T) {
	src := northSource()
	agg, _ := newAggregator(src, aggregator.Options{})

	r, err := agg.Aggregate(context.Background(), regionNorth, startDate, 0.8)
	require.NoError(t, err)
	assert.Len(t, r.Stations, 2)
	assert.Len(t, r.Series, 2)
}

func TestStationNames(t *testing.T) {
	src := northSource()
	src.stations = append(src.stations, domain.Station{StationID: "B", Name: "Station B", Region: regionNorth})
	agg, _ := newAggregator(src, aggregator.Options{})

	names, err := agg.StationNames(context.Background(), regionNorth)
	require.NoError(t, err)
	assert.Equal(t, []string{"Station A", "Station B"}, names)

	src.listErr = errors.New("down")
	_, err = agg.StationNames(context.Background(), regionNorth)
	assert.ErrorIs(t, err, domain.ErrDirectoryUnavailable)
}
