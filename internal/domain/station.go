package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidCoverage is returned when a coverage fraction is outside (0, 1].
	ErrInvalidCoverage = errors.New("min coverage must be in (0, 1]")

	// ErrInvalidWindow is returned when a trend window is outside
	// [MinTrendWindow, MaxTrendWindow].
	ErrInvalidWindow = errors.New("trend window size must be between 2 and 366")

	// ErrNonFiniteLevel is returned when a trend input or the level it implies
	// is NaN or infinite.
	ErrNonFiniteLevel = errors.New("trend level and change must be finite numbers")

	// ErrInvalidStartDate is returned when a start date is not YYYY-MM-DD.
	ErrInvalidStartDate = errors.New("start date must be an ISO calendar date (YYYY-MM-DD)")

	// ErrDirectoryUnavailable wraps failures to load the station directory.
	ErrDirectoryUnavailable = errors.New("station directory unavailable")
)

// Station is a monitoring borehole as listed by the backend directory.
type Station struct {
	StationID string `json:"station_id"`
	Name      string `json:"name"`
	Region    string `json:"region"`
}

// LevelReading is one station's reading for a calendar date.
type LevelReading struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// AggregatedPoint is a region's mean level for one date.
type AggregatedPoint struct {
	Date              string  `json:"date"`
	Value             float64 `json:"value"`
	StationsReporting int     `json:"stations_reporting"`
	TotalStations     int     `json:"total_stations"`
}

// FetchResult is the outcome of fetching one station's readings. Err is set
// when the fetch failed; the station then contributes nothing, which is not
// the same as a successful fetch that returned no readings.
type FetchResult struct {
	StationID string
	Readings  []LevelReading
	Err       error
}

// OK reports whether the fetch succeeded.
func (r FetchResult) OK() bool { return r.Err == nil }

// StationSource is the read-only backend the aggregator pulls from.
type StationSource interface {
	// ListStations returns the full station directory.
	ListStations(ctx context.Context) ([]Station, error)

	// FetchLevels returns readings for one station dated on or after start.
	FetchLevels(ctx context.Context, stationID, start string) ([]LevelReading, error)
}

// RegionSnapshot is a region's series and the indicators derived from it at
// one point in time. Summary, Trend and SyntheticTrend are unset when the
// series is empty.
type RegionSnapshot struct {
	Region         string            `json:"region"`
	Start          string            `json:"start"`
	MinCoverage    float64           `json:"min_coverage"`
	TotalStations  int               `json:"total_stations"`
	Series         []AggregatedPoint `json:"series"`
	Summary        *RegionSummary    `json:"summary,omitempty"`
	Trend          *TrendResult      `json:"trend,omitempty"`
	SyntheticTrend []float64         `json:"synthetic_trend,omitempty"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// HasData reports whether the snapshot carries any series points.
func (s RegionSnapshot) HasData() bool { return len(s.Series) > 0 }
