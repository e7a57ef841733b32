package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/couchcryptid/groundwater-trends/internal/aggregator"
	"github.com/couchcryptid/groundwater-trends/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

// RegionService aggregates regions on demand.
type RegionService interface {
	Aggregate(ctx context.Context, region, startDate string, minCoverage float64) (aggregator.Region, error)
	StationNames(ctx context.Context, region string) ([]string, error)
}

// SnapshotReader returns the latest stored snapshot for a region.
type SnapshotReader interface {
	Latest(region string) (domain.RegionSnapshot, bool)
}

// Defaults fill in query parameters the caller leaves out.
type Defaults struct {
	MinCoverage  float64
	LookbackDays int
	TrendWindow  int
}

// API serves the region and trend endpoints.
type API struct {
	regions   RegionService
	snapshots SnapshotReader
	defaults  Defaults
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewAPI creates the region API. A nil clock uses the real clock.
func NewAPI(regions RegionService, snapshots SnapshotReader, defaults Defaults, clock clockwork.Clock, logger *slog.Logger) *API {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &API{
		regions:   regions,
		snapshots: snapshots,
		defaults:  defaults,
		clock:     clock,
		logger:    logger,
	}
}

func (a *API) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/regions/{region}/levels", a.handleLevels)
	mux.HandleFunc("GET /api/regions/{region}/stations", a.handleStations)
	mux.HandleFunc("GET /api/regions/{region}/snapshot", a.handleSnapshot)
	mux.HandleFunc("GET /api/trend", a.handleTrend)
}

type levelsResponse struct {
	Region        string                   `json:"region"`
	Start         string                   `json:"start"`
	MinCoverage   float64                  `json:"min_coverage"`
	TotalStations int                      `json:"total_stations"`
	Series        []domain.AggregatedPoint `json:"series"`
}

func (a *API) handleLevels(w http.ResponseWriter, r *http.Request) {
	region := r.PathValue("region")
	q := r.URL.Query()

	start := q.Get("start")
	if start == "" {
		start = domain.LookbackStart(a.clock.Now(), a.defaults.LookbackDays)
	}
	minCoverage := a.defaults.MinCoverage
	if raw := q.Get("min_coverage"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_coverage must be a number")
			return
		}
		minCoverage = v
	}

	result, err := a.regions.Aggregate(r.Context(), region, start, minCoverage)
	if err != nil {
		a.writeServiceError(w, region, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, levelsResponse{
		Region:        region,
		Start:         start,
		MinCoverage:   minCoverage,
		TotalStations: len(result.Stations),
		Series:        result.Series,
	})
}

func (a *API) handleStations(w http.ResponseWriter, r *http.Request) {
	region := r.PathValue("region")
	names, err := a.regions.StationNames(r.Context(), region)
	if err != nil {
		a.writeServiceError(w, region, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"region":   region,
		"stations": names,
	})
}

func (a *API) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	region := r.PathValue("region")
	snap, ok := a.snapshots.Latest(region)
	if !ok {
		writeError(w, http.StatusNotFound, "no snapshot for region "+region)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, snap)
}

type trendResponse struct {
	Trend  domain.TrendResult `json:"trend"`
	Series []float64          `json:"series"`
	Stats  domain.SeriesStats `json:"stats"`
}

func (a *API) handleTrend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	current, err := strconv.ParseFloat(q.Get("current"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "current must be a number")
		return
	}
	change, err := strconv.ParseFloat(q.Get("change"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "change must be a number")
		return
	}
	window := a.defaults.TrendWindow
	if raw := q.Get("window"); raw != "" {
		window, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "window must be an integer")
			return
		}
	}

	trend, err := domain.ClassifyTrend(current, change, window)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	series, err := domain.SynthesizeSeries(current, change, window)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, trendResponse{
		Trend:  trend,
		Series: series,
		Stats:  domain.Stats(series),
	})
}

func (a *API) writeServiceError(w http.ResponseWriter, region string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCoverage), errors.Is(err, domain.ErrInvalidStartDate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrDirectoryUnavailable):
		a.logger.Warn("station directory unavailable", "region", region, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		a.logger.Error("region request failed", "region", region, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
