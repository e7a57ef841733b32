package main

import (
	"time"

	"github.com/couchcryptid/groundwater-trends/internal/domain"
	"github.com/spf13/cobra"
)

type levelsOutput struct {
	Region        string                   `json:"region"`
	Start         string                   `json:"start"`
	MinCoverage   float64                  `json:"min_coverage"`
	TotalStations int                      `json:"total_stations"`
	Series        []domain.AggregatedPoint `json:"series"`
	Summary       *domain.RegionSummary    `json:"summary,omitempty"`
}

func newLevelsCmd(opts *cliOptions) *cobra.Command {
	var start string

	cmd := &cobra.Command{
		Use:   "levels REGION",
		Short: "Print a region's daily mean level series",
		Long: `Fetch every station in REGION, average their readings per day and drop
trailing days where fewer than ceil(N*min-coverage) stations reported.

Examples:
  regiontrend levels north
  regiontrend levels north --start 2024-01-01 --min-coverage 0.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			region := args[0]
			if start == "" {
				start = domain.LookbackStart(time.Now(), opts.lookbackDays)
			}

			r, err := opts.aggregator().Aggregate(cmd.Context(), region, start, opts.minCoverage)
			if err != nil {
				return err
			}
			out := levelsOutput{
				Region:        region,
				Start:         start,
				MinCoverage:   opts.minCoverage,
				TotalStations: len(r.Stations),
				Series:        r.Series,
			}
			if summary, ok := domain.Summarize(r.Series); ok {
				out.Summary = &summary
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first date to include, YYYY-MM-DD (default: LOOKBACK_DAYS ago)")
	cmd.Flags().Float64Var(&opts.minCoverage, "min-coverage", 0, "fraction of stations a day needs, in (0, 1]")
	return cmd
}

func newStationsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stations REGION",
		Short: "Print the distinct station names in a region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := opts.aggregator().StationNames(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), names)
		},
	}
}

type trendOutput struct {
	Trend  domain.TrendResult `json:"trend"`
	Series []float64          `json:"series"`
	Stats  domain.SeriesStats `json:"stats"`
}

func newTrendCmd(opts *cliOptions) *cobra.Command {
	var current, change float64

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Classify a level change and print the synthetic trend line",
		Long: `Spread --change evenly over --window points ending at --current, then
report the per-step slope, its angle and a rising/falling/stable label.

Examples:
  regiontrend trend --current 100 --change 14
  regiontrend trend --current 3.2 --change -0.4 --window 14`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			trend, err := domain.ClassifyTrend(current, change, opts.trendWindow)
			if err != nil {
				return err
			}
			series, err := domain.SynthesizeSeries(current, change, opts.trendWindow)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), trendOutput{
				Trend:  trend,
				Series: series,
				Stats:  domain.Stats(series),
			})
		},
	}
	cmd.Flags().Float64Var(&current, "current", 0, "latest level")
	cmd.Flags().Float64Var(&change, "change", 0, "change over the window")
	cmd.Flags().IntVar(&opts.trendWindow, "window", 0, "number of points the change spans (default: TREND_WINDOW)")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("change")
	return cmd
}
