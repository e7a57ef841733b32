package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/groundwater-trends/internal/adapter/backend"
	"github.com/couchcryptid/groundwater-trends/internal/aggregator"
	"github.com/couchcryptid/groundwater-trends/internal/config"
	"github.com/couchcryptid/groundwater-trends/internal/observability"
	"github.com/spf13/cobra"
)

// cliOptions are the backend and aggregation settings shared by every
// subcommand. Flags left unset fall back to the service environment.
type cliOptions struct {
	baseURL        string
	timeout        time.Duration
	stationTimeout time.Duration
	rateLimit      float64
	concurrency    int
	minCoverage    float64
	lookbackDays   int
	trendWindow    int
	verbose        bool

	metrics *observability.Metrics
	logger  *slog.Logger
}

func newRootCmd(metrics *observability.Metrics) *cobra.Command {
	opts := &cliOptions{metrics: metrics}

	root := &cobra.Command{
		Use:   "regiontrend",
		Short: "Regional groundwater levels and trends",
		Long: `regiontrend aggregates station readings from the groundwater backend into
regional daily series and classifies level trends.

Backend settings default to the same environment variables the service reads
(BACKEND_BASE_URL, BACKEND_TIMEOUT, MIN_COVERAGE, ...); flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.baseURL, "base-url", "", "backend API base URL")
	flags.DurationVar(&opts.timeout, "timeout", 0, "backend request timeout")
	flags.DurationVar(&opts.stationTimeout, "station-timeout", 0, "per-station fetch timeout")
	flags.Float64Var(&opts.rateLimit, "rate-limit", 0, "backend requests per second (0 = unlimited)")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "maximum concurrent station fetches")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(
		newLevelsCmd(opts),
		newStationsCmd(opts),
		newTrendCmd(opts),
	)
	return root
}

// resolve fills unset flags from the environment and builds the logger.
func (o *cliOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("base-url") {
		o.baseURL = cfg.BackendBaseURL
	}
	if !flags.Changed("timeout") {
		o.timeout = cfg.BackendTimeout
	}
	if !flags.Changed("station-timeout") {
		o.stationTimeout = cfg.StationFetchTimeout
	}
	if !flags.Changed("rate-limit") {
		o.rateLimit = cfg.BackendRateLimit
	}
	if !flags.Changed("concurrency") {
		o.concurrency = cfg.FetchConcurrency
	}
	if !flags.Changed("min-coverage") {
		o.minCoverage = cfg.MinCoverage
	}
	if !flags.Changed("window") {
		o.trendWindow = cfg.TrendWindow
	}
	o.lookbackDays = cfg.LookbackDays

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	o.logger = observability.NewLoggerTo(cmd.ErrOrStderr(), level, "text")
	return nil
}

func (o *cliOptions) aggregator() *aggregator.Aggregator {
	client := backend.NewClient(o.baseURL, o.timeout, o.rateLimit, o.metrics, o.logger)
	return aggregator.New(client, aggregator.Options{
		FetchTimeout: o.stationTimeout,
		Concurrency:  o.concurrency,
	}, o.logger, o.metrics)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
