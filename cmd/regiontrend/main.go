// Command regiontrend queries the groundwater backend from the command line:
// regional level series, station names, and trend classification.
//
// Usage:
//
//	regiontrend levels north --start 2024-01-01 --min-coverage 0.8
//	regiontrend stations north
//	regiontrend trend --current 100 --change 14 --window 7
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/groundwater-trends/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(observability.NewMetrics()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
