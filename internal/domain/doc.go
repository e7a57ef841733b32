// Package domain models regional groundwater level series and the trend
// indicators derived from them.
//
// # Data Source
//
// Stations and their readings are owned by the backend water-levels API. The
// station directory lists every monitored borehole with the region it reports
// into; the level endpoint returns one station's daily readings from a start
// date onward. Nothing here is persisted: every series is rebuilt from a fresh
// fetch.
//
// # Regional Series
//
// A region's series is the per-date mean over the stations in that region:
//
//	value(d)              = mean of station values reported on date d
//	stations_reporting(d) = number of stations that reported on date d
//	total_stations        = N, the number of distinct stations in the region
//
// A station reporting several values for one date contributes the mean of
// those values once, so coverage counts stations rather than readings.
//
// # Coverage Trim
//
// Recent dates are usually still collecting station reports. With
//
//	threshold = ceil(N * minCoverage)
//
// the series is cut after the last point whose stations_reporting reaches the
// threshold. Everything after that point is dropped, even if a later point on
// its own would qualify again. Coverage is not required to be monotonic before
// the cut: an earlier dip is kept when a later point reaches the threshold.
// See [TrimLowCoverage].
//
// # Trend Classification
//
// Dashboard cards show a trend arrow from only two numbers, the current level
// and its change over a window of W days:
//
//	slope = change / (W - 1)
//	angle = atan(slope) in degrees
//	rising if slope > 0.2, falling if slope < -0.2, stable otherwise
//
// [SynthesizeSeries] draws the matching straight line of W points for
// sparklines. It is a placeholder, not observed history.
package domain
