package domain

import (
	"math"
	"slices"
)

// ValidateCoverage returns ErrInvalidCoverage unless minCoverage is in (0, 1].
func ValidateCoverage(minCoverage float64) error {
	if math.IsNaN(minCoverage) || minCoverage <= 0 || minCoverage > 1 {
		return ErrInvalidCoverage
	}
	return nil
}

// FilterRegion returns the stations whose Region equals region exactly,
// keeping the first entry for each StationID in directory order.
func FilterRegion(stations []Station, region string) []Station {
	seen := make(map[string]bool)
	var out []Station
	for _, s := range stations {
		if s.Region != region || seen[s.StationID] {
			continue
		}
		seen[s.StationID] = true
		out = append(out, s)
	}
	return out
}

// StationNames returns the distinct station names in region, in directory order.
func StationNames(stations []Station, region string) []string {
	seen := make(map[string]bool)
	names := []string{}
	for _, s := range stations {
		if s.Region != region || seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		names = append(names, s.Name)
	}
	return names
}

// CoverageThreshold is the minimum number of reporting stations, out of
// total, for a point to count as covered: ceil(total * minCoverage).
// The product is stepped down one ulp before the ceiling so a rounding
// artefact such as 10*0.7 = 7.000000000000001 still yields 7.
func CoverageThreshold(total int, minCoverage float64) int {
	if total <= 0 {
		return 0
	}
	threshold := int(math.Ceil(math.Nextafter(float64(total)*minCoverage, 0)))
	if threshold < 1 {
		return 1
	}
	return threshold
}

// MergeReadings unions the dates of every successful fetch and averages the
// station values per date. Failed fetches contribute nothing. Readings with a
// malformed date or a non-finite value are ignored. The result is sorted by
// date and each point's TotalStations is set to total.
func MergeReadings(results []FetchResult, total int) []AggregatedPoint {
	type accumulator struct {
		sum      float64
		stations int
	}
	byDate := make(map[string]*accumulator)

	for _, r := range results {
		if !r.OK() {
			continue
		}
		for date, mean := range stationDailyMeans(r.Readings) {
			acc, ok := byDate[date]
			if !ok {
				acc = &accumulator{}
				byDate[date] = acc
			}
			acc.sum += mean
			acc.stations++
		}
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	slices.Sort(dates)

	points := make([]AggregatedPoint, 0, len(dates))
	for _, date := range dates {
		acc := byDate[date]
		points = append(points, AggregatedPoint{
			Date:              date,
			Value:             acc.sum / float64(acc.stations),
			StationsReporting: acc.stations,
			TotalStations:     total,
		})
	}
	return points
}

// stationDailyMeans collapses one station's readings to a single value per date.
func stationDailyMeans(readings []LevelReading) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range readings {
		date, ok := CalendarDate(r.Date)
		if !ok || math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			continue
		}
		sums[date] += r.Value
		counts[date]++
	}
	means := make(map[string]float64, len(sums))
	for date, sum := range sums {
		means[date] = sum / float64(counts[date])
	}
	return means
}

// TrimLowCoverage cuts points after the last one with at least
// CoverageThreshold(total, minCoverage) reporting stations. If no point
// qualifies the result is empty. points must already be sorted by date.
func TrimLowCoverage(points []AggregatedPoint, total int, minCoverage float64) ([]AggregatedPoint, error) {
	if err := ValidateCoverage(minCoverage); err != nil {
		return nil, err
	}
	threshold := CoverageThreshold(total, minCoverage)

	lastGood := -1
	for i, p := range points {
		if p.StationsReporting >= threshold {
			lastGood = i
		}
	}
	if lastGood < 0 {
		return []AggregatedPoint{}, nil
	}
	return points[:lastGood+1], nil
}

// AggregateFetchResults merges the fetch results of a region's total stations
// and applies the coverage trim.
func AggregateFetchResults(results []FetchResult, total int, minCoverage float64) ([]AggregatedPoint, error) {
	if err := ValidateCoverage(minCoverage); err != nil {
		return nil, err
	}
	return TrimLowCoverage(MergeReadings(results, total), total, minCoverage)
}
