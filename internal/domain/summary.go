package domain

// RegionSummary holds the headline numbers of a region card.
type RegionSummary struct {
	CurrentLevel          float64 `json:"current_level"`
	LastUpdated           string  `json:"last_updated"`
	AverageLevel          float64 `json:"average_level"`
	ChangeOverPeriod      float64 `json:"change_over_period"`
	DifferenceFromAverage float64 `json:"difference_from_average"`
	Highest               float64 `json:"highest"`
	Lowest                float64 `json:"lowest"`
}

// SeriesStats are the extremes and mean of a run of values.
type SeriesStats struct {
	Highest float64 `json:"highest"`
	Lowest  float64 `json:"lowest"`
	Average float64 `json:"average"`
}

// Stats computes highest, lowest and average of values. An empty slice
// yields the zero value.
func Stats(values []float64) SeriesStats {
	if len(values) == 0 {
		return SeriesStats{}
	}
	stats := SeriesStats{Highest: values[0], Lowest: values[0]}
	var sum float64
	for _, v := range values {
		stats.Highest = max(stats.Highest, v)
		stats.Lowest = min(stats.Lowest, v)
		sum += v
	}
	stats.Average = sum / float64(len(values))
	return stats
}

// Summarize reduces a date-sorted series to its latest level, the change
// from the first point and the position relative to the series mean.
// Levels and differences are rounded to two decimals. ok is false for an
// empty series.
func Summarize(series []AggregatedPoint) (summary RegionSummary, ok bool) {
	if len(series) == 0 {
		return RegionSummary{}, false
	}

	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Value
	}
	stats := Stats(values)

	first, latest := series[0], series[len(series)-1]
	return RegionSummary{
		CurrentLevel:          Round2(latest.Value),
		LastUpdated:           latest.Date,
		AverageLevel:          Round2(stats.Average),
		ChangeOverPeriod:      Round2(latest.Value - first.Value),
		DifferenceFromAverage: Round2(latest.Value - stats.Average),
		Highest:               stats.Highest,
		Lowest:                stats.Lowest,
	}, true
}
