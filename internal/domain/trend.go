package domain

import "math"

// Direction is the qualitative trend label shown next to a level.
type Direction string

const (
	DirectionRising  Direction = "rising"
	DirectionFalling Direction = "falling"
	DirectionStable  Direction = "stable"
)

const (
	// DefaultTrendWindow is the number of daily points a weekly change spans.
	DefaultTrendWindow = 7

	// MinTrendWindow and MaxTrendWindow bound the window; a year of daily
	// points is the longest supported.
	MinTrendWindow = 2
	MaxTrendWindow = 366

	// Slopes within ±trendSlopeThreshold per step are labelled stable so
	// near-flat series do not flicker between rising and falling.
	trendSlopeThreshold = 0.2
)

// TrendResult is the slope, display angle and label derived from a change.
type TrendResult struct {
	Slope        float64   `json:"slope"`
	AngleDegrees float64   `json:"angle_degrees"`
	Direction    Direction `json:"direction"`
}

// ClassifyTrend derives the per-step slope of changeOverWindow spread across
// windowSize points, its angle in degrees and a direction label. current does
// not affect the result; it is accepted so callers pass the same pair they
// hand to SynthesizeSeries, and is validated the same way.
func ClassifyTrend(current, changeOverWindow float64, windowSize int) (TrendResult, error) {
	if err := validateTrendInput(current, changeOverWindow, windowSize); err != nil {
		return TrendResult{}, err
	}

	slope := changeOverWindow / float64(windowSize-1)
	result := TrendResult{
		Slope:        slope,
		AngleDegrees: math.Atan(slope) * (180 / math.Pi),
		Direction:    DirectionStable,
	}
	switch {
	case slope > trendSlopeThreshold:
		result.Direction = DirectionRising
	case slope < -trendSlopeThreshold:
		result.Direction = DirectionFalling
	}
	return result, nil
}

// SynthesizeSeries returns windowSize evenly spaced values running from
// current-changeOverWindow up to current, rounded to two decimals. It is a
// straight placeholder line for charts, not reconstructed history.
func SynthesizeSeries(current, changeOverWindow float64, windowSize int) ([]float64, error) {
	if err := validateTrendInput(current, changeOverWindow, windowSize); err != nil {
		return nil, err
	}

	start := current - changeOverWindow
	step := changeOverWindow / float64(windowSize-1)
	series := make([]float64, windowSize)
	for i := range series {
		series[i] = Round2(start + step*float64(i))
	}
	return series, nil
}

// ValidateTrendWindow returns ErrInvalidWindow unless windowSize is in
// [MinTrendWindow, MaxTrendWindow].
func ValidateTrendWindow(windowSize int) error {
	if windowSize < MinTrendWindow || windowSize > MaxTrendWindow {
		return ErrInvalidWindow
	}
	return nil
}

func validateTrendInput(current, changeOverWindow float64, windowSize int) error {
	if err := ValidateTrendWindow(windowSize); err != nil {
		return err
	}
	if !isFinite(current) || !isFinite(changeOverWindow) || !isFinite(current-changeOverWindow) {
		return ErrNonFiniteLevel
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
