package task

import "math"

const (
	// EstimatorCeiling is the progress at which the estimator stops.  A task
	// ticked from below the ceiling may overshoot it slightly, never 100.
	EstimatorCeiling = 95.0

	minIncrement = 0.5
	easing       = 20.0
	// Upper bound for estimated progress; only completion reaches 100.
	maxEstimated = 99.9
)

// NextProgress applies one estimator step: increment = max(0.5, (100-p)/20)
// while p is below EstimatorCeiling.  The curve decelerates toward 100
// without reaching it, independently of real gateway latency.
func NextProgress(p float64) float64 {
	if p < 0 || math.IsNaN(p) {
		p = 0
	}
	if p >= EstimatorCeiling {
		return p
	}
	next := p + math.Max(minIncrement, (100-p)/easing)
	return math.Min(next, maxEstimated)
}
