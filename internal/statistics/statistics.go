// Package statistics summarizes indicator maps over their valid pixels.
package statistics

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Summary holds the per-map statistics consumed by the results document.
// Std is the population standard deviation; percentiles use the
// nearest-rank method, so they are always members of the input set.
type Summary struct {
	Mean   float64
	Median float64
	Std    float64
	Min    float64
	Max    float64
	P25    float64
	P75    float64
}

// Compute summarizes the finite subset of values. NaN and infinite entries
// are excluded; when nothing valid remains, every field is NaN so that the
// absence of data stays visible instead of collapsing to zero.
func Compute(values []float64) Summary {
	valid := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		valid = append(valid, v)
	}
	if len(valid) == 0 {
		nan := math.NaN()
		return Summary{Mean: nan, Median: nan, Std: nan, Min: nan, Max: nan, P25: nan, P75: nan}
	}

	// The stats helpers only error on empty input, excluded above.
	mean, _ := stats.Mean(valid)
	median, _ := stats.Median(valid)
	std, _ := stats.StandardDeviation(valid)
	lo, _ := stats.Min(valid)
	hi, _ := stats.Max(valid)
	p25, _ := stats.PercentileNearestRank(valid, 25)
	p75, _ := stats.PercentileNearestRank(valid, 75)

	return Summary{Mean: mean, Median: median, Std: std, Min: lo, Max: hi, P25: p25, P75: p75}
}

// Valid reports whether the summary was computed from at least one finite
// value.
func (s Summary) Valid() bool {
	return !math.IsNaN(s.Mean)
}
