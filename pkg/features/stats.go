package features

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats is a descriptive summary of an array of values.
type Stats struct {
	Min, Max, Mean, Std, Median, Variance float64
}

// Describe summarizes a slice of values. An empty slice yields the zero
// Stats.
func Describe(data []float64) Stats {
	if len(data) == 0 {
		return Stats{}
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	return Stats{
		Min:      floats.Min(sorted),
		Max:      floats.Max(sorted),
		Mean:     stat.Mean(sorted, nil),
		Std:      stat.PopStdDev(sorted, nil),
		Median:   stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Variance: stat.PopVariance(sorted, nil),
	}
}
