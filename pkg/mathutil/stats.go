// Package mathutil provides common mathematical and descriptive-statistics
// helpers used by the analysis.
package mathutil

import (
	"math"
	"sort"

	"github.com/iwvelando/bigmac-dashboard/pkg/constants"
)

// Round rounds a value to two decimals, the precision used when displaying
// percentages.
func Round(val float64) float64 {
	return RoundTo(val, 2)
}

// RoundTo rounds a value to the given number of decimal places.
func RoundTo(val float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(val*scale) / scale
}

// Sum adds all values.
func Sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// Mean returns the arithmetic mean, or NaN for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return Sum(values) / float64(len(values))
}

// Median returns the middle value (mean of the two middle values for even
// lengths), or NaN for an empty slice. The input is not modified.
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// StdDev returns the sample standard deviation (n-1 denominator). A single
// value has zero deviation; an empty slice yields NaN.
func StdDev(values []float64) float64 {
	switch len(values) {
	case 0:
		return math.NaN()
	case 1:
		return 0
	}
	mean := Mean(values)
	sq := 0.0
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1))
}

// Quantile returns the q-th quantile (0 <= q <= 1) using linear
// interpolation between closest ranks, or NaN for an empty slice.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}

// MinMax returns the smallest and largest value and their indices. For an
// empty slice both indices are -1. Ties resolve to the first occurrence.
func MinMax(values []float64) (minVal float64, minIdx int, maxVal float64, maxIdx int) {
	if len(values) == 0 {
		return math.NaN(), -1, math.NaN(), -1
	}
	minVal, maxVal = values[0], values[0]
	for i, v := range values {
		if v < minVal {
			minVal, minIdx = v, i
		}
		if v > maxVal {
			maxVal, maxIdx = v, i
		}
	}
	return minVal, minIdx, maxVal, maxIdx
}

// PercentChange returns (current-previous)/previous*100. ok is false when
// previous is zero.
func PercentChange(previous, current float64) (float64, bool) {
	if previous == 0 {
		return 0, false
	}
	return (current - previous) / previous * constants.PercentageMultiplier, true
}
