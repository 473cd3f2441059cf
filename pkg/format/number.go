// Package format renders analysis numbers as locale-independent text.
package format

import (
	"math"
	"strconv"
)

// Percent returns a percentage with two decimals and a percent sign (e.g., "-12.34%").
func Percent(value float64) string {
	return Fixed(value, 2) + "%"
}

// Rate returns an exchange rate with four decimals (e.g., "6.8512").
func Rate(value float64) string {
	return Fixed(value, 4)
}

// Fixed formats value with the given number of decimals. NaN and infinities
// render as "-". Negative zero renders without a sign.
func Fixed(value float64, places int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "-"
	}
	s := strconv.FormatFloat(value, 'f', places, 64)
	if s[0] == '-' {
		if z, err := strconv.ParseFloat(s, 64); err == nil && z == 0 {
			return s[1:]
		}
	}
	return s
}

// Direction labels a change as rising ("上升") or falling ("下降"). Zero is
// treated as falling.
func Direction(change float64) string {
	if change > 0 {
		return "上升"
	}
	return "下降"
}
