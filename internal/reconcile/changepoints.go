package reconcile

import (
	"fmt"
	"math"
	"sort"

	"github.com/iwvelando/bigmac-dashboard/pkg/format"
	"github.com/iwvelando/bigmac-dashboard/pkg/mathutil"
)

// Magnitude labels, relative to the detection threshold.
const (
	MagnitudeExtreme     = "极大"
	MagnitudeLarge       = "较大"
	MagnitudeSignificant = "显著"
)

// ChangePoint is a record whose deviation moved more than the threshold
// since the previous record.
type ChangePoint struct {
	Record
	Change    float64
	AbsChange float64
	Direction string
	Magnitude string
}

// Magnitude grades an absolute change against threshold.
func Magnitude(absChange, threshold float64) string {
	switch {
	case absChange > threshold*2:
		return MagnitudeExtreme
	case absChange > threshold*1.5:
		return MagnitudeLarge
	default:
		return MagnitudeSignificant
	}
}

// Diffs returns the record-over-record change of DeviationPct. The result
// has len(records)-1 entries; entry i is the change into records[i+1].
func Diffs(records []Record) []float64 {
	if len(records) < 2 {
		return nil
	}
	out := make([]float64, len(records)-1)
	for i := 1; i < len(records); i++ {
		out[i-1] = records[i].DeviationPct - records[i-1].DeviationPct
	}
	return out
}

// DetectChangePoints flags the records whose absolute deviation change
// reaches the given percentile of all absolute changes. A change equal to
// the threshold counts only when it is nonzero. The
// percentile must lie in (0, 100). It returns the flagged records in date
// order together with the threshold. With a single record there are no
// changes, so the result is empty and the threshold is zero.
func DetectChangePoints(records []Record, percentile float64) ([]ChangePoint, float64, error) {
	if math.IsNaN(percentile) || percentile <= 0 || percentile >= 100 {
		return nil, 0, fmt.Errorf("%w: percentile must be in (0, 100), got %v", ErrInvalidParameter, percentile)
	}
	if len(records) == 0 {
		return nil, 0, fmt.Errorf("%w: no records to scan for change points", ErrInsufficientData)
	}

	diffs := Diffs(records)
	if len(diffs) == 0 {
		return []ChangePoint{}, 0, nil
	}
	abs := make([]float64, len(diffs))
	for i, d := range diffs {
		abs[i] = math.Abs(d)
	}
	threshold := mathutil.Quantile(abs, percentile/100)

	points := []ChangePoint{}
	for i, a := range abs {
		if a < threshold || a == 0 {
			continue
		}
		points = append(points, ChangePoint{
			Record:    records[i+1],
			Change:    diffs[i],
			AbsChange: a,
			Direction: format.Direction(diffs[i]),
			Magnitude: Magnitude(a, threshold),
		})
	}
	return points, threshold, nil
}

// YearCount is the number of change points in one calendar year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// ChangePointPattern describes a set of change points as a whole.
type ChangePointPattern struct {
	Count        int         `json:"count"`
	AvgMagnitude float64     `json:"avgMagnitude"`
	Rising       int         `json:"rising"`
	Falling      int         `json:"falling"`
	RisingPct    float64     `json:"risingPct"`
	ByYear       []YearCount `json:"byYear"`
	// BusiestYear is the earliest year with the most change points, or zero
	// when there are fewer than three points.
	BusiestYear int `json:"busiestYear,omitempty"`
}

// Pattern summarizes direction and yearly distribution of points.
func Pattern(points []ChangePoint) ChangePointPattern {
	p := ChangePointPattern{Count: len(points)}
	if len(points) == 0 {
		return p
	}

	abs := make([]float64, len(points))
	perYear := map[int]int{}
	for i, cp := range points {
		abs[i] = cp.AbsChange
		switch {
		case cp.Change > 0:
			p.Rising++
		case cp.Change < 0:
			p.Falling++
		}
		perYear[cp.Date.Year()]++
	}
	p.AvgMagnitude = mathutil.Mean(abs)
	p.RisingPct = float64(p.Rising) / float64(len(points)) * 100

	for year, count := range perYear {
		p.ByYear = append(p.ByYear, YearCount{Year: year, Count: count})
	}
	sort.Slice(p.ByYear, func(i, j int) bool { return p.ByYear[i].Year < p.ByYear[j].Year })

	if len(points) >= 3 {
		best := 0
		for _, yc := range p.ByYear {
			if yc.Count > best {
				best, p.BusiestYear = yc.Count, yc.Year
			}
		}
	}
	return p
}
