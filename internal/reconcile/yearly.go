package reconcile

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/iwvelando/bigmac-dashboard/pkg/events"
	"github.com/iwvelando/bigmac-dashboard/pkg/format"
	"github.com/iwvelando/bigmac-dashboard/pkg/mathutil"
)

// YearlyAverage holds the calendar-year means of a record set. The YoY
// fields compare against the previous year present in the data and are nil
// for the first year.
type YearlyAverage struct {
	Year           int      `json:"year"`
	Records        int      `json:"records"`
	ActualRate     float64  `json:"actualRate"`
	ImpliedRate    float64  `json:"impliedRate"`
	DeviationPct   float64  `json:"deviationPct"`
	ActualRateYoY  *float64 `json:"actualRateYoY,omitempty"`
	ImpliedRateYoY *float64 `json:"impliedRateYoY,omitempty"`
}

// YearlyAverages groups records by calendar year, ascending.
func YearlyAverages(records []Record) []YearlyAverage {
	type bucket struct{ actual, implied, dev []float64 }
	buckets := map[int]*bucket{}
	for _, r := range records {
		y := r.Date.Year()
		b, ok := buckets[y]
		if !ok {
			b = &bucket{}
			buckets[y] = b
		}
		b.actual = append(b.actual, r.ActualRate)
		b.implied = append(b.implied, r.ImpliedRate)
		b.dev = append(b.dev, r.DeviationPct)
	}

	years := make([]int, 0, len(buckets))
	for y := range buckets {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]YearlyAverage, 0, len(years))
	for i, y := range years {
		b := buckets[y]
		ya := YearlyAverage{
			Year:         y,
			Records:      len(b.dev),
			ActualRate:   mathutil.Mean(b.actual),
			ImpliedRate:  mathutil.Mean(b.implied),
			DeviationPct: mathutil.Mean(b.dev),
		}
		if i > 0 {
			prev := out[i-1]
			if v, ok := mathutil.PercentChange(prev.ActualRate, ya.ActualRate); ok {
				ya.ActualRateYoY = &v
			}
			if v, ok := mathutil.PercentChange(prev.ImpliedRate, ya.ImpliedRate); ok {
				ya.ImpliedRateYoY = &v
			}
		}
		out = append(out, ya)
	}
	return out
}

// MovingAverage returns the trailing mean of DeviationPct over window
// records. The first window-1 entries are nil.
func MovingAverage(records []Record, window int) ([]*float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: moving average window must be at least 1, got %d", ErrInvalidParameter, window)
	}
	out := make([]*float64, len(records))
	sum := 0.0
	for i, r := range records {
		sum += r.DeviationPct
		if i >= window {
			sum -= records[i-window].DeviationPct
		}
		if i+1 >= window {
			v := sum / float64(window)
			out[i] = &v
		}
	}
	return out, nil
}

// Policy impact assessments.
const (
	ImpactSignificant = "显著影响"
	ImpactModerate    = "中等影响"
	ImpactMinor       = "影响较小"
)

// Impact compares the mean deviation before and after an event.
type Impact struct {
	Event      events.Event `json:"event"`
	Before     float64      `json:"before"`
	After      float64      `json:"after"`
	Change     float64      `json:"change"`
	Direction  string       `json:"direction"`
	Assessment string       `json:"assessment"`
}

// Assess grades the size of a deviation shift.
func Assess(change float64) string {
	switch a := math.Abs(change); {
	case a > 5:
		return ImpactSignificant
	case a > 2:
		return ImpactModerate
	default:
		return ImpactMinor
	}
}

// PolicyImpact averages DeviationPct over the spanDays before the event
// (exclusive of the event day) and the spanDays from the event day onward.
// ok is false when the event lies less than spanDays inside the records'
// date range or either side has no records.
func PolicyImpact(records []Record, event events.Event, spanDays int) (Impact, bool) {
	if len(records) == 0 || spanDays < 1 {
		return Impact{}, false
	}
	first, last := records[0].Date, records[0].Date
	for _, r := range records {
		if r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}
	span := time.Duration(spanDays) * 24 * time.Hour
	if event.Date.Before(first.Add(span)) || event.Date.After(last.Add(-span)) {
		return Impact{}, false
	}

	var before, after []float64
	for _, r := range records {
		switch {
		case !r.Date.Before(event.Date.Add(-span)) && r.Date.Before(event.Date):
			before = append(before, r.DeviationPct)
		case !r.Date.Before(event.Date) && r.Date.Before(event.Date.Add(span)):
			after = append(after, r.DeviationPct)
		}
	}
	if len(before) == 0 || len(after) == 0 {
		return Impact{}, false
	}

	b, a := mathutil.Mean(before), mathutil.Mean(after)
	change := a - b
	return Impact{
		Event:      event,
		Before:     b,
		After:      a,
		Change:     change,
		Direction:  format.Direction(change),
		Assessment: Assess(change),
	}, true
}

// PolicyImpacts evaluates every event that qualifies, in event order.
func PolicyImpacts(records []Record, list events.List, spanDays int) []Impact {
	var out []Impact
	for _, e := range list {
		if impact, ok := PolicyImpact(records, e, spanDays); ok {
			out = append(out, impact)
		}
	}
	return out
}
