package reconcile

import (
	"fmt"
	"time"

	"github.com/iwvelando/bigmac-dashboard/pkg/datetime"
	"github.com/iwvelando/bigmac-dashboard/pkg/mathutil"
)

// Summary aggregates the deviation of a record set.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Max    float64 `json:"max"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stdDev"`
	First  float64 `json:"first"`
	Last   float64 `json:"last"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// Overvalued is true when the latest deviation is negative.
	Overvalued bool   `json:"overvalued"`
	Label      string `json:"label"`

	AvgImpliedRate    float64 `json:"avgImpliedRate"`
	LatestImpliedRate float64 `json:"latestImpliedRate"`
	LatestActualRate  float64 `json:"latestActualRate"`
}

// Period renders the date range, e.g. "2000-04-01 至 2024-01-01".
func (s Summary) Period() string {
	return fmt.Sprintf("%s 至 %s", datetime.Format(s.Start), datetime.Format(s.End))
}

// Summarize computes the deviation statistics of records, which must be in
// date order.
func Summarize(records []Record) (Summary, error) {
	if len(records) == 0 {
		return Summary{}, fmt.Errorf("%w: no records to summarize", ErrInsufficientData)
	}

	devs := Deviations(records)
	implied := make([]float64, len(records))
	for i, r := range records {
		implied[i] = r.ImpliedRate
	}
	minVal, _, maxVal, _ := mathutil.MinMax(devs)
	first, last := records[0], records[len(records)-1]

	start, end := first.Date, last.Date
	for _, r := range records {
		if r.Date.Before(start) {
			start = r.Date
		}
		if r.Date.After(end) {
			end = r.Date
		}
	}

	return Summary{
		Count:             len(records),
		Mean:              mathutil.Mean(devs),
		Max:               maxVal,
		Min:               minVal,
		Median:            mathutil.Median(devs),
		StdDev:            mathutil.StdDev(devs),
		First:             first.DeviationPct,
		Last:              last.DeviationPct,
		Start:             start,
		End:               end,
		Overvalued:        last.DeviationPct < 0,
		Label:             ValuationLabel(last.DeviationPct),
		AvgImpliedRate:    mathutil.Mean(implied),
		LatestImpliedRate: last.ImpliedRate,
		LatestActualRate:  last.ActualRate,
	}, nil
}
