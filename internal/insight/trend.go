// Package insight turns reconciled records into analysis prompts and hands
// them to a narrator: a remote chat-completion service or a canned offline
// stand-in.
package insight

import (
	"fmt"
	"time"

	"github.com/iwvelando/bigmac-dashboard/internal/reconcile"
	"github.com/iwvelando/bigmac-dashboard/pkg/format"
	"github.com/iwvelando/bigmac-dashboard/pkg/mathutil"
)

// Trend describes how the deviation moved across a record window.
type Trend struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	StartDeviation float64   `json:"startDeviation"`
	EndDeviation   float64   `json:"endDeviation"`
	Change         float64   `json:"change"`
	Direction      string    `json:"direction"`
	Peak           float64   `json:"peak"`
	PeakDate       time.Time `json:"peakDate"`
	Trough         float64   `json:"trough"`
	TroughDate     time.Time `json:"troughDate"`
}

// StartYear and EndYear bound the window in calendar years.
func (t Trend) StartYear() int { return t.Start.Year() }
func (t Trend) EndYear() int   { return t.End.Year() }

// ComputeTrend reads start, end, peak and trough off records, which must be
// in date order. Ties for peak or trough go to the earliest record.
func ComputeTrend(records []reconcile.Record) (Trend, error) {
	if len(records) == 0 {
		return Trend{}, fmt.Errorf("%w: no records for trend", reconcile.ErrInsufficientData)
	}

	devs := reconcile.Deviations(records)
	minVal, minIdx, maxVal, maxIdx := mathutil.MinMax(devs)
	first, last := records[0], records[len(records)-1]
	change := last.DeviationPct - first.DeviationPct

	return Trend{
		Start:          first.Date,
		End:            last.Date,
		StartDeviation: first.DeviationPct,
		EndDeviation:   last.DeviationPct,
		Change:         change,
		Direction:      format.Direction(change),
		Peak:           maxVal,
		PeakDate:       records[maxIdx].Date,
		Trough:         minVal,
		TroughDate:     records[minIdx].Date,
	}, nil
}
