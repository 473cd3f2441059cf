// Package output provides utilities for formatting and displaying analysis results.
package output

import (
	"fmt"

	"github.com/iwvelando/bigmac-dashboard/internal/reconcile"
	"github.com/iwvelando/bigmac-dashboard/pkg/datetime"
	"github.com/iwvelando/bigmac-dashboard/pkg/format"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(country string, records []reconcile.Record, summary reconcile.Summary) {
	p := message.NewPrinter(language.English)
	fmt.Printf("--- Big Mac index analysis for %s (%s) ---\n", country, summary.Period())
	fmt.Printf("Date       | Local price | Dollar price | Implied rate | Actual rate | Deviation | Valuation\n")
	fmt.Printf("__________ | ___________ | ____________ | ____________ | ___________ | _________ | _________\n")
	for _, r := range records {
		_, _ = p.Printf("%s | %.2f | $%.2f | %.4f | %.4f | %s | %s\n",
			datetime.Format(r.Date),
			r.LocalPrice.InexactFloat64(),
			r.DollarPrice.InexactFloat64(),
			r.ImpliedRate,
			r.ActualRate,
			format.Percent(r.DeviationPct),
			reconcile.ValuationLabel(r.DeviationPct),
		)
	}
	fmt.Printf("\n")
	PrettySummary(summary)
}

// PrettySummary outputs the deviation statistics.
func PrettySummary(s reconcile.Summary) {
	fmt.Printf("Records:             %d\n", s.Count)
	fmt.Printf("Period:              %s\n", s.Period())
	fmt.Printf("Average deviation:   %s\n", format.Percent(s.Mean))
	fmt.Printf("Median deviation:    %s\n", format.Percent(s.Median))
	fmt.Printf("Std deviation:       %s\n", format.Percent(s.StdDev))
	fmt.Printf("Max deviation:       %s\n", format.Percent(s.Max))
	fmt.Printf("Min deviation:       %s\n", format.Percent(s.Min))
	fmt.Printf("Latest deviation:    %s (%s)\n", format.Percent(s.Last), s.Label)
	fmt.Printf("Average implied:     %s\n", format.Rate(s.AvgImpliedRate))
	fmt.Printf("Latest implied:      %s\n", format.Rate(s.LatestImpliedRate))
	fmt.Printf("Latest actual:       %s\n", format.Rate(s.LatestActualRate))
}

// PrettyChangePoints lists change points with their magnitude labels.
func PrettyChangePoints(points []reconcile.ChangePoint, threshold float64) {
	fmt.Printf("--- Change points (absolute change > %s) ---\n", format.Percent(threshold))
	if len(points) == 0 {
		fmt.Printf("none\n")
		return
	}
	for _, cp := range points {
		fmt.Printf("%s | %s | %s %s | %s\n",
			datetime.Format(cp.Date),
			format.Percent(cp.DeviationPct),
			cp.Direction,
			format.Percent(cp.AbsChange),
			cp.Magnitude,
		)
	}
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(records []reconcile.Record) {
	fmt.Printf(`"date","local_price","dollar_price","rate_date","actual_rate","big_mac_rate","deviation_pct"`)
	fmt.Printf("\n")
	for _, r := range records {
		fmt.Printf(`"%s","%s","%s","%s","%s","%s","%s"`,
			datetime.Format(r.Date),
			r.LocalPrice.String(),
			r.DollarPrice.String(),
			datetime.Format(r.RateDate),
			format.Rate(r.ActualRate),
			format.Rate(r.ImpliedRate),
			format.Fixed(r.DeviationPct, 2),
		)
		fmt.Printf("\n")
	}
}

// PrettyYearly lists calendar-year averages with year-over-year changes.
func PrettyYearly(years []reconcile.YearlyAverage) {
	fmt.Printf("--- Yearly averages ---\n")
	fmt.Printf("Year | Records | Actual rate | Implied rate | Deviation | Actual YoY | Implied YoY\n")
	for _, y := range years {
		fmt.Printf("%d | %d | %s | %s | %s | %s | %s\n",
			y.Year,
			y.Records,
			format.Rate(y.ActualRate),
			format.Rate(y.ImpliedRate),
			format.Percent(y.DeviationPct),
			optionalPercent(y.ActualRateYoY),
			optionalPercent(y.ImpliedRateYoY),
		)
	}
}

// PrettyImpacts lists the deviation before and after each policy event.
func PrettyImpacts(impacts []reconcile.Impact, spanDays int) {
	fmt.Printf("--- Policy impact (%d days either side) ---\n", spanDays)
	if len(impacts) == 0 {
		fmt.Printf("none\n")
		return
	}
	for _, im := range impacts {
		fmt.Printf("%s | %s | %s -> %s | %s %s | %s\n",
			datetime.Format(im.Event.Date),
			im.Event.Title,
			format.Percent(im.Before),
			format.Percent(im.After),
			im.Direction,
			format.Percent(im.Change),
			im.Assessment,
		)
	}
}

func optionalPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return format.Percent(*v)
}
