// Package reconcile loads Big Mac price observations and exchange-rate
// observations, joins them by nearest date, and derives the implied exchange
// rate and its deviation from the market rate.
package reconcile

import (
	"time"

	"github.com/iwvelando/bigmac-dashboard/pkg/constants"
	"github.com/shopspring/decimal"
)

// PriceObservation is one Big Mac price survey for a single country.
type PriceObservation struct {
	Date           time.Time
	Name           string
	CountryCode    string
	CurrencyCode   string
	LocalPrice     decimal.Decimal
	DollarExchange decimal.Decimal
	DollarPrice    decimal.Decimal
	// USDRaw is the raw index value against the dollar when the source
	// carries it.
	USDRaw *decimal.Decimal
}

// PriceSeries is the date-ordered price history of one country.
type PriceSeries struct {
	Country      string
	Observations []PriceObservation
}

// Len returns the number of observations.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Observations)
}

// RateObservation is the market rate (local currency per USD) on one day.
type RateObservation struct {
	Date       time.Time
	ActualRate float64
	// Filled marks days carried forward from the previous quote.
	Filled bool
}

// RateUnit says how the source quotes its rate column.
type RateUnit string

const (
	UnitPerOne     RateUnit = constants.RateUnitPerOne
	UnitPerHundred RateUnit = constants.RateUnitPerHundred
	UnitAutoDetect RateUnit = constants.RateUnitAutoDetect
)

// RateSeries is a daily, gap-free exchange-rate history.
type RateSeries struct {
	Observations []RateObservation
	// Unit is the resolved quoting unit of the source column.
	Unit RateUnit
	// Columns records which source columns were used and why.
	Columns ColumnMatch
}

// Len returns the number of daily observations.
func (s *RateSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Observations)
}

// Record is a price observation joined to its nearest market rate.
type Record struct {
	PriceObservation
	// RateDate is the date of the rate observation that was joined.
	RateDate    time.Time
	ActualRate  float64
	ImpliedRate float64
	// DeviationPct is positive when the market rate asks for more local
	// currency per USD than the implied rate, i.e. the local currency is
	// undervalued.
	DeviationPct float64
}

// Valuation labels.
const (
	LabelUndervalued = "低估"
	LabelOvervalued  = "高估"
	LabelAtParity    = "持平"
)

// ValuationLabel maps a deviation percentage to its valuation label.
func ValuationLabel(deviationPct float64) string {
	switch {
	case deviationPct > 0:
		return LabelUndervalued
	case deviationPct < 0:
		return LabelOvervalued
	default:
		return LabelAtParity
	}
}
