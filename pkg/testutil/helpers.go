// Package testutil provides record fixtures and lookups shared by tests.
package testutil

import (
	"time"

	"github.com/iwvelando/bigmac-dashboard/internal/reconcile"
	"github.com/iwvelando/bigmac-dashboard/pkg/datetime"
	"github.com/shopspring/decimal"
)

// PriceCSV is a small Big Mac index extract covering two countries.
const PriceCSV = `date,iso_a3,currency_code,name,local_price,dollar_ex,dollar_price
2019-07-10,CHN,CNY,China,20.9,6.8798,3.04
2019-07-10,USA,USD,United States,5.74,1,5.74
2020-01-14,CHN,CNY,China,21.5,6.8887,3.12
2020-07-01,CHN,CNY,China,21.5,7.0559,3.05
2021-01-01,CHN,CNY,China,22.4,6.5405,3.42
`

// RateCSV is a sparse USD/CNY quote table spanning PriceCSV's dates.
const RateCSV = `date,actual_rate
2019-07-08,6.88
2020-01-13,6.89
2020-07-01,7.06
2021-01-04,6.54
`

// Record builds a record for one date from a local price, a dollar price and
// a market rate.
func Record(date string, local, dollar string, actualRate float64) reconcile.Record {
	p := reconcile.PriceObservation{
		Date:         datetime.MustParseDate(date),
		Name:         "China",
		CountryCode:  "CHN",
		CurrencyCode: "CNY",
		LocalPrice:   decimal.RequireFromString(local),
		DollarPrice:  decimal.RequireFromString(dollar),
	}
	p.DollarExchange = p.LocalPrice.Div(p.DollarPrice)
	return reconcile.NewRecord(p, p.Date, actualRate)
}

// Records builds one record per deviation, a month apart from start, with an
// implied rate of 4 and the market rate that yields each deviation.
func Records(start string, deviations ...float64) []reconcile.Record {
	first := datetime.MustParseDate(start)
	out := make([]reconcile.Record, len(deviations))
	for i, dev := range deviations {
		date := first.AddDate(0, i, 0)
		out[i] = reconcile.Record{
			PriceObservation: reconcile.PriceObservation{
				Date:         date,
				Name:         "China",
				CountryCode:  "CHN",
				CurrencyCode: "CNY",
				LocalPrice:   decimal.NewFromInt(20),
				DollarPrice:  decimal.NewFromInt(5),
			},
			RateDate:     date,
			ActualRate:   4 * (1 + dev/100),
			ImpliedRate:  4,
			DeviationPct: dev,
		}
	}
	return out
}

// FindRecord returns a pointer to the first record dated on date, or nil.
func FindRecord(records []reconcile.Record, date time.Time) *reconcile.Record {
	for i := range records {
		if records[i].Date.Equal(date) {
			return &records[i]
		}
	}
	return nil
}
