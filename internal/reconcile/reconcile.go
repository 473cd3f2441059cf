package reconcile

import (
	"fmt"
	"sort"
	"time"

	"github.com/iwvelando/bigmac-dashboard/pkg/constants"
	"github.com/iwvelando/bigmac-dashboard/pkg/datetime"
)

// Reconcile joins every price observation to the rate observation with the
// nearest date. When two rate dates are equally near, the earlier one is
// used. Neither series needs to be sorted; repeated dates keep their last
// entry. The result has one record per price date, in date order.
func Reconcile(prices *PriceSeries, rates *RateSeries) ([]Record, error) {
	if prices.Len() == 0 {
		return nil, fmt.Errorf("%w: price series has no dated observations", ErrMissingColumn)
	}
	if rates.Len() == 0 {
		return nil, fmt.Errorf("%w: rate series has no actual_rate values", ErrMissingColumn)
	}

	obs := sortRates(rates.Observations)
	priced := sortPrices(prices.Observations)
	records := make([]Record, 0, len(priced))
	for _, p := range priced {
		rate := obs[nearestIndex(obs, p.Date)]
		records = append(records, NewRecord(p, rate.Date, rate.ActualRate))
	}
	return records, nil
}

// sortRates returns rates in date order, keeping the last value of a
// repeated date. Already sorted input is returned as is.
func sortRates(rates []RateObservation) []RateObservation {
	ordered := true
	for i := 1; i < len(rates); i++ {
		if !rates[i-1].Date.Before(rates[i].Date) {
			ordered = false
			break
		}
	}
	if ordered {
		return rates
	}

	sorted := append([]RateObservation(nil), rates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	deduped := sorted[:0]
	for _, r := range sorted {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(r.Date) {
			deduped[n-1] = r
			continue
		}
		deduped = append(deduped, r)
	}
	return deduped
}

// nearestIndex returns the index of the observation nearest to date, which
// must be sorted ascending. Ties go to the earlier observation.
func nearestIndex(obs []RateObservation, date time.Time) int {
	i := sort.Search(len(obs), func(i int) bool { return !obs[i].Date.Before(date) })
	switch {
	case i == 0:
		return 0
	case i == len(obs):
		return len(obs) - 1
	case obs[i].Date.Equal(date):
		return i
	}
	before := date.Sub(obs[i-1].Date)
	after := obs[i].Date.Sub(date)
	if after < before {
		return i
	}
	return i - 1
}

// NewRecord derives the implied rate and deviation for one price observation
// and its market rate. The implied rate is computed in decimal arithmetic.
func NewRecord(p PriceObservation, rateDate time.Time, actualRate float64) Record {
	implied := p.LocalPrice.Div(p.DollarPrice).InexactFloat64()
	return Record{
		PriceObservation: p,
		RateDate:         rateDate,
		ActualRate:       actualRate,
		ImpliedRate:      implied,
		DeviationPct:     Deviation(actualRate, implied),
	}
}

// Deviation returns (actual-implied)/implied*100.
func Deviation(actualRate, impliedRate float64) float64 {
	return (actualRate - impliedRate) / impliedRate * constants.PercentageMultiplier
}

// FilterWindow returns the records dated in [from, to]. Zero bounds are open.
func FilterWindow(records []Record, from, to time.Time) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if datetime.InRange(r.Date, from, to) {
			out = append(out, r)
		}
	}
	return out
}

// Deviations extracts DeviationPct from each record.
func Deviations(records []Record) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.DeviationPct
	}
	return out
}
