package reconcile

import (
	"os"
	"testing"
	"time"

	"github.com/iwvelando/bigmac-dashboard/pkg/datetime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(date string, local, dollar string) PriceObservation {
	return PriceObservation{
		Date:        datetime.MustParseDate(date),
		CountryCode: "CHN",
		LocalPrice:  decimal.RequireFromString(local),
		DollarPrice: decimal.RequireFromString(dollar),
	}
}

func rate(date string, v float64) RateObservation {
	return RateObservation{Date: datetime.MustParseDate(date), ActualRate: v}
}

// recordsWithDeviations builds monthly records carrying the given deviations.
func recordsWithDeviations(devs ...float64) []Record {
	start := datetime.MustParseDate("2020-01-01")
	out := make([]Record, len(devs))
	for i, d := range devs {
		out[i] = Record{
			PriceObservation: PriceObservation{Date: start.AddDate(0, i, 0)},
			ActualRate:       7,
			ImpliedRate:      4,
			DeviationPct:     d,
		}
	}
	return out
}

func TestReconcileFixtures(t *testing.T) {
	pf, err := os.Open("testdata/big-mac-prices.csv")
	require.NoError(t, err)
	defer pf.Close()
	rf, err := os.Open("testdata/rates.csv")
	require.NoError(t, err)
	defer rf.Close()

	prices, err := LoadPriceSeries(nil, pf, "CHN")
	require.NoError(t, err)
	rates, err := LoadRateSeries(nil, rf, "rates.csv", RateOptions{})
	require.NoError(t, err)

	records, err := Reconcile(prices, rates)
	require.NoError(t, err)
	require.Len(t, records, prices.Len())

	seen := map[time.Time]bool{}
	for _, r := range records {
		assert.False(t, seen[r.Date], "duplicate record date %s", datetime.Format(r.Date))
		seen[r.Date] = true
		assert.NotZero(t, r.ImpliedRate)
		assert.NotZero(t, r.DeviationPct)
	}

	// The daily series carries the 2020-07-01 quote up to 2021-01-03, so
	// 2021-01-01 joins to its own filled day.
	last := records[2]
	assert.Equal(t, "2021-01-01", datetime.Format(last.RateDate))
	assert.InDelta(t, 7.06, last.ActualRate, 1e-9)
}

func TestReconcileNearestDate(t *testing.T) {
	rates := &RateSeries{Observations: []RateObservation{
		rate("2024-01-01", 7.0),
		rate("2024-01-03", 7.2),
		rate("2024-01-10", 7.5),
	}}

	tests := []struct {
		name     string
		date     string
		wantDate string
	}{
		{name: "exact match", date: "2024-01-03", wantDate: "2024-01-03"},
		{name: "tie prefers earlier", date: "2024-01-02", wantDate: "2024-01-01"},
		{name: "closer later date", date: "2024-01-09", wantDate: "2024-01-10"},
		{name: "closer earlier date", date: "2024-01-05", wantDate: "2024-01-03"},
		{name: "before first", date: "2023-12-01", wantDate: "2024-01-01"},
		{name: "after last", date: "2024-06-01", wantDate: "2024-01-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prices := &PriceSeries{Country: "CHN", Observations: []PriceObservation{price(tt.date, "21", "5")}}
			records, err := Reconcile(prices, rates)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, tt.wantDate, datetime.Format(records[0].RateDate))
		})
	}
}

func TestReconcileUnsortedInput(t *testing.T) {
	prices := &PriceSeries{Country: "CHN", Observations: []PriceObservation{
		price("2024-01-09", "21", "5"),
		price("2024-01-02", "20", "5"),
		price("2024-01-09", "22", "5"),
	}}
	rates := &RateSeries{Observations: []RateObservation{
		rate("2024-01-10", 7.5),
		rate("2024-01-01", 7.0),
		rate("2024-01-03", 7.1),
		rate("2024-01-03", 7.2),
	}}

	records, err := Reconcile(prices, rates)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "2024-01-02", datetime.Format(records[0].Date))
	assert.Equal(t, "2024-01-01", datetime.Format(records[0].RateDate))
	assert.Equal(t, "2024-01-09", datetime.Format(records[1].Date))
	assert.True(t, records[1].LocalPrice.Equal(decimal.RequireFromString("22")))
	assert.Equal(t, "2024-01-10", datetime.Format(records[1].RateDate))

	// The caller's slices are left untouched.
	assert.Equal(t, "2024-01-09", datetime.Format(prices.Observations[0].Date))
	assert.Equal(t, 7.5, rates.Observations[0].ActualRate)
}

func TestReconcileEmpty(t *testing.T) {
	prices := &PriceSeries{Observations: []PriceObservation{price("2024-01-01", "21", "5")}}
	rates := &RateSeries{Observations: []RateObservation{rate("2024-01-01", 7)}}

	_, err := Reconcile(&PriceSeries{}, rates)
	assert.ErrorIs(t, err, ErrMissingColumn)
	_, err = Reconcile(prices, &RateSeries{})
	assert.ErrorIs(t, err, ErrMissingColumn)
	_, err = Reconcile(nil, nil)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestNewRecord(t *testing.T) {
	p := price("2024-01-01", "21", "5")

	r := NewRecord(p, p.Date, 6.5)
	assert.Equal(t, 4.2, r.ImpliedRate)
	assert.InDelta(t, 54.7619, r.DeviationPct, 1e-4)
	assert.Greater(t, r.DeviationPct, 0.0)

	r = NewRecord(p, p.Date, 3.9)
	assert.Less(t, r.DeviationPct, 0.0)

	r = NewRecord(p, p.Date, 4.2)
	assert.InDelta(t, 0, r.DeviationPct, 1e-12)
}

func TestValuationLabel(t *testing.T) {
	assert.Equal(t, LabelUndervalued, ValuationLabel(54.76))
	assert.Equal(t, LabelOvervalued, ValuationLabel(-3))
	assert.Equal(t, LabelAtParity, ValuationLabel(0))
}

func TestFilterWindow(t *testing.T) {
	records := recordsWithDeviations(1, 2, 3, 4, 5)
	d := datetime.MustParseDate

	got := FilterWindow(records, d("2020-02-01"), d("2020-04-01"))
	assert.Equal(t, []float64{2, 3, 4}, Deviations(got))

	got = FilterWindow(records, time.Time{}, d("2020-02-01"))
	assert.Equal(t, []float64{1, 2}, Deviations(got))

	got = FilterWindow(records, d("2030-01-01"), time.Time{})
	assert.Empty(t, got)
}
