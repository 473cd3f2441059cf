package reconcile

import (
	"testing"

	"github.com/iwvelando/bigmac-dashboard/pkg/datetime"
	"github.com/iwvelando/bigmac-dashboard/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYearlyAverages(t *testing.T) {
	d := datetime.MustParseDate
	records := []Record{
		{PriceObservation: PriceObservation{Date: d("2019-01-01")}, ActualRate: 6.8, ImpliedRate: 3.4, DeviationPct: 100},
		{PriceObservation: PriceObservation{Date: d("2019-07-01")}, ActualRate: 7.0, ImpliedRate: 3.6, DeviationPct: 90},
		{PriceObservation: PriceObservation{Date: d("2021-01-01")}, ActualRate: 7.2, ImpliedRate: 4.0, DeviationPct: 80},
	}

	got := YearlyAverages(records)
	require.Len(t, got, 2)

	assert.Equal(t, 2019, got[0].Year)
	assert.Equal(t, 2, got[0].Records)
	assert.InDelta(t, 6.9, got[0].ActualRate, 1e-9)
	assert.InDelta(t, 3.5, got[0].ImpliedRate, 1e-9)
	assert.InDelta(t, 95, got[0].DeviationPct, 1e-9)
	assert.Nil(t, got[0].ActualRateYoY)
	assert.Nil(t, got[0].ImpliedRateYoY)

	// YoY compares against the previous year present, 2019.
	assert.Equal(t, 2021, got[1].Year)
	require.NotNil(t, got[1].ActualRateYoY)
	require.NotNil(t, got[1].ImpliedRateYoY)
	assert.InDelta(t, 4.3478, *got[1].ActualRateYoY, 1e-4)
	assert.InDelta(t, 14.2857, *got[1].ImpliedRateYoY, 1e-4)

	assert.Empty(t, YearlyAverages(nil))
}

func TestMovingAverage(t *testing.T) {
	records := recordsWithDeviations(1, 2, 3, 4, 5)

	got, err := MovingAverage(records, 3)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Nil(t, got[0])
	assert.Nil(t, got[1])
	assert.InDelta(t, 2, *got[2], 1e-9)
	assert.InDelta(t, 3, *got[3], 1e-9)
	assert.InDelta(t, 4, *got[4], 1e-9)

	got, err = MovingAverage(records, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1, *got[0], 1e-9)

	got, err = MovingAverage(records, 10)
	require.NoError(t, err)
	for _, v := range got {
		assert.Nil(t, v)
	}

	_, err = MovingAverage(records, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestPolicyImpact(t *testing.T) {
	// Monthly records 2020-01 .. 2022-12: deviation 10 before 2021-06-01 and
	// 20 from then on.
	devs := make([]float64, 36)
	for i := range devs {
		devs[i] = 10
		if i >= 17 {
			devs[i] = 20
		}
	}
	records := recordsWithDeviations(devs...)
	d := datetime.MustParseDate

	tests := []struct {
		name       string
		date       string
		wantOK     bool
		wantChange float64
		wantAssess string
	}{
		{name: "step change", date: "2021-06-01", wantOK: true, wantChange: 10, wantAssess: ImpactSignificant},
		{name: "flat period", date: "2020-09-01", wantOK: true, wantChange: 0, wantAssess: ImpactMinor},
		{name: "too close to start", date: "2020-03-01", wantOK: false},
		{name: "too close to end", date: "2022-10-01", wantOK: false},
		{name: "outside range", date: "2030-01-01", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := events.Event{Date: d(tt.date), Title: "event", Category: events.Domestic}
			impact, ok := PolicyImpact(records, ev, 180)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.InDelta(t, tt.wantChange, impact.Change, 1e-9)
			assert.Equal(t, tt.wantAssess, impact.Assessment)
		})
	}
}

func TestPolicyImpacts(t *testing.T) {
	records := recordsWithDeviations(make([]float64, 24)...)
	d := datetime.MustParseDate
	list := events.List{
		{Date: d("2020-02-01"), Title: "early"},
		{Date: d("2021-01-01"), Title: "middle"},
	}

	got := PolicyImpacts(records, list, 180)
	require.Len(t, got, 1)
	assert.Equal(t, "middle", got[0].Event.Title)
}

func TestAssess(t *testing.T) {
	assert.Equal(t, ImpactSignificant, Assess(-5.1))
	assert.Equal(t, ImpactModerate, Assess(5))
	assert.Equal(t, ImpactModerate, Assess(2.1))
	assert.Equal(t, ImpactMinor, Assess(-2))
}
