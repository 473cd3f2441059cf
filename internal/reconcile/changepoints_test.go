package reconcile

import (
	"testing"

	"github.com/iwvelando/bigmac-dashboard/pkg/datetime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectChangePointsStep(t *testing.T) {
	records := recordsWithDeviations(1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 20)

	points, threshold, err := DetectChangePoints(records, 90)
	require.NoError(t, err)

	// Nine zero diffs and one of 19: the 90th percentile interpolates to 1.9.
	assert.InDelta(t, 1.9, threshold, 1e-9)
	require.Len(t, points, 1)
	assert.Equal(t, "2020-11-01", datetime.Format(points[0].Date))
	assert.Equal(t, 19.0, points[0].Change)
	assert.Equal(t, "上升", points[0].Direction)
	assert.Equal(t, MagnitudeExtreme, points[0].Magnitude)
}

func TestDetectChangePointsSpike(t *testing.T) {
	devs := make([]float64, 25)
	devs[5] = 30
	records := recordsWithDeviations(devs...)

	points, threshold, err := DetectChangePoints(records, 90)
	require.NoError(t, err)
	assert.Equal(t, 0.0, threshold)

	// The spike and its reversal carry the same absolute change.
	require.Len(t, points, 2)
	assert.Equal(t, 30.0, points[0].DeviationPct)
	assert.Equal(t, "上升", points[0].Direction)
	assert.Equal(t, -30.0, points[1].Change)
	assert.Equal(t, "下降", points[1].Direction)
	assert.True(t, points[0].Date.Before(points[1].Date))
}

func TestDetectChangePointsShortSpike(t *testing.T) {
	records := recordsWithDeviations(0, 0, 0, 0, 0, 30, 0, 0, 0, 0)

	points, threshold, err := DetectChangePoints(records, 90)
	require.NoError(t, err)

	// Seven zero diffs and two of 30: the threshold lands on the spike itself.
	assert.Equal(t, 30.0, threshold)
	require.Len(t, points, 2)
	assert.Equal(t, "2020-06-01", datetime.Format(points[0].Date))
	assert.Equal(t, 30.0, points[0].Change)
	assert.Equal(t, MagnitudeSignificant, points[0].Magnitude)
	assert.Equal(t, "2020-07-01", datetime.Format(points[1].Date))
	assert.Equal(t, -30.0, points[1].Change)
}

func TestDetectChangePointsTies(t *testing.T) {
	// Every diff equals the threshold, so every diff is flagged.
	points, threshold, err := DetectChangePoints(recordsWithDeviations(1, 2, 3, 4, 5), 50)
	require.NoError(t, err)
	assert.Equal(t, 1.0, threshold)
	assert.Len(t, points, 4)

	// A flat series has a zero threshold and nothing to flag.
	points, threshold, err = DetectChangePoints(recordsWithDeviations(4, 4, 4, 4), 90)
	require.NoError(t, err)
	assert.Equal(t, 0.0, threshold)
	assert.Empty(t, points)
}

func TestDetectChangePointsErrors(t *testing.T) {
	tests := []struct {
		name       string
		records    []Record
		percentile float64
		wantErr    error
	}{
		{name: "empty records", records: nil, percentile: 90, wantErr: ErrInsufficientData},
		{name: "percentile zero", records: recordsWithDeviations(1, 2), percentile: 0, wantErr: ErrInvalidParameter},
		{name: "percentile hundred", records: recordsWithDeviations(1, 2), percentile: 100, wantErr: ErrInvalidParameter},
		{name: "negative percentile", records: recordsWithDeviations(1, 2), percentile: -5, wantErr: ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DetectChangePoints(tt.records, tt.percentile)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDetectChangePointsSingleRecord(t *testing.T) {
	points, threshold, err := DetectChangePoints(recordsWithDeviations(3), 90)
	require.NoError(t, err)
	assert.Empty(t, points)
	assert.Equal(t, 0.0, threshold)
}

func TestMagnitude(t *testing.T) {
	tests := []struct {
		abs  float64
		want string
	}{
		{abs: 2.5, want: MagnitudeExtreme},
		{abs: 2.0, want: MagnitudeLarge},
		{abs: 1.6, want: MagnitudeLarge},
		{abs: 1.5, want: MagnitudeSignificant},
		{abs: 1.1, want: MagnitudeSignificant},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Magnitude(tt.abs, 1.0), "abs change %v", tt.abs)
	}
}

func TestPattern(t *testing.T) {
	records := recordsWithDeviations(0, 10, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, -20)
	points := []ChangePoint{
		{Record: records[1], Change: 10, AbsChange: 10},
		{Record: records[2], Change: -10, AbsChange: 10},
		{Record: records[14], Change: -20, AbsChange: 20},
	}

	p := Pattern(points)
	assert.Equal(t, 3, p.Count)
	assert.Equal(t, 1, p.Rising)
	assert.Equal(t, 2, p.Falling)
	assert.InDelta(t, 33.33, p.RisingPct, 0.01)
	assert.InDelta(t, 13.33, p.AvgMagnitude, 0.01)
	assert.Equal(t, []YearCount{{Year: 2020, Count: 2}, {Year: 2021, Count: 1}}, p.ByYear)
	assert.Equal(t, 2020, p.BusiestYear)

	empty := Pattern(nil)
	assert.Zero(t, empty.Count)
	assert.Nil(t, empty.ByYear)
}
