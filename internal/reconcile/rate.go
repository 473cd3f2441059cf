package reconcile

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/iwvelando/bigmac-dashboard/pkg/constants"
	"github.com/iwvelando/bigmac-dashboard/pkg/datetime"
	"github.com/iwvelando/bigmac-dashboard/pkg/mathutil"
	"go.uber.org/zap"
)

// RateOptions controls how a rate table is interpreted.
type RateOptions struct {
	// Unit is the quoting unit of the rate column. Empty means auto-detect.
	Unit RateUnit
	// Columns overrides the header matchers. Empty rule sets use the
	// defaults.
	Columns ColumnRules
}

// LoadRateSeries parses a rate table (xlsx workbook or delimited text),
// recognizes its date and rate columns, applies the unit policy, and returns
// a daily series forward-filled across the observed span.
func LoadRateSeries(logger *zap.Logger, r io.Reader, filename string, opts RateOptions) (*RateSeries, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read rate data: %v", ErrParse, err)
	}

	var tables []*table
	switch {
	case strings.EqualFold(filepath.Ext(filename), ".xls"):
		return nil, fmt.Errorf("%w: legacy .xls workbooks are not supported, save the file as .xlsx or CSV", ErrParse)
	case isWorkbook(filename, data):
		tables, err = readWorkbook(data)
	default:
		var t *table
		t, err = readDelimited(data)
		tables = []*table{t}
	}
	if err != nil {
		return nil, err
	}

	// Use the first sheet whose header can be recognized.
	var (
		t       *table
		match   ColumnMatch
		lastErr error
	)
	for _, candidate := range tables {
		m, err := opts.Columns.Recognize(candidate.header)
		if err != nil {
			lastErr = err
			continue
		}
		t, match = candidate, m
		match.Sheet = candidate.name
		break
	}
	if t == nil {
		return nil, lastErr
	}

	points := make([]RateObservation, 0, len(t.rows))
	var known []float64
	for i, row := range t.rows {
		line := i + 2
		rawDate := cell(row, match.dateIdx)
		if rawDate == "" {
			continue
		}
		date, err := datetime.ParseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrParse, line, err)
		}

		value := math.NaN()
		if raw := cell(row, match.rateIdx); raw != "" {
			value, err = strconv.ParseFloat(normalizeNumber(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: invalid %s %q", ErrParse, line, match.RateColumn, raw)
			}
			known = append(known, value)
		}
		points = append(points, RateObservation{Date: date, ActualRate: value})
	}
	if len(known) == 0 {
		return nil, fmt.Errorf("%w: column %q holds no rate values", ErrParse, match.RateColumn)
	}

	unit, err := resolveUnit(logger, opts.Unit, match.RateColumn, mathutil.Mean(known))
	if err != nil {
		return nil, err
	}
	if unit == UnitPerHundred {
		for i := range points {
			points[i].ActualRate /= constants.PerHundredDivisor
		}
	}

	filled := ForwardFill(points)

	logger.Info("rate series loaded",
		zap.String("op", "reconcile.LoadRateSeries"),
		zap.String("sheet", match.Sheet),
		zap.String("dateColumn", match.DateColumn),
		zap.String("rateColumn", match.RateColumn),
		zap.String("unit", string(unit)),
		zap.Int("quotes", len(known)),
		zap.Int("days", len(filled)),
	)

	return &RateSeries{Observations: filled, Unit: unit, Columns: match}, nil
}

// resolveUnit applies the configured unit policy. Auto-detect treats the
// column as per-100 when its header mentions 100 or its mean exceeds
// constants.AutoDetectUnitThreshold, and logs the branch taken.
func resolveUnit(logger *zap.Logger, unit RateUnit, column string, mean float64) (RateUnit, error) {
	switch unit {
	case UnitPerOne, UnitPerHundred:
		return unit, nil
	case UnitAutoDetect, "":
	default:
		return "", fmt.Errorf("%w: unknown rate unit %q", ErrInvalidParameter, unit)
	}

	resolved, reason := UnitPerOne, "column mean within per-unit range"
	switch {
	case strings.Contains(column, "100"):
		resolved, reason = UnitPerHundred, "column header mentions 100"
	case mean > constants.AutoDetectUnitThreshold:
		resolved, reason = UnitPerHundred, fmt.Sprintf("column mean exceeds %.0f", constants.AutoDetectUnitThreshold)
	}

	logger.Info("rate unit auto-detected",
		zap.String("op", "reconcile.resolveUnit"),
		zap.String("column", column),
		zap.Float64("mean", mean),
		zap.String("unit", string(resolved)),
		zap.String("reason", reason),
	)
	return resolved, nil
}

// ForwardFill sorts points by date, keeps the last value of repeated dates,
// reindexes onto every calendar day of the span, and carries the most recent
// known rate into days without a quote. NaN rates count as missing. Days
// before the first known rate are dropped.
func ForwardFill(points []RateObservation) []RateObservation {
	if len(points) == 0 {
		return nil
	}
	sorted := append([]RateObservation(nil), points...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	byDay := make(map[int64]float64, len(sorted))
	for _, p := range sorted {
		day := datetime.Day(p.Date).Unix()
		if math.IsNaN(p.ActualRate) {
			if _, ok := byDay[day]; !ok {
				byDay[day] = p.ActualRate
			}
			continue
		}
		byDay[day] = p.ActualRate
	}

	out := make([]RateObservation, 0, len(byDay))
	last, haveLast := 0.0, false
	for _, day := range datetime.EachDay(sorted[0].Date, sorted[len(sorted)-1].Date) {
		v, ok := byDay[day.Unix()]
		if ok && !math.IsNaN(v) {
			last, haveLast = v, true
			out = append(out, RateObservation{Date: day, ActualRate: v})
			continue
		}
		if haveLast {
			out = append(out, RateObservation{Date: day, ActualRate: last, Filled: true})
		}
	}
	return out
}
