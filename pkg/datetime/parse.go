// Package datetime provides date and time utility functions.
package datetime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/bigmac-dashboard/pkg/constants"
	"github.com/xuri/excelize/v2"
)

const (
	// DateLayout is the canonical calendar-date format used in inputs and
	// outputs.
	DateLayout = constants.DateLayout

	hoursPerDay = 24
)

// acceptedLayouts lists the date formats seen in price and rate exports, in
// the order they are tried.
var acceptedLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006/01/02",
	"2006/1/2",
	"2006/01/02 15:04:05",
	"2006.01.02",
	"20060102",
	"2006年1月2日",
	"01-02-06",
	"1/2/2006",
}

// Excel serial dates between these bounds (1954 to 2119) are accepted when a
// workbook cell is read raw.
const (
	minExcelSerial = 20000
	maxExcelSerial = 80000
)

// ParseDate parses a calendar date in any of the accepted layouts, or an
// Excel serial day number. The result is truncated to midnight UTC.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return Day(t), nil
		}
	}

	if serial, err := strconv.ParseFloat(trimmed, 64); err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid excel date %q: %w", value, err)
		}
		return Day(t), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// MustParseDate parses a date string in DateLayout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseDate(dateStr string) time.Time {
	t, err := time.Parse(DateLayout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// Day drops the clock part of t and moves it to UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / hoursPerDay)
}

// EachDay returns every calendar day from start to end inclusive. It returns
// nil when end is before start.
func EachDay(start, end time.Time) []time.Time {
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return nil
	}
	days := make([]time.Time, 0, DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Format renders t in DateLayout; the zero time renders as an empty string.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// InRange reports whether t lies in [from, to]. A zero bound is open.
func InRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
