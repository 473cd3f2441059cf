// Package export writes reconciled records and their summary to an xlsx
// workbook.
package export

import (
	"fmt"
	"io"

	"github.com/iwvelando/bigmac-dashboard/internal/reconcile"
	"github.com/iwvelando/bigmac-dashboard/pkg/mathutil"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook.
const (
	DataSheet    = "分析数据"
	MetricsSheet = "关键指标"
)

// DataHeaders are the columns of DataSheet.
var DataHeaders = []string{
	"date", "name", "iso_a3", "currency_code", "local_price", "dollar_ex",
	"dollar_price", "USD_raw", "rate_date", "actual_rate", "big_mac_rate",
	"deviation_pct", "valuation",
}

// MetricsHeaders are the columns of MetricsSheet.
var MetricsHeaders = []string{
	"records", "avg_deviation", "max_deviation", "min_deviation",
	"median_deviation", "std_deviation", "latest_deviation",
	"avg_bigmac_rate", "latest_bigmac_rate", "latest_actual_rate",
	"data_period", "over_under",
}

// Workbook builds the two-sheet analysis workbook. The caller closes it.
func Workbook(records []reconcile.Record, summary reconcile.Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", DataSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name data sheet: %w", err)
	}
	if _, err := f.NewSheet(MetricsSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to add metrics sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeData(f, records, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeMetrics(f, summary, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// Write builds the workbook and streams it to w.
func Write(w io.Writer, records []reconcile.Record, summary reconcile.Summary) error {
	f, err := Workbook(records, summary)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeData(f *excelize.File, records []reconcile.Record, headerStyle int) error {
	if err := writeRow(f, DataSheet, 1, stringsToCells(DataHeaders)); err != nil {
		return err
	}
	if err := f.SetRowStyle(DataSheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range records {
		var usdRaw interface{}
		if r.USDRaw != nil {
			usdRaw = r.USDRaw.InexactFloat64()
		}
		row := []interface{}{
			r.Date.Format("2006-01-02"),
			r.Name,
			r.CountryCode,
			r.CurrencyCode,
			r.LocalPrice.InexactFloat64(),
			r.DollarExchange.InexactFloat64(),
			r.DollarPrice.InexactFloat64(),
			usdRaw,
			r.RateDate.Format("2006-01-02"),
			r.ActualRate,
			r.ImpliedRate,
			r.DeviationPct,
			reconcile.ValuationLabel(r.DeviationPct),
		}
		if err := writeRow(f, DataSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(DataSheet, "A", "A", 12); err != nil {
		return err
	}
	if err := f.SetColWidth(DataSheet, "B", "B", 16); err != nil {
		return err
	}
	return f.SetColWidth(DataSheet, "C", "M", 14)
}

func writeMetrics(f *excelize.File, s reconcile.Summary, headerStyle int) error {
	if err := writeRow(f, MetricsSheet, 1, stringsToCells(MetricsHeaders)); err != nil {
		return err
	}
	if err := f.SetRowStyle(MetricsSheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	row := []interface{}{
		s.Count,
		mathutil.Round(s.Mean), mathutil.Round(s.Max), mathutil.Round(s.Min),
		mathutil.Round(s.Median), mathutil.Round(s.StdDev), mathutil.Round(s.Last),
		mathutil.RoundTo(s.AvgImpliedRate, 4), mathutil.RoundTo(s.LatestImpliedRate, 4),
		mathutil.RoundTo(s.LatestActualRate, 4),
		s.Period(), s.Label,
	}
	if err := writeRow(f, MetricsSheet, 2, row); err != nil {
		return err
	}
	return f.SetColWidth(MetricsSheet, "A", "L", 18)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func stringsToCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
