package integration

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/bigmac-dashboard/internal/config"
	"github.com/iwvelando/bigmac-dashboard/internal/export"
	"github.com/iwvelando/bigmac-dashboard/internal/insight"
	"github.com/iwvelando/bigmac-dashboard/internal/reconcile"
	"github.com/iwvelando/bigmac-dashboard/pkg/datetime"
	"github.com/iwvelando/bigmac-dashboard/pkg/events"
	"github.com/iwvelando/bigmac-dashboard/pkg/testutil"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const testConfigPath = "../test_config.yaml"

// loadPipeline reads the configured inputs and reconciles them. When
// windowed is set the configured analysis window is applied.
func loadPipeline(t *testing.T, logger *zap.Logger, conf *config.Configuration, windowed bool) ([]reconcile.Record, *reconcile.RateSeries) {
	t.Helper()

	priceFile, err := os.Open(conf.Data.PricePath)
	if err != nil {
		t.Fatalf("failed to open price file: %v", err)
	}
	defer func() { _ = priceFile.Close() }()
	prices, err := reconcile.LoadPriceSeries(logger, priceFile, conf.Data.Country)
	if err != nil {
		t.Fatalf("LoadPriceSeries failed: %v", err)
	}

	rateFile, err := os.Open(conf.Data.RatePath)
	if err != nil {
		t.Fatalf("failed to open rate file: %v", err)
	}
	defer func() { _ = rateFile.Close() }()
	rates, err := reconcile.LoadRateSeries(logger, rateFile, filepath.Base(conf.Data.RatePath), conf.RateOptions())
	if err != nil {
		t.Fatalf("LoadRateSeries failed: %v", err)
	}

	records, err := reconcile.Reconcile(prices, rates)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if !windowed {
		return records, rates
	}

	from, to, err := conf.Window()
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	return reconcile.FilterWindow(records, from, to), rates
}

func TestConfigurationFile(t *testing.T) {
	conf, err := config.LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}

	if conf.Data.Country != "CHN" {
		t.Errorf("Expected country to be uppercased to CHN, got %q", conf.Data.Country)
	}
	if conf.Insight.Provider != "mock" {
		t.Errorf("Expected mock provider, got %q", conf.Insight.Provider)
	}
	if warnings := conf.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("Expected no warnings for the test configuration, got %v", warnings)
	}
}

func TestFullPipeline(t *testing.T) {
	logger := zap.NewNop()

	conf, err := config.LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}

	records, rates := loadPipeline(t, logger, conf, true)

	if rates.Unit != reconcile.UnitPerHundred {
		t.Errorf("Expected the bank export to resolve as %s, got %s", reconcile.UnitPerHundred, rates.Unit)
	}
	if len(records) != 8 {
		t.Fatalf("Expected 8 records inside 2012-2015, got %d", len(records))
	}
	if got := datetime.Format(records[0].Date); got != "2012-01-12" {
		t.Errorf("Expected first record on 2012-01-12, got %s", got)
	}
	if got := datetime.Format(records[len(records)-1].Date); got != "2015-07-15" {
		t.Errorf("Expected last record on 2015-07-15, got %s", got)
	}

	// The survey day has its own quote, so no carry-forward is involved.
	rec := testutil.FindRecord(records, datetime.MustParseDate("2015-07-15"))
	if rec == nil {
		t.Fatal("Expected a record on 2015-07-15")
	}
	if math.Abs(rec.ActualRate-6.2096) > 1e-9 {
		t.Errorf("Expected actual rate 6.2096, got %v", rec.ActualRate)
	}
	wantImplied := 17.0 / 2.74
	if math.Abs(rec.ImpliedRate-wantImplied) > 1e-9 {
		t.Errorf("Expected implied rate %v, got %v", wantImplied, rec.ImpliedRate)
	}
	wantDev := (6.2096 - wantImplied) / wantImplied * 100
	if math.Abs(rec.DeviationPct-wantDev) > 1e-9 {
		t.Errorf("Expected deviation %v, got %v", wantDev, rec.DeviationPct)
	}

	summary, err := reconcile.Summarize(records)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.Count != len(records) {
		t.Errorf("Expected summary count %d, got %d", len(records), summary.Count)
	}
	if summary.Period() != "2012-01-12 至 2015-07-15" {
		t.Errorf("Unexpected period %q", summary.Period())
	}

	yearly := reconcile.YearlyAverages(records)
	if len(yearly) != 4 {
		t.Fatalf("Expected 4 yearly rows, got %d", len(yearly))
	}
	if yearly[0].ActualRateYoY != nil {
		t.Error("Expected no YoY change for the first year")
	}
	for _, y := range yearly {
		if y.Records != 2 {
			t.Errorf("Expected 2 records in %d, got %d", y.Year, y.Records)
		}
	}

	points, threshold, err := reconcile.DetectChangePoints(records, conf.Analysis.Percentile)
	if err != nil {
		t.Fatalf("DetectChangePoints failed: %v", err)
	}
	if threshold <= 0 {
		t.Errorf("Expected a positive threshold, got %v", threshold)
	}
	// Seven diffs leave at most one above the 90th percentile.
	if len(points) > 1 {
		t.Errorf("Expected at most 1 change point, got %d", len(points))
	}

	ma, err := reconcile.MovingAverage(records, conf.Analysis.MovingAverageWindow)
	if err != nil {
		t.Fatalf("MovingAverage failed: %v", err)
	}
	if ma[0] != nil || ma[1] != nil || ma[2] == nil {
		t.Error("Expected the moving average to start at the third record")
	}
}

func TestPolicyImpactOnFullSeries(t *testing.T) {
	logger := zap.NewNop()

	conf, err := config.LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	records, _ := loadPipeline(t, logger, conf, false)
	if len(records) != 10 {
		t.Fatalf("Expected 10 records without a window, got %d", len(records))
	}

	event := events.Event{Date: datetime.MustParseDate("2013-10-01"), Title: "测试事件", Category: events.Domestic}
	impact, ok := reconcile.PolicyImpact(records, event, conf.Analysis.PolicyImpactDays)
	if !ok {
		t.Fatal("Expected the event to qualify")
	}

	before := testutil.FindRecord(records, datetime.MustParseDate("2013-07-11"))
	after := testutil.FindRecord(records, datetime.MustParseDate("2014-01-23"))
	if before == nil || after == nil {
		t.Fatal("Expected records on both sides of the event")
	}
	if math.Abs(impact.Change-(after.DeviationPct-before.DeviationPct)) > 1e-9 {
		t.Errorf("Expected change %v, got %v", after.DeviationPct-before.DeviationPct, impact.Change)
	}

	// The bundled 2015 reform sits too close to the end of the data.
	catalog, err := events.Default()
	if err != nil {
		t.Fatalf("events.Default failed: %v", err)
	}
	for _, i := range reconcile.PolicyImpacts(records, catalog.Policy, conf.Analysis.PolicyImpactDays) {
		if datetime.Format(i.Event.Date) == "2015-08-11" {
			t.Error("Expected 2015-08-11 to be skipped for lack of a full after-window")
		}
	}
}

func TestExportAndNarrate(t *testing.T) {
	logger := zap.NewNop()

	conf, err := config.LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	records, _ := loadPipeline(t, logger, conf, true)
	summary, err := reconcile.Summarize(records)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, records, summary); err != nil {
		t.Fatalf("export.Write failed: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(export.DataSheet)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != len(records)+1 {
		t.Errorf("Expected %d data sheet rows, got %d", len(records)+1, len(rows))
	}

	narrator, err := insight.NewNarrator(conf.Insight, logger)
	if err != nil {
		t.Fatalf("NewNarrator failed: %v", err)
	}
	catalog, err := events.Load(conf.Insight.EventsFile)
	if err != nil {
		t.Fatalf("events.Load failed: %v", err)
	}
	analyst := insight.NewAnalyst(narrator, catalog, conf.Analysis.Percentile, logger)

	texts, err := analyst.Narrate(context.Background(), insight.KindReport, records, nil)
	if err != nil {
		t.Fatalf("Narrate failed: %v", err)
	}
	for _, kind := range []insight.Kind{insight.KindMetrics, insight.KindTrend, insight.KindReport} {
		if strings.TrimSpace(texts[kind]) == "" {
			t.Errorf("Expected a %s narrative", kind)
		}
	}
	if !strings.Contains(texts[insight.KindReport], summary.Period()) {
		t.Errorf("Expected the report to name the period %q", summary.Period())
	}
}
