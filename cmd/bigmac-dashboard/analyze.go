package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iwvelando/bigmac-dashboard/internal/config"
	"github.com/iwvelando/bigmac-dashboard/internal/export"
	"github.com/iwvelando/bigmac-dashboard/internal/insight"
	"github.com/iwvelando/bigmac-dashboard/internal/reconcile"
	"github.com/iwvelando/bigmac-dashboard/pkg/constants"
	"github.com/iwvelando/bigmac-dashboard/pkg/events"
	"github.com/iwvelando/bigmac-dashboard/pkg/output"
	"go.uber.org/zap"
)

// loadRecords reads both input files and reconciles them within the
// configured analysis window.
func loadRecords(logger *zap.Logger, conf *config.Configuration) ([]reconcile.Record, error) {
	if err := conf.RequireData(); err != nil {
		return nil, err
	}

	priceFile, err := os.Open(conf.Data.PricePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open price file: %w", err)
	}
	defer func() { _ = priceFile.Close() }()
	prices, err := reconcile.LoadPriceSeries(logger, priceFile, conf.Data.Country)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", conf.Data.PricePath, err)
	}

	rateFile, err := os.Open(conf.Data.RatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open rate file: %w", err)
	}
	defer func() { _ = rateFile.Close() }()
	rates, err := reconcile.LoadRateSeries(logger, rateFile, filepath.Base(conf.Data.RatePath), conf.RateOptions())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", conf.Data.RatePath, err)
	}

	records, err := reconcile.Reconcile(prices, rates)
	if err != nil {
		return nil, err
	}

	from, to, err := conf.Window()
	if err != nil {
		return nil, err
	}
	if from.IsZero() && to.IsZero() {
		return records, nil
	}
	filtered := reconcile.FilterWindow(records, from, to)
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: no records between %q and %q", reconcile.ErrEmptyResult, conf.Analysis.From, conf.Analysis.To)
	}
	return filtered, nil
}

// runAnalysis performs a one-shot analysis: reconcile, print, optionally
// export the workbook and optionally print a narrative of kind.
func runAnalysis(ctx context.Context, logger *zap.Logger, conf *config.Configuration, kind insight.Kind) error {
	records, err := loadRecords(logger, conf)
	if err != nil {
		return err
	}
	summary, err := reconcile.Summarize(records)
	if err != nil {
		return err
	}
	points, threshold, err := reconcile.DetectChangePoints(records, conf.Analysis.Percentile)
	if err != nil {
		return err
	}

	catalog, err := events.Load(conf.Insight.EventsFile)
	if err != nil {
		return err
	}

	logger.Info("analysis computed",
		zap.String("op", "main.runAnalysis"),
		zap.String("country", conf.Data.Country),
		zap.Int("records", len(records)),
		zap.Int("changePoints", len(points)),
	)

	switch conf.Output.Format {
	case constants.OutputFormatPretty:
		output.PrettyFormat(conf.Data.Country, records, summary)
		fmt.Println()
		output.PrettyYearly(reconcile.YearlyAverages(records))
		fmt.Println()
		output.PrettyChangePoints(points, threshold)
		fmt.Println()
		output.PrettyImpacts(reconcile.PolicyImpacts(records, catalog.Policy, conf.Analysis.PolicyImpactDays), conf.Analysis.PolicyImpactDays)
	case constants.OutputFormatCSV:
		output.CsvFormat(records)
	}

	if conf.Output.ExportPath != "" {
		if err := writeWorkbook(conf.Output.ExportPath, records, summary); err != nil {
			return err
		}
		logger.Info("workbook exported",
			zap.String("op", "main.runAnalysis"),
			zap.String("path", conf.Output.ExportPath),
		)
	}

	if kind == "" {
		return nil
	}
	narrator, err := insight.NewNarrator(conf.Insight, logger)
	if err != nil {
		return err
	}
	analyst := insight.NewAnalyst(narrator, catalog, conf.Analysis.Percentile, logger)
	texts, err := analyst.Narrate(ctx, kind, records, nil)
	if err != nil {
		return err
	}
	fmt.Printf("\n%s\n", texts[kind])
	return nil
}

func writeWorkbook(path string, records []reconcile.Record, summary reconcile.Summary) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create workbook file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close workbook file: %w", closeErr)
		}
	}()
	return export.Write(f, records, summary)
}
