package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/iwvelando/bigmac-dashboard/internal/reconcile"
	"github.com/iwvelando/bigmac-dashboard/pkg/constants"
	"github.com/iwvelando/bigmac-dashboard/pkg/events"
	"go.uber.org/zap"
)

// Analyst builds the request for each kind and submits it to a narrator.
type Analyst struct {
	narrator   Narrator
	catalog    *events.Catalog
	percentile float64
	logger     *zap.Logger
}

// NewAnalyst wires a narrator to the reference events. A non-positive
// percentile falls back to constants.DefaultChangePointPercentile.
func NewAnalyst(narrator Narrator, catalog *events.Catalog, percentile float64, logger *zap.Logger) *Analyst {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = &events.Catalog{}
	}
	if percentile <= 0 {
		percentile = constants.DefaultChangePointPercentile
	}
	return &Analyst{narrator: narrator, catalog: catalog, percentile: percentile, logger: logger}
}

// Narrate produces the narrative of kind for records. prior holds narratives
// already produced for the same records; a report reuses the metrics and
// trend narratives found there and generates the missing ones first. The
// returned map holds every narrative produced by this call.
func (a *Analyst) Narrate(ctx context.Context, kind Kind, records []reconcile.Record, prior map[Kind]string) (map[Kind]string, error) {
	produced := map[Kind]string{}

	if kind == KindReport {
		texts := map[Kind]string{}
		for _, k := range []Kind{KindMetrics, KindTrend} {
			if text, ok := prior[k]; ok && strings.TrimSpace(text) != "" {
				texts[k] = text
				continue
			}
			text, err := a.narrateOne(ctx, k, records, nil)
			if err != nil {
				return nil, err
			}
			texts[k], produced[k] = text, text
		}
		text, err := a.narrateOne(ctx, KindReport, records, texts)
		if err != nil {
			return nil, err
		}
		produced[KindReport] = text
		return produced, nil
	}

	text, err := a.narrateOne(ctx, kind, records, nil)
	if err != nil {
		return nil, err
	}
	produced[kind] = text
	return produced, nil
}

func (a *Analyst) narrateOne(ctx context.Context, kind Kind, records []reconcile.Record, texts map[Kind]string) (string, error) {
	req, err := a.Request(kind, records, texts)
	if err != nil {
		return "", err
	}

	text, err := a.narrator.Submit(ctx, req)
	if err != nil {
		a.logger.Warn("narrative request failed",
			zap.String("op", "insight.Analyst.Narrate"),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return "", err
	}

	a.logger.Info("narrative produced",
		zap.String("op", "insight.Analyst.Narrate"),
		zap.String("kind", string(kind)),
		zap.Int("records", len(records)),
		zap.Int("chars", len([]rune(text))),
	)
	return text, nil
}

// Request renders the prompt of kind. texts supplies the metrics and trend
// narratives a report is built from.
func (a *Analyst) Request(kind Kind, records []reconcile.Record, texts map[Kind]string) (Request, error) {
	if len(records) == 0 {
		return Request{}, fmt.Errorf("%w: no records to narrate", reconcile.ErrInsufficientData)
	}

	req := Request{Kind: kind}
	switch kind {
	case KindMetrics, KindReport:
		summary, err := reconcile.Summarize(records)
		if err != nil {
			return Request{}, err
		}
		req.Summary = &summary
		if kind == KindMetrics {
			req.Prompt = RenderMetricsPrompt(summary)
		} else {
			req.Prompt = RenderReportPrompt(summary, texts[KindMetrics], texts[KindTrend])
		}
	case KindTrend:
		trend, err := ComputeTrend(records)
		if err != nil {
			return Request{}, err
		}
		req.Trend = &trend
		if req.Prompt, err = RenderTrendPrompt(records, a.catalog.Policy); err != nil {
			return Request{}, err
		}
	case KindChangePoints:
		points, threshold, err := reconcile.DetectChangePoints(records, a.percentile)
		if err != nil {
			return Request{}, err
		}
		if req.Prompt, err = RenderChangePointPrompt(records, points, a.percentile, threshold, a.catalog.Major); err != nil {
			return Request{}, err
		}
	default:
		return Request{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return req, nil
}
