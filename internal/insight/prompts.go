package insight

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/iwvelando/bigmac-dashboard/internal/reconcile"
	"github.com/iwvelando/bigmac-dashboard/pkg/datetime"
	"github.com/iwvelando/bigmac-dashboard/pkg/events"
	"github.com/iwvelando/bigmac-dashboard/pkg/format"
	"github.com/iwvelando/bigmac-dashboard/pkg/mathutil"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Numbers are always rendered with two decimals and a dot separator so that
// the same input yields byte-identical prompts on any host.
var templates = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"pct":     func(v float64) string { return format.Fixed(v, 2) },
	"num":     func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
	"date":    func(t time.Time) string { return datetime.Format(t) },
	"related": describeNearby,
	"years":   describeYears,
}).ParseFS(templateFS, "templates/*.tmpl"))

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", strings.TrimSuffix(name, ".tmpl"), err)
	}
	return buf.String(), nil
}

// RenderMetricsPrompt fills the metrics question set from summary.
func RenderMetricsPrompt(summary reconcile.Summary) string {
	out, err := render("metrics.tmpl", summary)
	if err != nil {
		// Only reachable with a broken template.
		panic(err)
	}
	return out
}

type trendPromptData struct {
	Trend  Trend
	Events events.List
}

// RenderTrendPrompt describes the trend of records and lists the policy
// events dated inside their window. With no such event it asks a different
// question set.
func RenderTrendPrompt(records []reconcile.Record, policy events.List) (string, error) {
	trend, err := ComputeTrend(records)
	if err != nil {
		return "", err
	}
	return render("trend.tmpl", trendPromptData{
		Trend:  trend,
		Events: policy.Within(trend.Start, trend.End),
	})
}

type changePointPromptData struct {
	Start, End    time.Time
	Points        []AnnotatedChangePoint
	Pattern       reconcile.ChangePointPattern
	Percentile    float64
	Threshold     float64
	Stats         reconcile.Summary
	MeanChange    float64
	MeanAbsChange float64
}

// RenderChangePointPrompt describes the change points found in records at
// the given percentile and threshold, each annotated with the major events
// within 30 days. Events outside the records' window are ignored. With no
// change points it asks about the stability of the series instead.
func RenderChangePointPrompt(records []reconcile.Record, points []reconcile.ChangePoint, percentile, threshold float64, major events.List) (string, error) {
	stats, err := reconcile.Summarize(records)
	if err != nil {
		return "", err
	}

	data := changePointPromptData{
		Start:      stats.Start,
		End:        stats.End,
		Points:     Annotate(points, major.Within(stats.Start, stats.End)),
		Pattern:    reconcile.Pattern(points),
		Percentile: percentile,
		Threshold:  threshold,
		Stats:      stats,
	}
	if diffs := reconcile.Diffs(records); len(diffs) > 0 {
		abs := make([]float64, len(diffs))
		for i, d := range diffs {
			if d < 0 {
				d = -d
			}
			abs[i] = d
		}
		data.MeanChange = mathutil.Mean(diffs)
		data.MeanAbsChange = mathutil.Mean(abs)
	}
	return render("changepoints.tmpl", data)
}

type reportPromptData struct {
	Summary         reconcile.Summary
	MetricsAnalysis string
	TrendAnalysis   string
}

// RenderReportPrompt asks for a full report built on two earlier narratives.
func RenderReportPrompt(summary reconcile.Summary, metricsAnalysis, trendAnalysis string) string {
	out, err := render("report.tmpl", reportPromptData{
		Summary:         summary,
		MetricsAnalysis: strings.TrimSpace(metricsAnalysis),
		TrendAnalysis:   strings.TrimSpace(trendAnalysis),
	})
	if err != nil {
		panic(err)
	}
	return out
}

func describeYears(years []reconcile.YearCount) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = fmt.Sprintf("%d年(%d次)", y.Year, y.Count)
	}
	return strings.Join(parts, ", ")
}
