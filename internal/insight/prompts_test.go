package insight

import (
	"strings"
	"testing"

	"github.com/iwvelando/bigmac-dashboard/internal/reconcile"
	"github.com/iwvelando/bigmac-dashboard/pkg/datetime"
	"github.com/iwvelando/bigmac-dashboard/pkg/events"
	"github.com/iwvelando/bigmac-dashboard/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMetricsPrompt(t *testing.T) {
	records := []reconcile.Record{testutil.Record("2024-01-01", "21", "5", 6.5)}
	summary, err := reconcile.Summarize(records)
	require.NoError(t, err)

	prompt := RenderMetricsPrompt(summary)
	assert.Contains(t, prompt, "- 分析时间段: 2024-01-01 至 2024-01-01")
	assert.Contains(t, prompt, "- 平均偏差百分比: 54.76%")
	assert.Contains(t, prompt, "- 最新偏差百分比: 54.76%")
	assert.Contains(t, prompt, "人民币相对美元低估")

	// Same input, byte-identical output.
	assert.Equal(t, prompt, RenderMetricsPrompt(summary))
}

func TestRenderMetricsPromptNegative(t *testing.T) {
	summary, err := reconcile.Summarize(testutil.Records("2020-01-01", 5, -12.346))
	require.NoError(t, err)

	prompt := RenderMetricsPrompt(summary)
	assert.Contains(t, prompt, "- 最新偏差百分比: -12.35%")
	assert.Contains(t, prompt, "- 最大偏差百分比: 5.00%")
	assert.Contains(t, prompt, "人民币相对美元高估")
}

func TestComputeTrend(t *testing.T) {
	records := testutil.Records("2020-01-01", 10, 40, -5, 40, 20)

	trend, err := ComputeTrend(records)
	require.NoError(t, err)

	assert.Equal(t, "2020-01-01", datetime.Format(trend.Start))
	assert.Equal(t, "2020-05-01", datetime.Format(trend.End))
	assert.InDelta(t, 10, trend.StartDeviation, 1e-9)
	assert.InDelta(t, 20, trend.EndDeviation, 1e-9)
	assert.InDelta(t, 10, trend.Change, 1e-9)
	assert.Equal(t, "上升", trend.Direction)
	assert.InDelta(t, 40, trend.Peak, 1e-9)
	assert.Equal(t, "2020-02-01", datetime.Format(trend.PeakDate), "ties go to the earliest record")
	assert.InDelta(t, -5, trend.Trough, 1e-9)
	assert.Equal(t, "2020-03-01", datetime.Format(trend.TroughDate))
	assert.Equal(t, 2020, trend.StartYear())

	_, err = ComputeTrend(nil)
	assert.ErrorIs(t, err, reconcile.ErrInsufficientData)
}

func TestRenderTrendPrompt(t *testing.T) {
	records := testutil.Records("2015-01-01", 30, 25, 20, 28, 26, 24, 22, 21, 20, 19, 18, 17)
	d := datetime.MustParseDate
	policy := events.List{
		{Date: d("2010-06-19"), Title: "二次汇改", Description: "增强人民币汇率弹性", Category: events.Domestic},
		{Date: d("2015-08-11"), Title: "811汇改", Description: "完善人民币兑美元汇率中间价报价", Category: events.Domestic},
	}

	tests := []struct {
		name     string
		policy   events.List
		contains []string
		excludes []string
	}{
		{
			name:   "events inside window",
			policy: policy,
			contains: []string{
				"## 时间段内的重要汇率政策事件",
				"- 2015-08-11: 811汇改：完善人民币兑美元汇率中间价报价",
				"- 分析时间段: 2015-01-01 至 2015-12-01",
				"- 总体变化: -13.00% (下降)",
				"- 最高偏差: 30.00% (于 2015-01-01)",
			},
			excludes: []string{"二次汇改", "未发现重要汇率政策事件"},
		},
		{
			name:     "no events inside window",
			policy:   policy[:1],
			contains: []string{"注意：在所选时间范围内未发现重要汇率政策事件。", "- 最低偏差: 17.00% (于 2015-12-01)"},
			excludes: []string{"## 时间段内的重要汇率政策事件"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := RenderTrendPrompt(records, tt.policy)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, prompt, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, prompt, s)
			}
			assert.NotContains(t, prompt, "<no value>")
		})
	}

	_, err := RenderTrendPrompt(nil, policy)
	assert.ErrorIs(t, err, reconcile.ErrInsufficientData)
}

func TestRenderChangePointPrompt(t *testing.T) {
	devs := make([]float64, 24)
	for i := range devs {
		devs[i] = 10
		if i >= 7 {
			devs[i] = 30
		}
	}
	records := testutil.Records("2015-01-01", devs...)
	points, threshold, err := reconcile.DetectChangePoints(records, 90)
	require.NoError(t, err)
	require.Len(t, points, 1)

	d := datetime.MustParseDate
	major := events.List{
		{Date: d("2015-08-11"), Title: "人民币汇改", Category: events.Domestic},
		{Date: d("2008-09-15"), Title: "雷曼兄弟破产", Category: events.Global},
	}

	prompt, err := RenderChangePointPrompt(records, points, 90, threshold, major)
	require.NoError(t, err)
	assert.Contains(t, prompt, "- 识别出的显著变化点数量: 1个")
	assert.Contains(t, prompt, "- 2015-08-01: 偏差为30.00%，上升了20.00%（极大）。相关事件：人民币汇改(2015-08-11，10天之后)")
	assert.Contains(t, prompt, "2015年(1次)")
	assert.NotContains(t, prompt, "雷曼兄弟破产")

	flat := testutil.Records("2015-01-01", 1, 2, 3, 4)
	prompt, err = RenderChangePointPrompt(flat, nil, 90, 1, major)
	require.NoError(t, err)
	assert.Contains(t, prompt, "使用90%分位数作为阈值（绝对变化量>1.00%），未发现显著的变化点")
	assert.Contains(t, prompt, "- 时间段内偏差平均值: 2.50%")
	assert.Contains(t, prompt, "- 时间段内绝对变化量平均值: 1.00%")

	_, err = RenderChangePointPrompt(nil, nil, 90, 0, major)
	assert.ErrorIs(t, err, reconcile.ErrInsufficientData)
}

func TestRenderReportPrompt(t *testing.T) {
	summary, err := reconcile.Summarize(testutil.Records("2020-01-01", 10, 20))
	require.NoError(t, err)

	prompt := RenderReportPrompt(summary, "\n  指标分析正文\n", "趋势分析正文")
	assert.Contains(t, prompt, "## 指标分析\n指标分析正文\n")
	assert.Contains(t, prompt, "## 趋势分析\n趋势分析正文\n")
	assert.Contains(t, prompt, "- 平均偏差百分比: 15.00%")
	assert.True(t, strings.HasPrefix(prompt, "请基于以下中美汇率与巨无霸指数分析内容"))
}

func TestAnnotate(t *testing.T) {
	d := datetime.MustParseDate
	records := testutil.Records("2016-06-01", 0, 5, 0)
	points := []reconcile.ChangePoint{
		{Record: records[0]},
		{Record: records[1]},
		{Record: records[2]},
	}
	major := events.List{
		{Date: d("2016-06-24"), Title: "英国脱欧公投", Category: events.Global},
		{Date: d("2016-07-20"), Title: "国内事件", Category: events.Domestic},
	}

	got := Annotate(points, major)
	require.Len(t, got, 3)

	assert.Len(t, got[0].Nearby, 1)
	assert.False(t, got[0].Domestic)
	assert.Equal(t, NoteGlobal, got[0].Note)

	// 2016-07-01 sits 7 days after the referendum and 19 days before the
	// domestic event.
	assert.Len(t, got[1].Nearby, 2)
	assert.True(t, got[1].Domestic)
	assert.Equal(t, NoteDomestic, got[1].Note)
	assert.Equal(t, -7, got[1].Nearby[0].Days)

	assert.Equal(t, "国内事件(2016-07-20，12天之前)", describeNearby(got[2].Nearby))

	none := Annotate([]reconcile.ChangePoint{{Record: testutil.Records("2000-01-01", 1)[0]}}, major)
	assert.Empty(t, none[0].Nearby)
	assert.Equal(t, NoteNone, none[0].Note)
	assert.Equal(t, "无明显相关事件", describeNearby(none[0].Nearby))
}
