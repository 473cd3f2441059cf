package insight

import (
	"context"
	"fmt"
	"math"

	"github.com/iwvelando/bigmac-dashboard/internal/reconcile"
)

// MockNarrator returns canned narratives filled from the request's summary
// and trend. It never touches the network.
type MockNarrator struct{}

// NewMockNarrator returns the offline narrator.
func NewMockNarrator() *MockNarrator {
	return &MockNarrator{}
}

// Submit renders the canned narrative for req.Kind.
func (m *MockNarrator) Submit(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch req.Kind {
	case KindMetrics:
		if req.Summary == nil {
			return "", fmt.Errorf("%w: metrics narrative needs a summary", reconcile.ErrInsufficientData)
		}
		return mockMetrics(*req.Summary), nil
	case KindTrend:
		if req.Trend == nil {
			return "", fmt.Errorf("%w: trend narrative needs a trend", reconcile.ErrInsufficientData)
		}
		return mockTrend(req.Trend.StartYear(), req.Trend.EndYear()), nil
	case KindChangePoints:
		return mockChangePoints, nil
	case KindReport:
		if req.Summary == nil {
			return "", fmt.Errorf("%w: report needs a summary", reconcile.ErrInsufficientData)
		}
		return mockReport(*req.Summary), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}
}

const mockChangePoints = "这是变化点分析的示例结果。实际部署时，这里将显示AI根据变化点数据生成的分析内容。"

// mockMetrics and mockReport label the mean deviation, which can differ in
// sign from the latest one carried by s.Label.
func mockMetrics(s reconcile.Summary) string {
	l := reconcile.ValuationLabel(s.Mean)
	return fmt.Sprintf(`## 人民币汇率状况分析

1. **总体状况**：根据巨无霸指数，人民币相对美元呈现%[1]s状态，平均偏差为%.2[2]f%%。这表明按照购买力平价理论，人民币的实际市场汇率与其理论价值存在一定差距。这种%[1]s程度相对显著，反映了市场汇率与基础经济因素之间的不平衡。

2. **经济原因**：这种偏差主要可能源于中国的出口导向型经济政策、资本管制措施以及政府对汇率的干预。此外，劳动力成本差异、生产效率差异和非贸易品价格差异也是重要因素。中国制造业的规模经济和成本优势导致了某些商品价格相对较低。

3. **经济政策关联**：人民币的汇率状态与中国作为全球制造业中心和出口大国的地位密切相关。适度%[1]s的货币有助于维持出口竞争力，支持"中国制造"的全球扩张。同时，这也是中国逐步开放资本市场和推进国际化进程中的过渡性现象。

4. **巨无霸指数局限性**：在中国背景下，巨无霸指数有明显局限性。麦当劳在中国属于中高端消费，不完全反映中国整体物价水平。指数忽略了中国巨大的区域差异、服务成本差异和非贸易品因素。此外，指数仅基于单一商品，无法全面反映经济复杂性，特别是中国特殊的经济结构和市场特征。
`, l, s.Mean)
}

func mockTrend(startYear, endYear int) string {
	return fmt.Sprintf(`## 人民币汇率偏差趋势分析 (%[1]d-%[2]d)

1. **总体趋势**：%[1]d年至%[2]d年间，人民币相对于巨无霸指数的偏差总体呈波动下降趋势，表明人民币低估程度整体上有所减弱。这一趋势反映了中国经济的结构性变化和逐步开放的汇率政策。值得注意的是，趋势并非线性下降，而是呈现出明显的周期性波动，这与全球经济周期和中国经济政策调整密切相关。

2. **峰谷与事件对应**：偏差峰值主要出现在全球金融危机(2008-2009)和欧债危机(2011-2012)期间，这些时期国际资本流动剧烈，投资者追求安全资产，导致美元走强。谷值则多出现在中国经济高速增长期(2007)和美国量化宽松政策实施后(2013-2014)，当时中国贸易顺差大幅增加，外汇储备上升，人民币承受升值压力。2015年汇率改革和2018年中美贸易摩擦也对偏差产生了显著影响。

3. **近期趋势**：近期趋势显示偏差有所扩大，这可能与疫情后全球经济复苏不均衡、通胀压力上升以及地缘政治紧张局势有关。这预示着未来人民币汇率可能面临更大波动性，尤其在美联储收紧货币政策背景下，中国央行需要平衡经济增长与汇率稳定的双重目标。

4. **政策建议**：基于巨无霸指数分析，建议中国继续推进汇率市场化改革，增强汇率弹性，但避免大幅度、单向调整。同时，应加快国内经济结构转型，减少对出口的依赖，增强内需对经济增长的贡献。此外，应进一步开放金融市场，吸引更多长期资本流入，平衡短期资本流动带来的汇率波动。
`, startYear, endYear)
}

func mockReport(s reconcile.Summary) string {
	return fmt.Sprintf(`# 中美汇率与巨无霸指数分析报告

## 引言

本研究基于《经济学人》的巨无霸指数，分析%[1]s期间人民币兑美元汇率的实际表现与理论预期之间的偏差。购买力平价理论认为，长期而言，相同商品在不同国家的价格应当相等，巨无霸指数正是基于此原理构建的简化模型。通过对比巨无霸指数预测的汇率与市场实际汇率，本研究旨在评估人民币的估值状况，并探讨其背后的经济机制与政策含义。

## 数据概览

本研究分析期间内，人民币兑美元汇率相对巨无霸指数平均%[2]s了%.2[3]f%%，最大偏差幅度达%.2[4]f%%，最小为%.2[5]f%%。最新观测数据显示，偏差为%.2[6]f%%。总体而言，数据表明人民币兑美元存在持续的%[2]s现象，但偏差程度呈现一定的波动性。

## 分析发现

研究发现，人民币相对美元的%[2]s现象具有结构性特征，反映了中国作为出口导向型经济体的战略定位。偏差趋势与全球经济周期、中美经贸关系演变以及中国国内经济政策调整高度相关。特别是在2008年全球金融危机、2015年汇率改革以及2018年中美贸易摩擦等关键时间点，偏差波动明显增大。

## 理论讨论

从购买力平价理论视角看，持续存在的偏差表明市场汇率并未完全反映基础经济面。理论上，商品贸易和资本流动应当推动汇率向购买力平价水平收敛，但实际上，以下因素限制了这一机制的有效性：

1. 非贸易品因素：服务等非贸易品价格在不同国家可有显著差异
2. 市场分割：贸易壁垒和运输成本导致市场不完全一体化
3. 政策干预：央行干预和资本管制影响汇率形成
4. 巴拉萨-萨缪尔森效应：发展中国家生产率增速较快导致实际汇率升值

## 政策启示

1. 继续推进汇率形成机制改革，增强汇率弹性，减少行政干预
2. 加快经济结构转型，促进从出口导向向内需驱动转变
3. 稳步推进资本项目开放，吸引更多长期资本流入
4. 加强与主要贸易伙伴的汇率政策协调，避免竞争性贬值

## 结论

巨无霸指数分析显示，人民币兑美元存在持续的%[2]s现象，但这种偏差需要在中国特殊的经济发展阶段和政策框架下理解。虽然巨无霸指数提供了简单直观的国际比较工具，但其预测存在局限性，不能完全反映复杂的经济现实。
`, s.Period(), reconcile.ValuationLabel(s.Mean), math.Abs(s.Mean), math.Abs(s.Max), math.Abs(s.Min), s.Last)
}
