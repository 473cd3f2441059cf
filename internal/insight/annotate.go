package insight

import (
	"fmt"
	"strings"

	"github.com/iwvelando/bigmac-dashboard/internal/reconcile"
	"github.com/iwvelando/bigmac-dashboard/pkg/constants"
	"github.com/iwvelando/bigmac-dashboard/pkg/datetime"
	"github.com/iwvelando/bigmac-dashboard/pkg/events"
)

// Notes attached to annotated change points.
const (
	NoteDomestic = "此变化点与中国国内政策或事件时间接近，可能存在直接关联。"
	NoteGlobal   = "此变化点与全球重大事件时间接近，可能受到国际因素影响。"
	NoteNone     = "在此变化点前后30天内未发现重大事件。可能是由于市场因素、季节性因素或未记录的政策变化导致。"
)

// AnnotatedChangePoint is a change point with the reference events dated
// near it.
type AnnotatedChangePoint struct {
	reconcile.ChangePoint
	Nearby []events.Nearby `json:"nearby"`
	// Domestic is true when any nearby event is a domestic one.
	Domestic bool   `json:"domestic"`
	Note     string `json:"note"`
}

// Annotate pairs each change point with the events within
// constants.EventProximityDays of its date.
func Annotate(points []reconcile.ChangePoint, major events.List) []AnnotatedChangePoint {
	out := make([]AnnotatedChangePoint, 0, len(points))
	for _, cp := range points {
		nearby := major.Near(cp.Date, constants.EventProximityDays)
		a := AnnotatedChangePoint{ChangePoint: cp, Nearby: nearby}
		switch {
		case len(nearby) == 0:
			a.Note = NoteNone
		case events.HasCategory(nearby, events.Domestic):
			a.Domestic = true
			a.Note = NoteDomestic
		default:
			a.Note = NoteGlobal
		}
		out = append(out, a)
	}
	return out
}

// describeNearby renders events as "title(date，N天之前)" joined by "，".
func describeNearby(nearby []events.Nearby) string {
	if len(nearby) == 0 {
		return "无明显相关事件"
	}
	parts := make([]string, len(nearby))
	for i, n := range nearby {
		rel := "之后"
		days := n.Days
		if days < 0 {
			rel, days = "之前", -days
		}
		parts[i] = fmt.Sprintf("%s(%s，%d天%s)", n.Title, datetime.Format(n.Date), days, rel)
	}
	return strings.Join(parts, "，")
}
