// Package events holds the static reference table of exchange-rate policy
// milestones and market shocks used to annotate narratives. The table is
// bundled with the binary and can be replaced by a YAML file of the same shape.
package events

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/iwvelando/bigmac-dashboard/pkg/datetime"
	"gopkg.in/yaml.v3"
)

//go:embed events.yaml
var bundled []byte

// Category classifies an event as domestic policy or a global shock.
type Category string

const (
	Domestic Category = "domestic"
	Global   Category = "global"
)

// Event is one dated entry of the reference table.
type Event struct {
	Date        time.Time `json:"date"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
}

// List is a date-ordered set of events.
type List []Event

// Catalog groups the two reference tables: policy milestones annotate trend
// narratives and major events annotate change points.
type Catalog struct {
	Policy List `json:"policyEvents"`
	Major  List `json:"majorEvents"`
}

// Nearby is an event found close to a reference date. Days is the signed
// distance from the reference date to the event.
type Nearby struct {
	Event
	Days int `json:"days"`
}

type rawEvent struct {
	Date        string `yaml:"date"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
}

type rawCatalog struct {
	PolicyEvents []rawEvent `yaml:"policyEvents"`
	MajorEvents  []rawEvent `yaml:"majorEvents"`
}

// Default returns the bundled catalog.
func Default() (*Catalog, error) {
	return Parse(bundled)
}

// Load reads a catalog from path. An empty path returns the bundled catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read events file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and sorts both tables by date.
func Parse(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse events: %w", err)
	}

	policy, err := convert(raw.PolicyEvents)
	if err != nil {
		return nil, fmt.Errorf("policyEvents: %w", err)
	}
	major, err := convert(raw.MajorEvents)
	if err != nil {
		return nil, fmt.Errorf("majorEvents: %w", err)
	}
	return &Catalog{Policy: policy, Major: major}, nil
}

func convert(raw []rawEvent) (List, error) {
	out := make(List, 0, len(raw))
	for i, r := range raw {
		date, err := datetime.ParseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i, r.Title, err)
		}
		category := Category(r.Category)
		if category != Domestic && category != Global {
			return nil, fmt.Errorf("event %d (%s): unknown category %q", i, r.Title, r.Category)
		}
		out = append(out, Event{
			Date:        date,
			Title:       r.Title,
			Description: r.Description,
			Category:    category,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Within returns the events dated in [from, to].
func (l List) Within(from, to time.Time) List {
	var out List
	for _, e := range l {
		if datetime.InRange(e.Date, from, to) {
			out = append(out, e)
		}
	}
	return out
}

// Near returns the events within the given number of days of date, in date
// order.
func (l List) Near(date time.Time, days int) []Nearby {
	var out []Nearby
	for _, e := range l {
		d := datetime.DaysBetween(date, e.Date)
		if d >= -days && d <= days {
			out = append(out, Nearby{Event: e, Days: d})
		}
	}
	return out
}

// HasCategory reports whether any nearby event belongs to the category.
func HasCategory(nearby []Nearby, category Category) bool {
	for _, n := range nearby {
		if n.Category == category {
			return true
		}
	}
	return false
}
