package reconcile

import (
	"fmt"
	"strings"
)

// MatchKind selects how a ColumnRule compares its token to a header.
type MatchKind string

const (
	MatchExact    MatchKind = "exact"
	MatchContains MatchKind = "contains"
)

// ColumnRule is one entry of a prioritized header matcher.
type ColumnRule struct {
	Match    MatchKind `mapstructure:"match" yaml:"match" json:"match" validate:"oneof=exact contains"`
	Token    string    `mapstructure:"token" yaml:"token" json:"token" validate:"required"`
	FoldCase bool      `mapstructure:"foldCase" yaml:"foldCase" json:"foldCase"`
}

// Matches reports whether header satisfies the rule.
func (r ColumnRule) Matches(header string) bool {
	h, tok := strings.TrimSpace(header), r.Token
	if r.FoldCase {
		h, tok = strings.ToLower(h), strings.ToLower(tok)
	}
	if r.Match == MatchContains {
		return strings.Contains(h, tok)
	}
	return h == tok
}

func (r ColumnRule) String() string {
	s := fmt.Sprintf("%s %q", r.Match, r.Token)
	if r.FoldCase {
		s += " (case-insensitive)"
	}
	return s
}

// RuleSet is an ordered list of rules; earlier rules take priority.
type RuleSet []ColumnRule

// Pick tries each rule in order and returns the first header column that
// satisfies it, skipping excluded indices.
func (rs RuleSet) Pick(header []string, exclude ...int) (int, ColumnRule, bool) {
	for _, rule := range rs {
		for i, h := range header {
			if containsInt(exclude, i) {
				continue
			}
			if rule.Matches(h) {
				return i, rule, true
			}
		}
	}
	return -1, ColumnRule{}, false
}

// ColumnRules holds the matchers for the date and rate columns of a rate
// table.
type ColumnRules struct {
	Date RuleSet `mapstructure:"date" yaml:"date" json:"date" validate:"dive"`
	Rate RuleSet `mapstructure:"rate" yaml:"rate" json:"rate" validate:"dive"`
}

// DefaultColumnRules recognizes pre-labelled tables (date, actual_rate,
// actual_rates) first, then bank exports whose headers merely contain a date
// or rate token.
func DefaultColumnRules() ColumnRules {
	return ColumnRules{
		Date: RuleSet{
			{Match: MatchExact, Token: "date"},
			{Match: MatchContains, Token: "日期"},
			{Match: MatchContains, Token: "date", FoldCase: true},
		},
		Rate: RuleSet{
			{Match: MatchExact, Token: "actual_rate"},
			{Match: MatchExact, Token: "actual_rates"},
			{Match: MatchContains, Token: "汇率"},
			{Match: MatchContains, Token: "rate", FoldCase: true},
			{Match: MatchContains, Token: "基准价"},
		},
	}
}

// ColumnMatch records which columns of a rate table were used.
type ColumnMatch struct {
	Sheet      string     `json:"sheet,omitempty"`
	DateColumn string     `json:"dateColumn"`
	RateColumn string     `json:"rateColumn"`
	DateRule   ColumnRule `json:"dateRule"`
	RateRule   ColumnRule `json:"rateRule"`

	dateIdx, rateIdx int
}

// Recognize locates the date and rate columns of header. Empty rule sets fall
// back to the defaults.
func (c ColumnRules) Recognize(header []string) (ColumnMatch, error) {
	defaults := DefaultColumnRules()
	if len(c.Date) == 0 {
		c.Date = defaults.Date
	}
	if len(c.Rate) == 0 {
		c.Rate = defaults.Rate
	}

	dateIdx, dateRule, dateOK := c.Date.Pick(header)
	rateIdx, rateRule, rateOK := c.Rate.Pick(header, dateIdx)
	if !dateOK || !rateOK {
		var missing []string
		if !dateOK {
			missing = append(missing, "date")
		}
		if !rateOK {
			missing = append(missing, "rate")
		}
		return ColumnMatch{}, fmt.Errorf("%w: no %s column among %q; expected columns named 'date' and 'actual_rate' (or 'actual_rates')",
			ErrColumnRecognition, strings.Join(missing, " or "), header)
	}

	return ColumnMatch{
		DateColumn: header[dateIdx],
		RateColumn: header[rateIdx],
		DateRule:   dateRule,
		RateRule:   rateRule,
		dateIdx:    dateIdx,
		rateIdx:    rateIdx,
	}, nil
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
