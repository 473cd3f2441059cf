// Package session holds per-user analysis state: the uploaded series, the
// reconciled records and the narratives produced from them.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/bigmac-dashboard/internal/insight"
	"github.com/iwvelando/bigmac-dashboard/internal/reconcile"
)

// Session is one analysis context. Access its fields through Lock/Unlock or
// the helper methods.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	lastUsed   time.Time
	prices     *reconcile.PriceSeries
	rates      *reconcile.RateSeries
	records    []reconcile.Record
	summary    *reconcile.Summary
	narratives map[insight.Kind]string
	// generation advances whenever the records change.
	generation uint64
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		lastUsed:   now,
		narratives: map[insight.Kind]string{},
	}
}

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	ID         string
	CreatedAt  time.Time
	LastUsed   time.Time
	Prices     *reconcile.PriceSeries
	Rates      *reconcile.RateSeries
	Records    []reconcile.Record
	Summary    *reconcile.Summary
	Narratives map[insight.Kind]string
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	narratives := make(map[insight.Kind]string, len(s.narratives))
	for k, v := range s.narratives {
		narratives[k] = v
	}
	return Snapshot{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		LastUsed:   s.lastUsed,
		Prices:     s.prices,
		Rates:      s.rates,
		Records:    append([]reconcile.Record(nil), s.records...),
		Summary:    s.summary,
		Narratives: narratives,
	}
}

// SetPrices replaces the price series and discards derived results.
func (s *Session) SetPrices(p *reconcile.PriceSeries) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = p
	s.clearDerived()
}

// SetRates replaces the rate series and discards derived results.
func (s *Session) SetRates(r *reconcile.RateSeries) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = r
	s.clearDerived()
}

// Analyze reconciles the loaded series and summarizes the result.
func (s *Session) Analyze() ([]reconcile.Record, reconcile.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := reconcile.Reconcile(s.prices, s.rates)
	if err != nil {
		return nil, reconcile.Summary{}, err
	}
	summary, err := reconcile.Summarize(records)
	if err != nil {
		return nil, reconcile.Summary{}, err
	}
	s.records = records
	s.summary = &summary
	s.narratives = map[insight.Kind]string{}
	s.generation++
	return records, summary, nil
}

// Records returns the reconciled records, or ErrNotAnalyzed.
func (s *Session) Records() ([]reconcile.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotAnalyzed, s.ID)
	}
	return s.records, nil
}

// Summary returns the summary of the reconciled records, or ErrNotAnalyzed.
func (s *Session) Summary() (reconcile.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return reconcile.Summary{}, fmt.Errorf("%w: session %s", ErrNotAnalyzed, s.ID)
	}
	return *s.summary, nil
}

// Generation identifies the current records. It changes on every analysis
// and whenever an input is replaced.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// SetNarrativeAt stores a narrative only if the records are still those of
// generation gen. It reports whether the narrative was stored.
func (s *Session) SetNarrativeAt(gen uint64, kind insight.Kind, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.summary == nil {
		return false
	}
	s.narratives[kind] = text
	return true
}

// Narrative returns the stored narrative of a kind.
func (s *Session) Narrative(kind insight.Kind) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.narratives[kind]
	return text, ok
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) clearDerived() {
	s.records = nil
	s.summary = nil
	s.narratives = map[insight.Kind]string{}
	s.generation++
}
