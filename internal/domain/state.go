package domain

import (
	"encoding"
	"fmt"
	"time"
)

// Phase is the learning stage of a card within the scheduling model.
type Phase int

const (
	PhaseNew        Phase = iota // Never studied; no MemoryState persisted.
	PhaseLearning                // In the initial learning steps.
	PhaseReview                  // In the long-term review cycle.
	PhaseRelearning              // Forgotten, relearning.
)

var (
	phaseNames = [...]string{
		PhaseNew:        "New",
		PhaseLearning:   "Learning",
		PhaseReview:     "Review",
		PhaseRelearning: "Relearning",
	}

	phaseByName = map[string]Phase{
		"New":        PhaseNew,
		"Learning":   PhaseLearning,
		"Review":     PhaseReview,
		"Relearning": PhaseRelearning,
	}
)

var (
	_ fmt.Stringer             = Phase(0)
	_ encoding.TextMarshaler   = Phase(0)
	_ encoding.TextUnmarshaler = (*Phase)(nil)
)

// IsValid reports whether p is a known phase.
func (p Phase) IsValid() bool {
	return p >= PhaseNew && p <= PhaseRelearning
}

// String returns the phase name, or "Phase(n)" for invalid values.
func (p Phase) String() string {
	if p.IsValid() {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("domain: invalid phase: %d", int(p))
	}
	return []byte(phaseNames[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	v, ok := phaseByName[string(text)]
	if !ok {
		return fmt.Errorf("domain: invalid phase: %q", text)
	}
	*p = v
	return nil
}

// MemoryState is a card's current position in the scheduling model. A card
// with no stored MemoryState is implicitly PhaseNew. Once created, a state is
// only removed by explicit delete or reset.
type MemoryState struct {
	Due           time.Time
	Stability     float64
	Difficulty    float64
	ElapsedDays   float64
	ScheduledDays float64
	Reps          int
	Lapses        int
	Phase         Phase
	LastReview    *time.Time
}

// Clone returns a deep copy. The LastReview pointer is copied by value so
// callers can hold the result without aliasing store-owned state.
func (m MemoryState) Clone() MemoryState {
	out := m
	if m.LastReview != nil {
		t := *m.LastReview
		out.LastReview = &t
	}
	return out
}
