package fsrs

import (
	"testing"
	"time"

	"github.com/conorfennell/vaultsrs/internal/domain"
)

func newEngine(t *testing.T, p Params) *Engine {
	t.Helper()
	e, err := New(p)
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %v", err)
	}
	return e
}

func reviewState(stability, difficulty float64, lastReview time.Time) *domain.MemoryState {
	return &domain.MemoryState{
		Stability:  stability,
		Difficulty: difficulty,
		Phase:      domain.PhaseReview,
		LastReview: &lastReview,
	}
}

func TestScheduleNewCardGood(t *testing.T) {
	e := newEngine(t, Params{})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	st := e.Schedule(nil, domain.Good, now)

	if st.Phase != domain.PhaseLearning {
		t.Errorf("Phase = %s, want Learning", st.Phase)
	}
	if st.Reps != 1 || st.Lapses != 0 {
		t.Errorf("Reps = %d, Lapses = %d, want 1, 0", st.Reps, st.Lapses)
	}
	if !st.Due.After(now) {
		t.Errorf("Due = %v, want after %v", st.Due, now)
	}
	if st.LastReview == nil || !st.LastReview.Equal(now) {
		t.Errorf("LastReview = %v, want %v", st.LastReview, now)
	}
	if st.Stability <= 0 {
		t.Errorf("Stability = %f, want positive", st.Stability)
	}
}

func TestScheduleRatingOrdering(t *testing.T) {
	e := newEngine(t, Params{})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	states := []*domain.MemoryState{
		nil, // New
		{Phase: domain.PhaseLearning, Stability: 1.2, Difficulty: 5, LastReview: timePtr(now.Add(-time.Hour))},
		{Phase: domain.PhaseRelearning, Stability: 2.5, Difficulty: 6, LastReview: timePtr(now.Add(-2 * time.Hour))},
		reviewState(20, 5, now.Add(-22*24*time.Hour)),
		reviewState(3, 8, now.Add(-10*24*time.Hour)), // overdue
	}

	for i, state := range states {
		again := e.Schedule(state, domain.Again, now).Due
		hard := e.Schedule(state, domain.Hard, now).Due
		good := e.Schedule(state, domain.Good, now).Due
		easy := e.Schedule(state, domain.Easy, now).Due

		if again.After(hard) || hard.After(good) || good.After(easy) {
			t.Errorf("state %d: due ordering violated: Again=%v Hard=%v Good=%v Easy=%v",
				i, again, hard, good, easy)
		}
	}
}

func TestScheduleMaximumIntervalCap(t *testing.T) {
	e := newEngine(t, Params{MaximumInterval: 30})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Very high stability would schedule far out without the cap.
	st := e.Schedule(reviewState(5000, 2, now.Add(-100*24*time.Hour)), domain.Easy, now)

	if st.Due.Sub(now) > 30*24*time.Hour {
		t.Errorf("Due %v exceeds the 30 day cap from %v", st.Due, now)
	}
}

func TestScheduleReviewAgainLapses(t *testing.T) {
	e := newEngine(t, Params{})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	st := e.Schedule(reviewState(20, 5, now.Add(-20*24*time.Hour)), domain.Again, now)

	if st.Lapses != 1 {
		t.Errorf("Lapses = %d, want 1", st.Lapses)
	}
	if st.Phase != domain.PhaseRelearning {
		t.Errorf("Phase = %s, want Relearning", st.Phase)
	}
	if interval := st.Due.Sub(now); interval >= 24*time.Hour {
		t.Errorf("Again on a Review card should reset due to a short interval, got %s", interval)
	}
	if st.Stability >= 20 {
		t.Errorf("Stability = %f, want below the pre-lapse 20", st.Stability)
	}
}

func TestScheduleGraduatesToReview(t *testing.T) {
	e := newEngine(t, Params{})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	st := e.Schedule(nil, domain.Good, now)
	st2 := e.Schedule(&st, domain.Good, st.Due)

	if st2.Phase != domain.PhaseReview {
		t.Errorf("Phase after second Good = %s, want Review", st2.Phase)
	}
	if st2.Reps != 2 {
		t.Errorf("Reps = %d, want 2", st2.Reps)
	}
	if st2.Due.Sub(st.Due) < 24*time.Hour {
		t.Errorf("Graduated interval %s should be at least a day", st2.Due.Sub(st.Due))
	}
}

func TestScheduleDeterministic(t *testing.T) {
	e := newEngine(t, Params{})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := reviewState(12.5, 6.1, now.Add(-13*24*time.Hour))

	a := e.Schedule(state, domain.Good, now)
	b := e.Schedule(state, domain.Good, now)

	if !a.Due.Equal(b.Due) || a.Stability != b.Stability || a.Difficulty != b.Difficulty {
		t.Errorf("Schedule is not deterministic: %+v vs %+v", a, b)
	}
}

func TestScheduleDoesNotMutateInput(t *testing.T) {
	e := newEngine(t, Params{})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-5 * 24 * time.Hour)
	state := reviewState(10, 5, last)

	_ = e.Schedule(state, domain.Easy, now)

	if state.Stability != 10 || state.Phase != domain.PhaseReview || !state.LastReview.Equal(last) {
		t.Errorf("Input state was mutated: %+v", state)
	}
}

func TestScheduleManualIsNoOp(t *testing.T) {
	e := newEngine(t, Params{})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := reviewState(10, 5, now.Add(-24*time.Hour))

	st := e.Schedule(state, domain.Manual, now)

	if st.Reps != 0 || st.Lapses != 0 || st.Stability != 10 {
		t.Errorf("Manual rating changed the state: %+v", st)
	}
}

func TestRetrievabilityDecay(t *testing.T) {
	e := newEngine(t, Params{})
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := reviewState(10, 5, last)

	prev := 1.1
	for days := 1; days <= 60; days += 7 {
		r := e.Retrievability(state, last.Add(time.Duration(days)*24*time.Hour))
		if r >= prev {
			t.Fatalf("Retrievability did not strictly decrease at day %d: %f >= %f", days, r, prev)
		}
		if r <= 0 || r >= 1 {
			t.Fatalf("Retrievability out of (0, 1) at day %d: %f", days, r)
		}
		prev = r
	}

	if e.Retrievability(nil, last) != 0 {
		t.Error("Retrievability of a never-studied card should be 0")
	}
}

func TestPreviewIntervals(t *testing.T) {
	e := newEngine(t, Params{})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	previews := e.PreviewIntervals(reviewState(20, 5, now.Add(-20*24*time.Hour)), now)

	if len(previews) != 4 {
		t.Fatalf("Expected previews for 4 ratings, got %d", len(previews))
	}
	for _, r := range []domain.Rating{domain.Again, domain.Hard, domain.Good, domain.Easy} {
		if previews[r] == "" {
			t.Errorf("Empty preview for %s", r)
		}
	}
}

func timePtr(t time.Time) *time.Time { return &t }
