// Package stats derives study analytics from the review log and the stored
// scheduling states.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/conorfennell/vaultsrs/internal/domain"
	"github.com/conorfennell/vaultsrs/internal/store"
)

// DayCount is one bucket of a per-day histogram. Day is midnight in the
// bucket's location.
type DayCount struct {
	Day   time.Time
	Count int
}

// Reporter computes analytics over a store.
type Reporter struct {
	store store.Store
}

func NewReporter(st store.Store) *Reporter {
	return &Reporter{store: st}
}

// Activity returns reviews per day for the `days` days ending at now,
// oldest first. Days without reviews appear with a zero count.
func (r *Reporter) Activity(ctx context.Context, now time.Time, days int) ([]DayCount, error) {
	if days <= 0 {
		return nil, nil
	}
	events, err := r.store.ReviewHistory(ctx, "", 0)
	if err != nil {
		return nil, fmt.Errorf("computing activity: %w", err)
	}

	start := midnight(now).AddDate(0, 0, -(days - 1))
	buckets := make([]DayCount, days)
	for i := range buckets {
		buckets[i].Day = start.AddDate(0, 0, i)
	}
	for _, ev := range events {
		i := daysBetween(start, midnight(ev.Timestamp.In(now.Location())))
		if i >= 0 && i < days {
			buckets[i].Count++
		}
	}
	return buckets, nil
}

// Forecast returns how many cards come due on each of the next `days` days,
// starting today. Overdue cards land in today's bucket.
func (r *Reporter) Forecast(ctx context.Context, now time.Time, days int) ([]DayCount, error) {
	if days <= 0 {
		return nil, nil
	}
	states, err := r.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("computing forecast: %w", err)
	}

	start := midnight(now)
	buckets := make([]DayCount, days)
	for i := range buckets {
		buckets[i].Day = start.AddDate(0, 0, i)
	}
	for _, st := range states {
		if st.Phase == domain.PhaseNew {
			continue
		}
		i := daysBetween(start, midnight(st.Due.In(now.Location())))
		if i < 0 {
			i = 0
		}
		if i < days {
			buckets[i].Count++
		}
	}
	return buckets, nil
}

// Retention is the share of graded reviews that were not failures, over the
// whole log. Returns 0 with ok=false when there are no reviews yet.
func (r *Reporter) Retention(ctx context.Context) (float64, bool, error) {
	events, err := r.store.ReviewHistory(ctx, "", 0)
	if err != nil {
		return 0, false, fmt.Errorf("computing retention: %w", err)
	}
	if len(events) == 0 {
		return 0, false, nil
	}
	passed := 0
	for _, ev := range events {
		if ev.Rating != domain.Again {
			passed++
		}
	}
	return float64(passed) / float64(len(events)), true, nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a to b, both at midnight in the
// same location. Computed via date arithmetic so DST shifts cannot skew it.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Round(24*time.Hour) / (24 * time.Hour))
}
