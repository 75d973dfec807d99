// Package fsrs implements the FSRS-6 spaced repetition model behind the
// Scheduler interface. The engine is stateless and pure: identical inputs
// always produce identical outputs, which keeps review-log replay and tests
// reproducible, so there is no interval fuzzing.
package fsrs

import (
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/conorfennell/vaultsrs/internal/domain"
)

// Scheduler is the pluggable scheduling capability. A nil state means the
// card has never been studied.
type Scheduler interface {
	// Schedule applies one rating and returns the next memory state.
	Schedule(state *domain.MemoryState, rating domain.Rating, now time.Time) domain.MemoryState

	// PreviewIntervals returns, for each schedulable rating, a humanized
	// interval string ("10 minutes", "5 days") for display before the
	// rating is committed.
	PreviewIntervals(state *domain.MemoryState, now time.Time) map[domain.Rating]string

	// Retrievability is the modeled probability of recall at now.
	Retrievability(state *domain.MemoryState, now time.Time) float64
}

// Engine is the FSRS-6 implementation of Scheduler.
type Engine struct {
	w               [WeightCount]float64
	decay           float64 // -w[20]
	factor          float64 // 0.9^(1/decay) - 1
	retention       float64
	maxInterval     int
	learningSteps   []time.Duration
	relearningSteps []time.Duration
}

var _ Scheduler = (*Engine)(nil)

// New validates the parameter set and constructs an engine. All parameter
// failures surface here; Schedule itself never fails.
func New(p Params) (*Engine, error) {
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	decay := -p.Weights[20]
	return &Engine{
		w:               p.Weights,
		decay:           decay,
		factor:          math.Pow(0.9, 1.0/decay) - 1.0,
		retention:       p.RequestRetention,
		maxInterval:     p.MaximumInterval,
		learningSteps:   p.LearningSteps,
		relearningSteps: p.RelearningSteps,
	}, nil
}

// Schedule implements Scheduler. Non-schedulable ratings (Manual) leave the
// state untouched.
func (e *Engine) Schedule(state *domain.MemoryState, rating domain.Rating, now time.Time) domain.MemoryState {
	var st domain.MemoryState
	if state != nil {
		st = state.Clone()
	} else {
		st.Phase = domain.PhaseNew
	}
	if !rating.Schedulable() {
		return st
	}

	var elapsed float64
	if st.LastReview != nil {
		elapsed = now.Sub(*st.LastReview).Hours() / 24.0
	}

	e.updateMemory(&st, rating, elapsed)

	var interval time.Duration
	switch st.Phase {
	case domain.PhaseNew:
		interval = e.fromNew(&st, rating)
	case domain.PhaseLearning, domain.PhaseRelearning:
		interval = e.fromLearning(&st, rating)
	default:
		interval = e.fromReview(&st, rating)
	}

	if rating == domain.Again {
		st.Lapses++
	} else {
		st.Reps++
	}
	st.ElapsedDays = elapsed
	st.ScheduledDays = interval.Hours() / 24.0
	st.Due = now.Add(interval)
	reviewed := now
	st.LastReview = &reviewed
	return st
}

// PreviewIntervals implements Scheduler.
func (e *Engine) PreviewIntervals(state *domain.MemoryState, now time.Time) map[domain.Rating]string {
	out := make(map[domain.Rating]string, 4)
	for _, r := range []domain.Rating{domain.Again, domain.Hard, domain.Good, domain.Easy} {
		next := e.Schedule(state, r, now)
		out[r] = strings.TrimSpace(humanize.RelTime(now, next.Due, "", ""))
	}
	return out
}

// Retrievability implements Scheduler. Unreviewed cards have zero modeled
// retrievability.
func (e *Engine) Retrievability(state *domain.MemoryState, now time.Time) float64 {
	if state == nil || state.LastReview == nil {
		return 0
	}
	elapsed := now.Sub(*state.LastReview).Hours() / 24.0
	if elapsed < 0 {
		elapsed = 0
	}
	return e.retrievabilityAt(elapsed, clampS(state.Stability))
}

// updateMemory advances stability and difficulty for one review.
func (e *Engine) updateMemory(st *domain.MemoryState, rating domain.Rating, elapsed float64) {
	if st.LastReview == nil {
		st.Stability = e.initStability(rating)
		st.Difficulty = e.initDifficulty(rating, true)
		return
	}

	stability := clampS(st.Stability)
	if elapsed < 1 {
		// Same-day review.
		st.Stability = e.shortTermStability(stability, rating)
	} else {
		r := e.retrievabilityAt(elapsed, stability)
		st.Stability = e.nextStability(st.Difficulty, stability, r, rating)
	}
	st.Difficulty = e.nextDifficulty(st.Difficulty, rating)
}

// fromNew schedules the first review of a card.
func (e *Engine) fromNew(st *domain.MemoryState, rating domain.Rating) time.Duration {
	if len(e.learningSteps) == 0 || rating == domain.Easy {
		return e.graduate(st)
	}
	st.Phase = domain.PhaseLearning
	switch rating {
	case domain.Again:
		return e.learningSteps[0]
	case domain.Hard:
		return hardStep(e.learningSteps)
	default: // Good: the last short-term step before graduating.
		return e.learningSteps[len(e.learningSteps)-1]
	}
}

// fromLearning handles Learning and Relearning cards. Again repeats the
// first step, Hard holds the card short-term, Good and Easy graduate.
func (e *Engine) fromLearning(st *domain.MemoryState, rating domain.Rating) time.Duration {
	steps := e.learningSteps
	if st.Phase == domain.PhaseRelearning {
		steps = e.relearningSteps
	}
	if len(steps) == 0 {
		return e.graduate(st)
	}
	switch rating {
	case domain.Again:
		return steps[0]
	case domain.Hard:
		return hardStep(steps)
	default:
		return e.graduate(st)
	}
}

// fromReview handles cards in the long-term review cycle. Again lapses the
// card into Relearning with a short-term due date.
func (e *Engine) fromReview(st *domain.MemoryState, rating domain.Rating) time.Duration {
	if rating == domain.Again && len(e.relearningSteps) > 0 {
		st.Phase = domain.PhaseRelearning
		return e.relearningSteps[0]
	}
	return e.reviewInterval(st.Stability)
}

// graduate moves the card into Review and returns the long-term interval.
func (e *Engine) graduate(st *domain.MemoryState) time.Duration {
	st.Phase = domain.PhaseReview
	return e.reviewInterval(st.Stability)
}

// reviewInterval converts stability into a day interval capped at the
// maximum interval.
func (e *Engine) reviewInterval(stability float64) time.Duration {
	return time.Duration(e.nextIntervalDays(clampS(stability))) * 24 * time.Hour
}

// hardStep is the interval for a Hard answer during short-term steps:
// halfway between the first two steps, or 1.5x a lone step.
func hardStep(steps []time.Duration) time.Duration {
	if len(steps) >= 2 {
		return (steps[0] + steps[1]) / 2
	}
	return steps[0] * 3 / 2
}

// The formulas below are the FSRS-6 model.

// retrievabilityAt computes R(t, S) = (1 + FACTOR * t / S) ^ DECAY.
func (e *Engine) retrievabilityAt(elapsedDays, stability float64) float64 {
	return math.Pow(1+e.factor*elapsedDays/stability, e.decay)
}

// initStability returns S₀(G) = clamp_s(w[G-1]).
func (e *Engine) initStability(r domain.Rating) float64 {
	return clampS(e.w[r-1])
}

// initDifficulty returns D₀(G) = w[4] - e^(w[5] * (G - 1)) + 1.
func (e *Engine) initDifficulty(r domain.Rating, clamp bool) float64 {
	d := e.w[4] - math.Exp(e.w[5]*float64(r-1)) + 1
	if clamp {
		return clampD(d)
	}
	return d
}

// nextIntervalDays computes I(r, S), clamped to [1, maxInterval].
func (e *Engine) nextIntervalDays(stability float64) int {
	ivl := stability / e.factor * (math.Pow(e.retention, 1.0/e.decay) - 1)
	days := int(math.Round(ivl))
	if days < 1 {
		days = 1
	}
	if days > e.maxInterval {
		days = e.maxInterval
	}
	return days
}

// shortTermStability computes the same-day review stability update.
func (e *Engine) shortTermStability(stability float64, r domain.Rating) float64 {
	sInc := math.Exp(e.w[17]*(float64(r)-3+e.w[18])) * math.Pow(stability, -e.w[19])
	if r == domain.Good || r == domain.Easy {
		sInc = math.Max(sInc, 1.0)
	}
	return clampS(stability * sInc)
}

// nextDifficulty applies linear damping and mean reversion toward D₀(Easy).
func (e *Engine) nextDifficulty(difficulty float64, r domain.Rating) float64 {
	deltaD := -e.w[6] * (float64(r) - 3)
	dPrime := difficulty + (10-difficulty)*deltaD/9
	d0Easy := e.initDifficulty(domain.Easy, false)
	return clampD(e.w[7]*d0Easy + (1-e.w[7])*dPrime)
}

// nextStability dispatches on recall vs. forget.
func (e *Engine) nextStability(d, s, r float64, rating domain.Rating) float64 {
	if rating == domain.Again {
		return clampS(e.nextForgetStability(d, s, r))
	}
	return clampS(e.nextRecallStability(d, s, r, rating))
}

// nextRecallStability computes stability after Hard/Good/Easy.
func (e *Engine) nextRecallStability(d, s, r float64, rating domain.Rating) float64 {
	hardPenalty := 1.0
	if rating == domain.Hard {
		hardPenalty = e.w[15]
	}
	easyBonus := 1.0
	if rating == domain.Easy {
		easyBonus = e.w[16]
	}
	return s * (1 + math.Exp(e.w[8])*
		(11-d)*
		math.Pow(s, -e.w[9])*
		(math.Exp((1-r)*e.w[10])-1)*
		hardPenalty*easyBonus)
}

// nextForgetStability computes stability after Again.
func (e *Engine) nextForgetStability(d, s, r float64) float64 {
	long := e.w[11] *
		math.Pow(d, -e.w[12]) *
		(math.Pow(s+1, e.w[13]) - 1) *
		math.Exp((1-r)*e.w[14])
	short := s / math.Exp(e.w[17]*e.w[18])
	return math.Min(long, short)
}

func clampS(s float64) float64 {
	return math.Max(s, 0.001)
}

func clampD(d float64) float64 {
	return math.Min(math.Max(d, 1), 10)
}
