package fsrs

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidParams is returned by New for out-of-bounds parameter sets.
// Validation happens once at construction; Schedule never fails afterwards.
var ErrInvalidParams = errors.New("fsrs: invalid scheduler parameters")

// WeightCount is the arity of the FSRS-6 parameter vector.
const WeightCount = 21

// defaultWeights are the FSRS-6 default parameter values.
var defaultWeights = [WeightCount]float64{
	0.212, 1.2931, 2.3065, 8.2956, // w[0..3]  initial stability S₀(G)
	6.4133, 0.8334, 3.0194, 0.001, // w[4..7]  difficulty params
	1.8722, 0.1666, 0.796, 1.4835, // w[8..11] recall stability params
	0.0614, 0.2629, 1.6483, 0.6014, // w[12..15] forget stability params
	1.8729, 0.5425, 0.0912, 0.0658, // w[16..19] easy/short-term params
	0.1542, // w[20] decay exponent
}

// lowerBounds and upperBounds bracket each weight.
var lowerBounds = [WeightCount]float64{
	0.001, 0.001, 0.001, 0.001,
	1.0, 0.001, 0.001, 0.001,
	0.0, 0.0, 0.001, 0.001,
	0.001, 0.001, 0.0, 0.0,
	1.0, 0.0, 0.0, 0.0,
	0.1,
}

var upperBounds = [WeightCount]float64{
	100.0, 100.0, 100.0, 100.0,
	10.0, 4.0, 4.0, 0.75,
	4.5, 0.8, 3.5, 5.0,
	0.25, 0.9, 4.0, 1.0,
	6.0, 2.0, 2.0, 0.8,
	0.8,
}

// Params is the tunable parameter set for the scheduling engine.
type Params struct {
	// Weights is the FSRS-6 parameter vector. A zero array selects the
	// defaults.
	Weights [WeightCount]float64

	// RequestRetention is the target retrievability in (0, 1).
	RequestRetention float64

	// MaximumInterval caps the gap between now and the returned due date,
	// in days.
	MaximumInterval int

	// LearningSteps and RelearningSteps are the short-term intervals used
	// before a card (re-)graduates to Review. Nil selects the defaults.
	LearningSteps   []time.Duration
	RelearningSteps []time.Duration
}

// DefaultParams returns the documented default parameter set.
func DefaultParams() Params {
	return Params{
		Weights:          defaultWeights,
		RequestRetention: 0.9,
		MaximumInterval:  36500,
		LearningSteps:    []time.Duration{time.Minute, 10 * time.Minute},
		RelearningSteps:  []time.Duration{10 * time.Minute},
	}
}

// withDefaults fills zero-valued fields with the documented defaults.
func (p Params) withDefaults() Params {
	if p.Weights == ([WeightCount]float64{}) {
		p.Weights = defaultWeights
	}
	if p.RequestRetention == 0 {
		p.RequestRetention = 0.9
	}
	if p.MaximumInterval == 0 {
		p.MaximumInterval = 36500
	}
	if p.LearningSteps == nil {
		p.LearningSteps = []time.Duration{time.Minute, 10 * time.Minute}
	}
	if p.RelearningSteps == nil {
		p.RelearningSteps = []time.Duration{10 * time.Minute}
	}
	return p
}

// Validate checks weight bounds, retention range, interval cap and steps.
func (p Params) Validate() error {
	for i := 0; i < WeightCount; i++ {
		if p.Weights[i] < lowerBounds[i] || p.Weights[i] > upperBounds[i] {
			return fmt.Errorf("%w: w[%d] = %f, bounds [%f, %f]",
				ErrInvalidParams, i, p.Weights[i], lowerBounds[i], upperBounds[i])
		}
	}
	if p.RequestRetention <= 0 || p.RequestRetention >= 1 {
		return fmt.Errorf("%w: request retention %f out of range (0, 1)", ErrInvalidParams, p.RequestRetention)
	}
	if p.MaximumInterval < 1 {
		return fmt.Errorf("%w: maximum interval %d must be at least 1 day", ErrInvalidParams, p.MaximumInterval)
	}
	for _, s := range p.LearningSteps {
		if s <= 0 {
			return fmt.Errorf("%w: non-positive learning step %s", ErrInvalidParams, s)
		}
	}
	for _, s := range p.RelearningSteps {
		if s <= 0 {
			return fmt.Errorf("%w: non-positive relearning step %s", ErrInvalidParams, s)
		}
	}
	return nil
}
