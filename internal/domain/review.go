package domain

import "time"

// ReviewEvent is one immutable, append-only record of a review action.
// Events are never mutated or deleted except by a wholesale store reset.
type ReviewEvent struct {
	ID        string
	CardID    string
	Timestamp time.Time
	Rating    Rating
}
