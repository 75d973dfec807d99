// Package store persists per-card memory state and the append-only review
// event log. The core only depends on the Store interface; backends must make
// Put and AppendReview durable before acknowledging them, and a write failure
// must reach the caller so a review action can be retried instead of lost.
package store

import (
	"context"

	"github.com/conorfennell/vaultsrs/internal/domain"
)

// Store is the persistence contract for the review-state engine.
type Store interface {
	// Get returns the memory state for a card, or (nil, nil) when absent.
	// Absence is not an error: it means the card is New.
	Get(ctx context.Context, cardID string) (*domain.MemoryState, error)

	// GetAll returns a consistent snapshot of every stored memory state.
	GetAll(ctx context.Context) (map[string]domain.MemoryState, error)

	// Put durably writes the memory state for a card. Deck id and source
	// path are denormalized alongside the state so deck-scoped deletes and
	// exports do not need the in-memory index.
	Put(ctx context.Context, cardID, deckID, sourcePath string, state domain.MemoryState) error

	// AppendReview durably appends one event to the review log.
	AppendReview(ctx context.Context, event domain.ReviewEvent) error

	// ReviewHistory returns events most-recent-first; events sharing a
	// timestamp come back in reverse submission order. An empty cardID
	// selects all cards; a non-positive limit means no limit.
	ReviewHistory(ctx context.Context, cardID string, limit int) ([]domain.ReviewEvent, error)

	// Delete removes a card's memory state. Deleting an absent card is
	// not an error. The review log is left untouched.
	Delete(ctx context.Context, cardID string) error

	// DeleteDeck removes the memory state of every card in a deck.
	DeleteDeck(ctx context.Context, deckID string) error

	// ResetAll wipes all memory state and the review log.
	ResetAll(ctx context.Context) error

	Close() error
}
