// Package queue builds review sessions from the deck index and the state
// store. A queue is a point-in-time snapshot: it does not update as the
// caller reviews, so hosts rebuild between sessions.
package queue

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/conorfennell/vaultsrs/internal/domain"
	"github.com/conorfennell/vaultsrs/internal/index"
	"github.com/conorfennell/vaultsrs/internal/store"
)

// Unlimited lifts a quota entirely. For MaxDue it also switches the queue
// into cram mode, pulling in learning cards that are not due yet.
const Unlimited = -1

// Options narrows and bounds the queue. The zero value selects every deck
// with no cards at all (both quotas zero), which is intentional: zero is a
// real quota, not shorthand for unlimited.
type Options struct {
	DeckID string   // "" means all decks
	Tags   []string // decks must carry every listed tag
	MaxDue int
	MaxNew int
}

// Item pairs a card with its scheduling state. State is nil for new cards.
type Item struct {
	Card  domain.Card
	State *domain.MemoryState
}

// Builder assembles queues from an index view and stored states.
type Builder struct {
	index *index.DeckIndex
	store store.Store
}

func NewBuilder(idx *index.DeckIndex, st store.Store) *Builder {
	return &Builder{index: idx, store: st}
}

// Build returns the session queue for now: due cards first in ascending due
// order, then new cards in extraction order, each segment cut to its quota.
func (b *Builder) Build(ctx context.Context, now time.Time, opts Options) ([]Item, error) {
	states, err := b.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("building queue: %w", err)
	}

	var due, fresh []Item
	for _, deck := range b.selectDecks(opts) {
		for _, card := range b.index.CardsByDeck(deck.ID) {
			st, ok := states[card.ID]
			if !ok || st.Phase == domain.PhaseNew {
				fresh = append(fresh, Item{Card: card})
				continue
			}
			if b.eligible(st, now, opts) {
				s := st.Clone()
				due = append(due, Item{Card: card, State: &s})
			}
		}
	}

	// Earliest due first; id breaks ties so the order is reproducible.
	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].State.Due.Equal(due[j].State.Due) {
			return due[i].State.Due.Before(due[j].State.Due)
		}
		return due[i].Card.ID < due[j].Card.ID
	})

	due = cut(due, opts.MaxDue)
	fresh = cut(fresh, opts.MaxNew)
	return append(due, fresh...), nil
}

// selectDecks applies the deck and tag filters. Tag matching requires the
// deck to carry all requested tags.
func (b *Builder) selectDecks(opts Options) []domain.Deck {
	decks := b.index.Decks()
	out := decks[:0]
	for _, deck := range decks {
		if opts.DeckID != "" && deck.ID != opts.DeckID {
			continue
		}
		if !hasAllTags(deck.Tags, opts.Tags) {
			continue
		}
		out = append(out, deck)
	}
	return out
}

func (b *Builder) eligible(st domain.MemoryState, now time.Time, opts Options) bool {
	if !st.Due.After(now) {
		return true
	}
	// Cram mode: an unlimited due quota also admits in-flight learning
	// cards ahead of their due time, so short learning steps are not
	// stranded across session boundaries.
	if opts.MaxDue == Unlimited {
		return st.Phase == domain.PhaseLearning || st.Phase == domain.PhaseRelearning
	}
	return false
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func cut(items []Item, quota int) []Item {
	if quota == Unlimited || quota >= len(items) {
		return items
	}
	if quota <= 0 {
		return nil
	}
	return items[:quota]
}
