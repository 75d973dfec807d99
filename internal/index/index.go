// Package index maintains the in-memory deck/card view of the document
// corpus. All mutation goes through DeckIndex methods; external callers only
// read. Rebuilds replace a deck's card set atomically, so readers never see a
// partially indexed document.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/conorfennell/vaultsrs/internal/domain"
	"github.com/conorfennell/vaultsrs/internal/extract"
	"github.com/conorfennell/vaultsrs/internal/identity"
	"github.com/conorfennell/vaultsrs/internal/store"
)

// Diagnostics counts non-fatal indexing problems. Malformed candidates and
// stale references are silently skipped by design; collisions mean review
// continuity was lost for an earlier card and deserve the host's attention.
type Diagnostics struct {
	Malformed  int
	Collisions int
	StaleRefs  int
}

// DeckIndex is the mutable index service. A zero value is not usable; use New.
type DeckIndex struct {
	store  store.Store
	logger *slog.Logger

	mu    sync.RWMutex
	decks map[string]*domain.Deck
	cards map[string]domain.Card
	diag  Diagnostics
}

// New creates an empty index backed by the given store.
func New(st store.Store, logger *slog.Logger) *DeckIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeckIndex{
		store:  st,
		logger: logger,
		decks:  make(map[string]*domain.Deck),
		cards:  make(map[string]domain.Card),
	}
}

// RebuildFull rebuilds the whole index from the given document set. The loop
// is interruptible: cancellation between documents leaves every already
// applied deck intact and consistent.
func (x *DeckIndex) RebuildFull(ctx context.Context, docs []domain.Document) error {
	x.mu.Lock()
	x.decks = make(map[string]*domain.Deck)
	x.cards = make(map[string]domain.Card)
	x.diag = Diagnostics{}
	x.mu.Unlock()

	for _, doc := range docs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := x.RebuildOne(ctx, doc); err != nil {
			return fmt.Errorf("rebuilding %s: %w", doc.Path, err)
		}
	}
	return nil
}

// RebuildOne (re-)indexes a single document. A document that is not
// deck-tagged has any previously indexed deck removed from the view; its
// stored state is left alone, since the document still exists.
func (x *DeckIndex) RebuildOne(_ context.Context, doc domain.Document) error {
	deckID := identity.DeckID(doc.Path)

	if !doc.DeckTagged {
		x.mu.Lock()
		x.dropDeckLocked(deckID)
		x.mu.Unlock()
		return nil
	}

	candidates, malformed := extract.Extract(doc.Text)

	// Resolve identities outside the lock; only the swap is serialized.
	resolved := make(map[string]domain.Card, len(candidates))
	order := make([]string, 0, len(candidates))
	collisions := 0
	for _, c := range candidates {
		card := identity.Materialize(c, deckID, doc.Path)
		if _, dup := resolved[card.ID]; dup {
			// Last-extracted-wins, deterministic by extraction order.
			collisions++
			x.logger.Warn("duplicate card identity, earlier card loses its review continuity",
				"deck", deckID, "card", card.ID)
		} else {
			order = append(order, card.ID)
		}
		resolved[card.ID] = card
	}

	deck := &domain.Deck{
		ID:         deckID,
		Title:      doc.Title,
		SourcePath: doc.Path,
		Tags:       append([]string(nil), doc.Tags...),
		CardIDs:    order,
	}

	x.mu.Lock()
	x.dropDeckLocked(deckID)
	x.decks[deckID] = deck
	for id, card := range resolved {
		x.cards[id] = card
	}
	x.diag.Malformed += malformed
	x.diag.Collisions += collisions
	x.mu.Unlock()

	x.logger.Debug("indexed deck",
		"deck", deckID, "cards", len(order), "malformed", malformed, "collisions", collisions)
	return nil
}

// Remove drops a deck from the index and deletes its cards' memory states.
// Review events are retained: the log is append-only audit data and only a
// full reset clears it.
func (x *DeckIndex) Remove(ctx context.Context, deckID string) error {
	x.mu.Lock()
	x.dropDeckLocked(deckID)
	x.mu.Unlock()

	if err := x.store.DeleteDeck(ctx, deckID); err != nil {
		return fmt.Errorf("removing deck %s: %w", deckID, err)
	}
	return nil
}

// Rename handles a document rename as remove-old then reindex-new. Deck
// identity derives from the path, so a simple key update would leave every
// card id pointing at the old deck.
func (x *DeckIndex) Rename(ctx context.Context, oldDeckID string, doc domain.Document) error {
	if err := x.Remove(ctx, oldDeckID); err != nil {
		return err
	}
	return x.RebuildOne(ctx, doc)
}

// Decks returns all indexed decks ordered by title, then id for stable
// output between decks sharing a title.
func (x *DeckIndex) Decks() []domain.Deck {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]domain.Deck, 0, len(x.decks))
	for _, d := range x.decks {
		out = append(out, cloneDeck(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CardsByDeck returns a deck's cards in extraction order. Cards whose deck id
// no longer matches are dropped from the view; the next full rebuild corrects
// the set.
func (x *DeckIndex) CardsByDeck(deckID string) []domain.Card {
	x.mu.Lock()
	defer x.mu.Unlock()

	deck, ok := x.decks[deckID]
	if !ok {
		return nil
	}
	out := make([]domain.Card, 0, len(deck.CardIDs))
	for _, id := range deck.CardIDs {
		card, ok := x.cards[id]
		if !ok || card.DeckID != deckID {
			x.diag.StaleRefs++
			continue
		}
		out = append(out, card)
	}
	return out
}

// Card looks up a single card by id.
func (x *DeckIndex) Card(cardID string) (domain.Card, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	card, ok := x.cards[cardID]
	return card, ok
}

// RecalculateStats recomputes every deck's counts by joining member cards
// against the state store: absent or New counts as new, otherwise overdue
// counts as due, and Learning/Relearning counts as learning.
func (x *DeckIndex) RecalculateStats(ctx context.Context, now time.Time) error {
	states, err := x.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("recalculating stats: %w", err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for _, deck := range x.decks {
		stats := domain.DeckStats{}
		for _, id := range deck.CardIDs {
			card, ok := x.cards[id]
			if !ok || card.DeckID != deck.ID {
				x.diag.StaleRefs++
				continue
			}
			st, ok := states[id]
			if !ok || st.Phase == domain.PhaseNew {
				stats.New++
				continue
			}
			if !st.Due.After(now) {
				stats.Due++
			}
			if st.Phase == domain.PhaseLearning || st.Phase == domain.PhaseRelearning {
				stats.Learning++
			}
		}
		deck.Stats = stats
	}
	return nil
}

// Diagnostics returns a snapshot of the accumulated counters.
func (x *DeckIndex) Diagnostics() Diagnostics {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.diag
}

// dropDeckLocked removes a deck and its cards from the view. Caller holds mu.
func (x *DeckIndex) dropDeckLocked(deckID string) {
	deck, ok := x.decks[deckID]
	if !ok {
		return
	}
	for _, id := range deck.CardIDs {
		if card, ok := x.cards[id]; ok && card.DeckID == deckID {
			delete(x.cards, id)
		}
	}
	delete(x.decks, deckID)
}

func cloneDeck(d *domain.Deck) domain.Deck {
	out := *d
	out.Tags = append([]string(nil), d.Tags...)
	out.CardIDs = append([]string(nil), d.CardIDs...)
	return out
}
