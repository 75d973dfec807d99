package index

import (
	"context"
	"testing"
	"time"

	"github.com/conorfennell/vaultsrs/internal/domain"
	"github.com/conorfennell/vaultsrs/internal/store"
)

func taggedDoc(path, title, text string) domain.Document {
	return domain.Document{
		Path:       path,
		Title:      title,
		Text:       text,
		Tags:       []string{"flashcards"},
		DeckTagged: true,
	}
}

const twoCardText = "---card--- ^q1\nFront one\n---\nBack one\n\n---card--- ^q2\nFront two\n---\nBack two\n"

func TestRebuildOne(t *testing.T) {
	x := New(store.NewMemory(), nil)
	ctx := context.Background()

	if err := x.RebuildOne(ctx, taggedDoc("math.md", "Math", twoCardText)); err != nil {
		t.Fatalf("RebuildOne() returned an unexpected error: %v", err)
	}

	decks := x.Decks()
	if len(decks) != 1 {
		t.Fatalf("Expected 1 deck, got %d", len(decks))
	}
	if decks[0].ID != "math.md" || decks[0].Title != "Math" {
		t.Errorf("Deck = %+v", decks[0])
	}

	cards := x.CardsByDeck("math.md")
	if len(cards) != 2 {
		t.Fatalf("Expected 2 cards, got %d", len(cards))
	}
	if cards[0].ID != "math.md::q1" || cards[1].ID != "math.md::q2" {
		t.Errorf("Cards out of extraction order: %s, %s", cards[0].ID, cards[1].ID)
	}
	for _, c := range cards {
		if c.DeckID != "math.md" {
			t.Errorf("Card %s has deck %s", c.ID, c.DeckID)
		}
	}
}

func TestRebuildOneReplacesAtomically(t *testing.T) {
	x := New(store.NewMemory(), nil)
	ctx := context.Background()

	if err := x.RebuildOne(ctx, taggedDoc("d.md", "D", twoCardText)); err != nil {
		t.Fatalf("RebuildOne() returned an unexpected error: %v", err)
	}
	// Re-index with one card removed: the stale card must disappear.
	if err := x.RebuildOne(ctx, taggedDoc("d.md", "D", "---card--- ^q1\nFront one\n---\nBack one\n")); err != nil {
		t.Fatalf("RebuildOne() returned an unexpected error: %v", err)
	}

	cards := x.CardsByDeck("d.md")
	if len(cards) != 1 || cards[0].ID != "d.md::q1" {
		t.Errorf("Stale card survived reindex: %+v", cards)
	}
	if _, ok := x.Card("d.md::q2"); ok {
		t.Error("Removed card still resolvable by id")
	}
}

func TestRebuildOneUntaggedRemovesDeck(t *testing.T) {
	x := New(store.NewMemory(), nil)
	ctx := context.Background()

	if err := x.RebuildOne(ctx, taggedDoc("d.md", "D", twoCardText)); err != nil {
		t.Fatalf("RebuildOne() returned an unexpected error: %v", err)
	}

	untagged := domain.Document{Path: "d.md", Title: "D", Text: twoCardText}
	if err := x.RebuildOne(ctx, untagged); err != nil {
		t.Fatalf("RebuildOne() returned an unexpected error: %v", err)
	}

	if len(x.Decks()) != 0 {
		t.Error("Untagged document should drop its deck from the index")
	}
}

func TestRemoveDeletesStates(t *testing.T) {
	st := store.NewMemory()
	x := New(st, nil)
	ctx := context.Background()

	if err := x.RebuildOne(ctx, taggedDoc("d.md", "D", twoCardText)); err != nil {
		t.Fatalf("RebuildOne() returned an unexpected error: %v", err)
	}
	if err := st.Put(ctx, "d.md::q1", "d.md", "d.md", domain.MemoryState{Phase: domain.PhaseReview}); err != nil {
		t.Fatalf("Put() returned an unexpected error: %v", err)
	}
	if err := st.AppendReview(ctx, domain.ReviewEvent{ID: "e1", CardID: "d.md::q1", Timestamp: time.Now(), Rating: domain.Good}); err != nil {
		t.Fatalf("AppendReview() returned an unexpected error: %v", err)
	}

	if err := x.Remove(ctx, "d.md"); err != nil {
		t.Fatalf("Remove() returned an unexpected error: %v", err)
	}

	if len(x.Decks()) != 0 {
		t.Error("Deck survived Remove")
	}
	state, err := st.Get(ctx, "d.md::q1")
	if err != nil {
		t.Fatalf("Get() returned an unexpected error: %v", err)
	}
	if state != nil {
		t.Error("Memory state should be deleted with its deck")
	}
	// The review log is audit data and survives deck removal.
	history, err := st.ReviewHistory(ctx, "d.md::q1", 0)
	if err != nil {
		t.Fatalf("ReviewHistory() returned an unexpected error: %v", err)
	}
	if len(history) != 1 {
		t.Error("Review events should survive deck removal")
	}
}

func TestRename(t *testing.T) {
	st := store.NewMemory()
	x := New(st, nil)
	ctx := context.Background()

	if err := x.RebuildOne(ctx, taggedDoc("old.md", "Old", twoCardText)); err != nil {
		t.Fatalf("RebuildOne() returned an unexpected error: %v", err)
	}
	if err := st.Put(ctx, "old.md::q1", "old.md", "old.md", domain.MemoryState{Phase: domain.PhaseReview}); err != nil {
		t.Fatalf("Put() returned an unexpected error: %v", err)
	}

	if err := x.Rename(ctx, "old.md", taggedDoc("new.md", "New", twoCardText)); err != nil {
		t.Fatalf("Rename() returned an unexpected error: %v", err)
	}

	decks := x.Decks()
	if len(decks) != 1 || decks[0].ID != "new.md" {
		t.Fatalf("Decks after rename = %+v", decks)
	}
	cards := x.CardsByDeck("new.md")
	if len(cards) != 2 || cards[0].ID != "new.md::q1" {
		t.Errorf("Cards after rename = %+v", cards)
	}
	// Old-path state is gone; the new identity starts fresh.
	state, err := st.Get(ctx, "old.md::q1")
	if err != nil {
		t.Fatalf("Get() returned an unexpected error: %v", err)
	}
	if state != nil {
		t.Error("Old deck state should be removed on rename")
	}
}

func TestRebuildFullCancellation(t *testing.T) {
	x := New(store.NewMemory(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := []domain.Document{taggedDoc("a.md", "A", twoCardText)}
	if err := x.RebuildFull(ctx, docs); err == nil {
		t.Error("RebuildFull should honor a cancelled context")
	}
}

func TestRecalculateStats(t *testing.T) {
	st := store.NewMemory()
	x := New(st, nil)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	text := "---card--- ^a\nF\n---\nB\n\n---card--- ^b\nF\n---\nB\n\n---card--- ^c\nF\n---\nB\n"
	if err := x.RebuildOne(ctx, taggedDoc("d.md", "D", text)); err != nil {
		t.Fatalf("RebuildOne() returned an unexpected error: %v", err)
	}

	// a: overdue Review card. b: Learning card due later. c: untouched (New).
	if err := st.Put(ctx, "d.md::a", "d.md", "d.md", domain.MemoryState{
		Phase: domain.PhaseReview, Due: now.Add(-time.Hour),
	}); err != nil {
		t.Fatalf("Put() returned an unexpected error: %v", err)
	}
	if err := st.Put(ctx, "d.md::b", "d.md", "d.md", domain.MemoryState{
		Phase: domain.PhaseLearning, Due: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("Put() returned an unexpected error: %v", err)
	}

	if err := x.RecalculateStats(ctx, now); err != nil {
		t.Fatalf("RecalculateStats() returned an unexpected error: %v", err)
	}

	decks := x.Decks()
	if len(decks) != 1 {
		t.Fatalf("Expected 1 deck, got %d", len(decks))
	}
	stats := decks[0].Stats
	if stats.New != 1 || stats.Due != 1 || stats.Learning != 1 {
		t.Errorf("Stats = %+v, want New=1 Due=1 Learning=1", stats)
	}
}

func TestCollisionLastExtractedWins(t *testing.T) {
	x := New(store.NewMemory(), nil)
	ctx := context.Background()

	text := "---card--- ^dup\nFirst front\n---\nFirst back\n\n---card--- ^dup\nSecond front\n---\nSecond back\n"
	if err := x.RebuildOne(ctx, taggedDoc("d.md", "D", text)); err != nil {
		t.Fatalf("RebuildOne() returned an unexpected error: %v", err)
	}

	cards := x.CardsByDeck("d.md")
	if len(cards) != 1 {
		t.Fatalf("Expected 1 card after collision, got %d", len(cards))
	}
	if cards[0].Front != "Second front" {
		t.Errorf("Expected last-extracted to win, got front %q", cards[0].Front)
	}
	if x.Diagnostics().Collisions != 1 {
		t.Errorf("Collisions = %d, want 1", x.Diagnostics().Collisions)
	}
}

func TestDecksSortedByTitle(t *testing.T) {
	x := New(store.NewMemory(), nil)
	ctx := context.Background()

	for _, d := range []struct{ path, title string }{
		{"z.md", "Alpha"}, {"a.md", "Zulu"}, {"m.md", "Mike"},
	} {
		if err := x.RebuildOne(ctx, taggedDoc(d.path, d.title, twoCardText)); err != nil {
			t.Fatalf("RebuildOne() returned an unexpected error: %v", err)
		}
	}

	decks := x.Decks()
	if decks[0].Title != "Alpha" || decks[1].Title != "Mike" || decks[2].Title != "Zulu" {
		t.Errorf("Decks not title-ordered: %s, %s, %s", decks[0].Title, decks[1].Title, decks[2].Title)
	}
}

func TestRunAppliesEvents(t *testing.T) {
	x := New(store.NewMemory(), nil)
	events := NewEventQueue(4)

	events <- Event{Kind: EventUpsert, Doc: taggedDoc("a.md", "A", twoCardText)}
	events <- Event{Kind: EventRename, OldDeckID: "a.md", Doc: taggedDoc("b.md", "B", twoCardText)}
	close(events)

	if err := x.Run(context.Background(), events); err != nil {
		t.Fatalf("Run() returned an unexpected error: %v", err)
	}

	decks := x.Decks()
	if len(decks) != 1 || decks[0].ID != "b.md" {
		t.Errorf("Decks after event replay = %+v", decks)
	}
}
