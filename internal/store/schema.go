package store

const schema = `
-- Memory state per card. Deck id and source path are denormalized so
-- deck-scoped deletes and exports do not need the in-memory index.
CREATE TABLE IF NOT EXISTS memory_states (
    card_id TEXT PRIMARY KEY,
    deck_id TEXT NOT NULL,
    source_path TEXT NOT NULL,
    due DATETIME NOT NULL,
    stability REAL NOT NULL,
    difficulty REAL NOT NULL,
    elapsed_days REAL NOT NULL,
    scheduled_days REAL NOT NULL,
    reps INTEGER NOT NULL,
    lapses INTEGER NOT NULL,
    phase INTEGER NOT NULL, -- 0: New, 1: Learning, 2: Review, 3: Relearning
    last_review DATETIME
);

CREATE INDEX IF NOT EXISTS idx_memory_states_deck ON memory_states(deck_id);

-- Append-only review log. Rows are never updated or deleted except by a
-- wholesale reset.
CREATE TABLE IF NOT EXISTS review_events (
    id TEXT PRIMARY KEY,
    card_id TEXT NOT NULL,
    ts DATETIME NOT NULL,
    rating INTEGER NOT NULL -- 0: Manual, 1: Again, 2: Hard, 3: Good, 4: Easy
);

CREATE INDEX IF NOT EXISTS idx_review_events_card ON review_events(card_id, ts);
`
