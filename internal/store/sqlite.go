package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/conorfennell/vaultsrs/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// SQLite is the durable Store backend. SQLite serializes writes internally,
// which satisfies the per-card write ordering the engine requires.
type SQLite struct {
	conn *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{conn: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, cardID string) (*domain.MemoryState, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT due, stability, difficulty, elapsed_days, scheduled_days, reps, lapses, phase, last_review
		FROM memory_states WHERE card_id = ?
	`, cardID)

	st, err := scanState(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state for card %s: %w", cardID, err)
	}
	return st, nil
}

// GetAll implements Store. A single SELECT gives a consistent snapshot.
func (s *SQLite) GetAll(ctx context.Context) (map[string]domain.MemoryState, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT card_id, due, stability, difficulty, elapsed_days, scheduled_days, reps, lapses, phase, last_review
		FROM memory_states
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query states: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.MemoryState)
	for rows.Next() {
		var cardID string
		st, err := scanState(func(dest ...any) error {
			return rows.Scan(append([]any{&cardID}, dest...)...)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan state row: %w", err)
		}
		out[cardID] = *st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate states: %w", err)
	}
	return out, nil
}

// Put implements Store as an upsert on card_id.
func (s *SQLite) Put(ctx context.Context, cardID, deckID, sourcePath string, st domain.MemoryState) error {
	var lastReview sql.NullTime
	if st.LastReview != nil {
		lastReview = sql.NullTime{Time: *st.LastReview, Valid: true}
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO memory_states
			(card_id, deck_id, source_path, due, stability, difficulty, elapsed_days, scheduled_days, reps, lapses, phase, last_review)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(card_id) DO UPDATE SET
			deck_id = excluded.deck_id,
			source_path = excluded.source_path,
			due = excluded.due,
			stability = excluded.stability,
			difficulty = excluded.difficulty,
			elapsed_days = excluded.elapsed_days,
			scheduled_days = excluded.scheduled_days,
			reps = excluded.reps,
			lapses = excluded.lapses,
			phase = excluded.phase,
			last_review = excluded.last_review
	`, cardID, deckID, sourcePath, st.Due, st.Stability, st.Difficulty,
		st.ElapsedDays, st.ScheduledDays, st.Reps, st.Lapses, int(st.Phase), lastReview)
	if err != nil {
		return fmt.Errorf("failed to put state for card %s: %w", cardID, err)
	}
	return nil
}

// AppendReview implements Store.
func (s *SQLite) AppendReview(ctx context.Context, ev domain.ReviewEvent) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO review_events (id, card_id, ts, rating)
		VALUES (?, ?, ?, ?)
	`, ev.ID, ev.CardID, ev.Timestamp, int(ev.Rating))
	if err != nil {
		return fmt.Errorf("failed to append review for card %s: %w", ev.CardID, err)
	}
	return nil
}

// ReviewHistory implements Store.
func (s *SQLite) ReviewHistory(ctx context.Context, cardID string, limit int) ([]domain.ReviewEvent, error) {
	query := `SELECT id, card_id, ts, rating FROM review_events`
	args := []any{}
	if cardID != "" {
		query += ` WHERE card_id = ?`
		args = append(args, cardID)
	}
	// rowid reflects insertion order, so same-timestamp events come back in
	// reverse submission order rather than by random event id.
	query += ` ORDER BY ts DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query review history: %w", err)
	}
	defer rows.Close()

	var out []domain.ReviewEvent
	for rows.Next() {
		var ev domain.ReviewEvent
		var rating int
		if err := rows.Scan(&ev.ID, &ev.CardID, &ev.Timestamp, &rating); err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		ev.Rating = domain.Rating(rating)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review history: %w", err)
	}
	return out, nil
}

// Delete implements Store.
func (s *SQLite) Delete(ctx context.Context, cardID string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM memory_states WHERE card_id = ?`, cardID); err != nil {
		return fmt.Errorf("failed to delete state for card %s: %w", cardID, err)
	}
	return nil
}

// DeleteDeck implements Store.
func (s *SQLite) DeleteDeck(ctx context.Context, deckID string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM memory_states WHERE deck_id = ?`, deckID); err != nil {
		return fmt.Errorf("failed to delete states for deck %s: %w", deckID, err)
	}
	return nil
}

// ResetAll implements Store.
func (s *SQLite) ResetAll(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM memory_states`); err != nil {
		return fmt.Errorf("failed to reset states: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM review_events`); err != nil {
		return fmt.Errorf("failed to reset review log: %w", err)
	}
	return nil
}

// scanState reads one memory_states row via the given scan function. The
// caller prepends any extra columns.
func scanState(scan func(dest ...any) error) (*domain.MemoryState, error) {
	var st domain.MemoryState
	var phase int
	var lastReview sql.NullTime
	err := scan(&st.Due, &st.Stability, &st.Difficulty, &st.ElapsedDays,
		&st.ScheduledDays, &st.Reps, &st.Lapses, &phase, &lastReview)
	if err != nil {
		return nil, err
	}
	st.Phase = domain.Phase(phase)
	if lastReview.Valid {
		t := lastReview.Time
		st.LastReview = &t
	}
	return &st, nil
}
