package store

import (
	"context"
	"sync"

	"github.com/conorfennell/vaultsrs/internal/domain"
)

// record pairs a memory state with its deck for deck-scoped deletes.
type record struct {
	deckID     string
	sourcePath string
	state      domain.MemoryState
}

// Memory is an in-process Store used by tests and as the non-durable
// fallback backend. Reads under RLock return copies, never aliases.
type Memory struct {
	mu     sync.RWMutex
	states map[string]record
	events []domain.ReviewEvent
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{states: make(map[string]record)}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, cardID string) (*domain.MemoryState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.states[cardID]
	if !ok {
		return nil, nil
	}
	st := rec.state.Clone()
	return &st, nil
}

// GetAll implements Store.
func (m *Memory) GetAll(_ context.Context) (map[string]domain.MemoryState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.MemoryState, len(m.states))
	for id, rec := range m.states {
		out[id] = rec.state.Clone()
	}
	return out, nil
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, cardID, deckID, sourcePath string, state domain.MemoryState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[cardID] = record{deckID: deckID, sourcePath: sourcePath, state: state.Clone()}
	return nil
}

// AppendReview implements Store.
func (m *Memory) AppendReview(_ context.Context, event domain.ReviewEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// ReviewHistory implements Store.
func (m *Memory) ReviewHistory(_ context.Context, cardID string, limit int) ([]domain.ReviewEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ReviewEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		if cardID != "" && m.events[i].CardID != cardID {
			continue
		}
		out = append(out, m.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, cardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, cardID)
	return nil
}

// DeleteDeck implements Store.
func (m *Memory) DeleteDeck(_ context.Context, deckID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.states {
		if rec.deckID == deckID {
			delete(m.states, id)
		}
	}
	return nil
}

// ResetAll implements Store.
func (m *Memory) ResetAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = make(map[string]record)
	m.events = nil
	return nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }
