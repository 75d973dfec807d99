// Package review applies ratings: it runs the scheduler and persists both
// the updated state and the append-only review event as one logical step.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/vaultsrs/internal/domain"
	"github.com/conorfennell/vaultsrs/internal/fsrs"
	"github.com/conorfennell/vaultsrs/internal/index"
	"github.com/conorfennell/vaultsrs/internal/store"
)

// ErrUnknownCard is returned when a rated card id is not in the index.
var ErrUnknownCard = errors.New("unknown card")

// Service coordinates rating a card. Concurrent ratings of different cards
// proceed in parallel; ratings of the same card are serialized so the
// read-schedule-write cycle never interleaves.
type Service struct {
	scheduler fsrs.Scheduler
	store     store.Store
	index     *index.DeckIndex
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*cardLock
}

// cardLock serializes ratings of one card. Entries are reference counted
// and removed once the last holder releases, so the map stays proportional
// to in-flight ratings rather than growing with every card ever rated.
type cardLock struct {
	mu   sync.Mutex
	refs int
}

func NewService(sched fsrs.Scheduler, st store.Store, idx *index.DeckIndex, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		scheduler: sched,
		store:     st,
		index:     idx,
		logger:    logger,
		locks:     make(map[string]*cardLock),
	}
}

// Rate grades a card and returns its updated state. The state write and the
// event append are two store calls; if the append fails after the state
// landed, the error is returned but the state write stands, so the log can
// under-report, never contradict.
func (s *Service) Rate(ctx context.Context, cardID string, rating domain.Rating, now time.Time) (domain.MemoryState, error) {
	if !rating.Schedulable() {
		return domain.MemoryState{}, fmt.Errorf("rating card %s: %w", cardID, domain.ErrInvalidRating)
	}
	card, ok := s.index.Card(cardID)
	if !ok {
		return domain.MemoryState{}, fmt.Errorf("rating card %s: %w", cardID, ErrUnknownCard)
	}

	lock := s.lockCard(cardID)
	defer s.unlockCard(cardID, lock)

	prev, err := s.store.Get(ctx, cardID)
	if err != nil {
		return domain.MemoryState{}, fmt.Errorf("rating card %s: %w", cardID, err)
	}

	next := s.scheduler.Schedule(prev, rating, now)
	if err := s.store.Put(ctx, cardID, card.DeckID, card.SourcePath, next); err != nil {
		return domain.MemoryState{}, fmt.Errorf("rating card %s: %w", cardID, err)
	}

	event := domain.ReviewEvent{
		ID:        uuid.NewString(),
		CardID:    cardID,
		Timestamp: now,
		Rating:    rating,
	}
	if err := s.store.AppendReview(ctx, event); err != nil {
		return next, fmt.Errorf("appending review for card %s: %w", cardID, err)
	}

	s.logger.Debug("rated card",
		"card", cardID, "rating", rating.String(), "phase", next.Phase.String(), "due", next.Due)
	return next, nil
}

// Preview returns the would-be next interval per rating without mutating
// anything, for hosts that show interval hints on the grading buttons.
func (s *Service) Preview(ctx context.Context, cardID string, now time.Time) (map[domain.Rating]string, error) {
	if _, ok := s.index.Card(cardID); !ok {
		return nil, fmt.Errorf("previewing card %s: %w", cardID, ErrUnknownCard)
	}
	state, err := s.store.Get(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("previewing card %s: %w", cardID, err)
	}
	return s.scheduler.PreviewIntervals(state, now), nil
}

// History returns a card's review events, most recent first.
func (s *Service) History(ctx context.Context, cardID string, limit int) ([]domain.ReviewEvent, error) {
	return s.store.ReviewHistory(ctx, cardID, limit)
}

func (s *Service) lockCard(cardID string) *cardLock {
	s.mu.Lock()
	lock, ok := s.locks[cardID]
	if !ok {
		lock = &cardLock{}
		s.locks[cardID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (s *Service) unlockCard(cardID string, lock *cardLock) {
	lock.mu.Unlock()

	s.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, cardID)
	}
	s.mu.Unlock()
}
