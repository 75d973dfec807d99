package index

import (
	"context"

	"github.com/conorfennell/vaultsrs/internal/domain"
)

// EventKind is the type of a document-change notification.
type EventKind int

const (
	EventUpsert EventKind = iota // created or modified
	EventRemove                  // deleted
	EventRename                  // moved; OldDeckID carries the previous identity
)

// Event is one document-change notification from the host environment.
type Event struct {
	Kind      EventKind
	Doc       domain.Document
	DeckID    string // for EventRemove
	OldDeckID string // for EventRename
}

// NewEventQueue returns a bounded channel suitable for feeding Run.
func NewEventQueue(size int) chan Event {
	if size <= 0 {
		size = 64
	}
	return make(chan Event, size)
}

// Run applies events serially until the channel closes or ctx is cancelled.
// Hosts with a concurrent event source should funnel all changes through one
// queue: the index requires rebuild calls touching overlapping cards to be
// serialized, and a single consumer loop guarantees that.
func (x *DeckIndex) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			var err error
			switch ev.Kind {
			case EventRemove:
				err = x.Remove(ctx, ev.DeckID)
			case EventRename:
				err = x.Rename(ctx, ev.OldDeckID, ev.Doc)
			default:
				err = x.RebuildOne(ctx, ev.Doc)
			}
			if err != nil {
				x.logger.Error("applying document event", "kind", int(ev.Kind), "error", err)
			}
		}
	}
}
