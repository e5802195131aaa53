package events

import (
	"sync"

	"dealchain/core/types"
)

// DefaultFeedCapacity bounds the number of retained events when NewFeed is
// given a non-positive capacity.
const DefaultFeedCapacity = 1024

// Payload is implemented by events that can be rendered as a typed attribute
// map.
type Payload interface {
	Event
	Event() *types.Event
}

// Record is a sequenced event retained by a Feed.
type Record struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Feed retains the most recent events in memory and assigns each a strictly
// increasing sequence number starting at 1. Indexers poll it with the last
// sequence they have seen. Feed is safe for concurrent use.
type Feed struct {
	mu       sync.RWMutex
	capacity int
	next     uint64
	records  []Record
	notify   chan struct{}
}

// NewFeed constructs a feed retaining at most capacity events.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &Feed{capacity: capacity, next: 1, notify: make(chan struct{})}
}

// Emit implements the Emitter interface.
func (f *Feed) Emit(evt Event) {
	if f == nil || evt == nil {
		return
	}
	record := Record{Type: evt.EventType(), Attributes: map[string]string{}}
	if payload, ok := evt.(Payload); ok {
		if typed := payload.Event(); typed != nil {
			for k, v := range typed.Attributes {
				record.Attributes[k] = v
			}
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	record.Sequence = f.next
	f.next++
	f.records = append(f.records, record)
	if overflow := len(f.records) - f.capacity; overflow > 0 {
		f.records = append([]Record(nil), f.records[overflow:]...)
	}
	close(f.notify)
	f.notify = make(chan struct{})
}

// Changed returns a channel that is closed by the next Emit. Streaming
// readers call Since, then wait on the channel before reading again.
func (f *Feed) Changed() <-chan struct{} {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.notify
}

// Since returns up to limit retained records with a sequence greater than
// after, oldest first. A non-positive limit returns everything available.
func (f *Feed) Since(after uint64, limit int) []Record {
	if f == nil {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Record, 0)
	for _, rec := range f.records {
		if rec.Sequence <= after {
			continue
		}
		attrs := make(map[string]string, len(rec.Attributes))
		for k, v := range rec.Attributes {
			attrs[k] = v
		}
		out = append(out, Record{Sequence: rec.Sequence, Type: rec.Type, Attributes: attrs})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Latest returns the sequence number of the most recent event, or zero when
// nothing has been emitted.
func (f *Feed) Latest() uint64 {
	if f == nil {
		return 0
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.next - 1
}
