package events

import (
	"testing"

	"dealchain/core/types"
)

type testEvent struct {
	typ   string
	attrs map[string]string
}

func (e testEvent) EventType() string { return e.typ }

func (e testEvent) Event() *types.Event {
	return &types.Event{Type: e.typ, Attributes: e.attrs}
}

type bareEvent struct{}

func (bareEvent) EventType() string { return "bare" }

func TestFeedSequencesAndFilters(t *testing.T) {
	feed := NewFeed(10)
	feed.Emit(testEvent{typ: "a", attrs: map[string]string{"id": "0"}})
	feed.Emit(testEvent{typ: "b", attrs: map[string]string{"id": "1"}})
	feed.Emit(bareEvent{})

	if feed.Latest() != 3 {
		t.Fatalf("expected latest sequence 3, got %d", feed.Latest())
	}
	all := feed.Since(0, 0)
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].Sequence != 1 || all[0].Type != "a" || all[0].Attributes["id"] != "0" {
		t.Fatalf("unexpected first record %+v", all[0])
	}
	if len(all[2].Attributes) != 0 {
		t.Fatalf("expected bare event without attributes")
	}
	tail := feed.Since(1, 1)
	if len(tail) != 1 || tail[0].Type != "b" {
		t.Fatalf("unexpected tail %+v", tail)
	}
}

func TestFeedEvictsOldest(t *testing.T) {
	feed := NewFeed(2)
	for i := 0; i < 5; i++ {
		feed.Emit(bareEvent{})
	}
	records := feed.Since(0, 0)
	if len(records) != 2 {
		t.Fatalf("expected capacity-bounded records, got %d", len(records))
	}
	if records[0].Sequence != 4 || records[1].Sequence != 5 {
		t.Fatalf("unexpected retained sequences %+v", records)
	}
}

func TestMultiSkipsNil(t *testing.T) {
	first := NewFeed(4)
	second := NewFeed(4)
	Multi{first, nil, second}.Emit(bareEvent{})
	if first.Latest() != 1 || second.Latest() != 1 {
		t.Fatalf("expected both feeds to receive the event")
	}
}

func TestFeedChangedClosesOnEmit(t *testing.T) {
	feed := NewFeed(4)
	changed := feed.Changed()
	select {
	case <-changed:
		t.Fatalf("channel closed before any event")
	default:
	}
	feed.Emit(testEvent{typ: "a"})
	select {
	case <-changed:
	default:
		t.Fatalf("emit must close the pending channel")
	}
	if next := feed.Changed(); next == changed {
		t.Fatalf("expected a fresh channel after emit")
	}
}
