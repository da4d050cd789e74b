package eventbus

import (
	"testing"
	"time"

	"pkt.systems/chatdeck/schema"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	defer cancel()

	event := schema.TabEvent{Type: schema.TabEventTitleUpdated, Tab: schema.Tab{ID: "tab1", Title: "Hello"}}
	bus.OnTabEvent(event)

	select {
	case got := <-ch:
		if got.Type != EventTab {
			t.Fatalf("expected tab event, got %v", got.Type)
		}
		if got.Tab.Tab.ID != event.Tab.ID || got.Tab.Type != event.Type {
			t.Fatalf("unexpected payload: %+v", got.Tab)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
	}
}

func TestQuickEntryEvents(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.OnQuickEntryEvent(schema.QuickEntryEvent{
		Type: schema.QuickEntryEventNavigate,
		Navigate: schema.QuickEntryNavigate{
			RequestID:   "r1",
			TargetTabID: "t1",
			Text:        "hello",
		},
	})

	select {
	case got := <-ch:
		if got.Type != EventQuickEntry {
			t.Fatalf("expected quick-entry event, got %v", got.Type)
		}
		if got.QuickEntry.Navigate.RequestID != "r1" {
			t.Fatalf("unexpected payload: %+v", got.QuickEntry)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	bus := New(nil)
	bus.depth = 1
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.OnTabEvent(schema.TabEvent{Type: schema.TabEventCreated})
	done := make(chan struct{})
	go func() {
		bus.OnTabEvent(schema.TabEvent{Type: schema.TabEventClosed})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked on full subscriber")
	}
	if got := <-ch; got.Tab.Type != schema.TabEventCreated {
		t.Fatalf("expected first event retained, got %+v", got.Tab)
	}
}
