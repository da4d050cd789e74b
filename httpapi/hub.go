package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/chatdeck/internal/logx"
	"pkt.systems/chatdeck/schema"
)

// StreamEvent is sent to SSE clients.
type StreamEvent struct {
	Seq        uint64                  `json:"seq"`
	Type       string                  `json:"type"`
	TabEvent   string                  `json:"tab_event,omitempty"`
	Tab        *schema.Tab             `json:"tab,omitempty"`
	ActiveTab  schema.TabID            `json:"active_tab,omitempty"`
	QuickEntry *schema.QuickEntryEvent `json:"quick_entry,omitempty"`
	Snapshot   *SnapshotPayload        `json:"snapshot,omitempty"`
	Timestamp  time.Time               `json:"timestamp"`
}

// SnapshotPayload seeds client state on connect.
type SnapshotPayload struct {
	Tabs      []schema.Tab `json:"tabs"`
	ActiveTab schema.TabID `json:"active_tab"`
}

// Hub broadcasts shell events to SSE subscribers and keeps a bounded
// replay history keyed by sequence number.
type Hub struct {
	mu          sync.Mutex
	seq         uint64
	history     []StreamEvent
	subs        map[chan StreamEvent]struct{}
	historySize int
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	return &Hub{
		subs:        make(map[chan StreamEvent]struct{}),
		historySize: historySize,
	}
}

// OnTabEvent implements core.EventSink.
func (h *Hub) OnTabEvent(event schema.TabEvent) {
	log := logx.Ctx(context.Background())
	log.Trace("hub tab event", "type", event.Type, "tab", event.Tab.ID, "active", event.ActiveTab)
	tab := event.Tab
	h.publish(StreamEvent{
		Type:      "tab",
		TabEvent:  string(event.Type),
		Tab:       &tab,
		ActiveTab: event.ActiveTab,
		Timestamp: time.Now(),
	})
}

// OnQuickEntryEvent implements core.EventSink.
func (h *Hub) OnQuickEntryEvent(event schema.QuickEntryEvent) {
	log := logx.Ctx(context.Background())
	log.Trace("hub quick entry event", "type", event.Type)
	payload := event
	h.publish(StreamEvent{
		Type:       "quick-entry",
		QuickEntry: &payload,
		Timestamp:  time.Now(),
	})
}

// Subscribe registers a subscriber and returns its channel, an unsubscribe
// func, the current sequence number, and a copy of the history.
func (h *Hub) Subscribe() (<-chan StreamEvent, func(), uint64, []StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan StreamEvent, 256)
	h.subs[ch] = struct{}{}
	history := append([]StreamEvent(nil), h.history...)
	seq := h.seq
	log := logx.Ctx(context.Background())
	log.Info("hub subscribe", "subs", len(h.subs), "history", len(history))
	unsub := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		remaining := len(h.subs)
		h.mu.Unlock()
		log.Info("hub unsubscribe", "subs", remaining)
	}
	return ch, unsub, seq, history
}

func (h *Hub) publish(event StreamEvent) {
	h.mu.Lock()
	h.seq++
	event.Seq = h.seq
	h.history = append(h.history, event)
	if len(h.history) > h.historySize {
		h.history = h.history[len(h.history)-h.historySize:]
	}
	subs := make([]chan StreamEvent, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		logx.Ctx(context.Background()).Warn("hub event dropped", "type", event.Type, "dropped", dropped)
	}
}
