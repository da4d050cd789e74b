package core

import "pkt.systems/chatdeck/schema"

// EventSink receives tab and quick-entry events from the shell service.
type EventSink interface {
	OnTabEvent(event schema.TabEvent)
	OnQuickEntryEvent(event schema.QuickEntryEvent)
}
