package chatdeck

import (
	"pkt.systems/chatdeck/core"
	"pkt.systems/chatdeck/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnTabEvent(event schema.TabEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnTabEvent(event)
	}
}

func (f eventFanout) OnQuickEntryEvent(event schema.QuickEntryEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnQuickEntryEvent(event)
	}
}
