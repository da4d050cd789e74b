package schema

// TabEventType identifies a tab lifecycle event.
type TabEventType string

const (
	// TabEventCreated indicates a tab was created.
	TabEventCreated TabEventType = "created"
	// TabEventClosed indicates a tab was closed.
	TabEventClosed TabEventType = "closed"
	// TabEventActivated indicates the active tab pointer moved.
	TabEventActivated TabEventType = "activated"
	// TabEventTitleUpdated indicates a tab's title changed.
	TabEventTitleUpdated TabEventType = "title-updated"
	// TabEventStateReplaced indicates the whole tab set was replaced,
	// either by a save or by an external state-file change.
	TabEventStateReplaced TabEventType = "state-replaced"
)

// TabEvent is broadcast to UI observers on accepted tab-state mutations.
type TabEvent struct {
	Type      TabEventType `json:"type"`
	Tab       Tab          `json:"tab,omitempty"`
	ActiveTab TabID        `json:"active_tab,omitempty"`
}

// QuickEntryEventType identifies a quick-entry protocol event.
type QuickEntryEventType string

const (
	// QuickEntryEventNavigate asks the UI to mount a frame for a tab.
	QuickEntryEventNavigate QuickEntryEventType = "navigate"
	// QuickEntryEventDismiss hides the transient quick-entry surface.
	QuickEntryEventDismiss QuickEntryEventType = "dismiss"
)

// QuickEntryEvent is broadcast to UI observers on quick-entry transitions.
type QuickEntryEvent struct {
	Type     QuickEntryEventType `json:"type"`
	Navigate QuickEntryNavigate  `json:"navigate,omitempty"`
}
