package schema

// TabID identifies a tab. Stable across reloads of the tab's frame.
type TabID string

// RequestID identifies one quick-entry submission attempt.
type RequestID string

// DefaultTabTitle is the sentinel title for tabs without a derived title.
const DefaultTabTitle = "New Chat"

// Tab is a logical, persisted conversation slot backed by one browsing frame.
type Tab struct {
	ID        TabID  `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	CreatedAt int64  `json:"createdAt"`
}

// TabSet is the ordered tab list plus the active tab pointer.
type TabSet struct {
	Tabs        []Tab `json:"tabs"`
	ActiveTabID TabID `json:"activeTabId"`
}

// Tab returns the member with the given id, or nil.
func (s *TabSet) Tab(id TabID) *Tab {
	for i := range s.Tabs {
		if s.Tabs[i].ID == id {
			return &s.Tabs[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the set.
func (s TabSet) Clone() TabSet {
	return TabSet{
		Tabs:        append([]Tab(nil), s.Tabs...),
		ActiveTabID: s.ActiveTabID,
	}
}
