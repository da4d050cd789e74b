package schema

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NormalizeTabSet turns a raw tab-set record into a valid TabSet. It is a
// pure function of its input: the same bytes always yield the same repairs,
// and normalizing an already-normalized set changes nothing. Returns ok=false
// when the input is not an object or yields no tabs; the caller synthesizes
// a default set in that case.
//
// Repairs, in array order per entry: blank ids are minted, duplicate ids are
// skipped (first occurrence wins), blank titles fall back to the sentinel,
// the url is forced to the application entry url regardless of input, and a
// createdAt that is not a finite number is replaced with now+index so
// relative order stays deterministic even when timestamps collide.
func NormalizeTabSet(raw []byte, appURL string, now time.Time) (TabSet, bool) {
	var doc struct {
		Tabs        []json.RawMessage `json:"tabs"`
		ActiveTabID string            `json:"activeTabId"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return TabSet{}, false
	}

	base := now.UnixMilli()
	seen := make(map[TabID]struct{}, len(doc.Tabs))
	tabs := make([]Tab, 0, len(doc.Tabs))
	for i, entry := range doc.Tabs {
		var rawTab struct {
			ID        string          `json:"id"`
			Title     string          `json:"title"`
			CreatedAt json.RawMessage `json:"createdAt"`
		}
		// Non-object entries decay to a blank tab, same as entries with
		// every field missing.
		_ = json.Unmarshal(entry, &rawTab)

		id := TabID(strings.TrimSpace(rawTab.ID))
		if id == "" {
			id = TabID(uuid.NewString())
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		title := strings.TrimSpace(rawTab.Title)
		if title == "" {
			title = DefaultTabTitle
		}

		createdAt := base + int64(i)
		if len(rawTab.CreatedAt) > 0 {
			var ts float64
			if err := json.Unmarshal(rawTab.CreatedAt, &ts); err == nil && !math.IsNaN(ts) && !math.IsInf(ts, 0) {
				createdAt = int64(ts)
			}
		}

		tabs = append(tabs, Tab{
			ID:        id,
			Title:     title,
			URL:       appURL,
			CreatedAt: createdAt,
		})
	}
	if len(tabs) == 0 {
		return TabSet{}, false
	}

	active := TabID(strings.TrimSpace(doc.ActiveTabID))
	if _, ok := seen[active]; !ok {
		active = tabs[0].ID
	}
	return TabSet{Tabs: tabs, ActiveTabID: active}, true
}

// NewDefaultTabSet synthesizes a single-tab set, used when no persisted
// record exists or normalization rejected it.
func NewDefaultTabSet(appURL string, now time.Time) TabSet {
	tab := Tab{
		ID:        TabID(uuid.NewString()),
		Title:     DefaultTabTitle,
		URL:       appURL,
		CreatedAt: now.UnixMilli(),
	}
	return TabSet{Tabs: []Tab{tab}, ActiveTabID: tab.ID}
}
