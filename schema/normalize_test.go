package schema

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

const testAppURL = "https://chat.example.com/"

var testNow = time.UnixMilli(1_700_000_000_000)

func TestNormalizeTabSetRejectsNonObject(t *testing.T) {
	for _, raw := range []string{`null`, `[]`, `"tabs"`, `42`, `{invalid`} {
		if _, ok := NormalizeTabSet([]byte(raw), testAppURL, testNow); ok {
			t.Errorf("expected rejection for %s", raw)
		}
	}
}

func TestNormalizeTabSetRejectsEmptyTabs(t *testing.T) {
	if _, ok := NormalizeTabSet([]byte(`{"tabs":[],"activeTabId":"x"}`), testAppURL, testNow); ok {
		t.Fatalf("expected rejection for empty tab list")
	}
}

func TestNormalizeTabSetRepairs(t *testing.T) {
	raw := []byte(`{
		"tabs": [
			{"id": " a ", "title": "  First  ", "url": "https://evil.example.org/", "createdAt": 100},
			{"id": "a", "title": "Duplicate"},
			{"id": "b", "title": "", "createdAt": "soon"},
			{"title": "No ID"}
		],
		"activeTabId": "gone"
	}`)
	set, ok := NormalizeTabSet(raw, testAppURL, testNow)
	if !ok {
		t.Fatalf("expected normalization to succeed")
	}
	if len(set.Tabs) != 3 {
		t.Fatalf("expected 3 tabs after duplicate suppression, got %d", len(set.Tabs))
	}
	first := set.Tabs[0]
	if first.ID != "a" || first.Title != "First" {
		t.Fatalf("unexpected first tab: %+v", first)
	}
	if first.URL != testAppURL {
		t.Fatalf("url not forced to app url: %q", first.URL)
	}
	if first.CreatedAt != 100 {
		t.Fatalf("finite createdAt not preserved: %d", first.CreatedAt)
	}
	second := set.Tabs[1]
	if second.ID != "b" || second.Title != DefaultTabTitle {
		t.Fatalf("blank title not repaired: %+v", second)
	}
	if second.CreatedAt != testNow.UnixMilli()+2 {
		t.Fatalf("non-numeric createdAt not replaced with now+index: %d", second.CreatedAt)
	}
	third := set.Tabs[2]
	if third.ID == "" {
		t.Fatalf("expected minted id for blank entry")
	}
	if third.CreatedAt != testNow.UnixMilli()+3 {
		t.Fatalf("missing createdAt not replaced with now+index: %d", third.CreatedAt)
	}
	if set.ActiveTabID != "a" {
		t.Fatalf("dangling active id not repaired to first tab, got %q", set.ActiveTabID)
	}
}

func TestNormalizeTabSetNonObjectEntryDecaysToBlankTab(t *testing.T) {
	set, ok := NormalizeTabSet([]byte(`{"tabs":[5]}`), testAppURL, testNow)
	if !ok {
		t.Fatalf("expected normalization to succeed")
	}
	if len(set.Tabs) != 1 {
		t.Fatalf("expected 1 tab, got %d", len(set.Tabs))
	}
	if set.Tabs[0].ID == "" || set.Tabs[0].Title != DefaultTabTitle {
		t.Fatalf("unexpected tab: %+v", set.Tabs[0])
	}
}

func TestNormalizeTabSetIdempotent(t *testing.T) {
	raws := [][]byte{
		[]byte(`{"tabs":[{"id":"a","title":"One","createdAt":1},{"id":"b"},{"id":"a"}],"activeTabId":"b"}`),
		[]byte(`{"tabs":[{"title":" x "},{"id":" y ","createdAt":-5}]}`),
	}
	for _, raw := range raws {
		once, ok := NormalizeTabSet(raw, testAppURL, testNow)
		if !ok {
			t.Fatalf("first pass rejected %s", raw)
		}
		encoded, err := json.Marshal(once)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		twice, ok := NormalizeTabSet(encoded, testAppURL, testNow)
		if !ok {
			t.Fatalf("second pass rejected %s", encoded)
		}
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("normalization not idempotent:\n first: %+v\nsecond: %+v", once, twice)
		}
	}
}

func TestNormalizeTabSetActiveSurvives(t *testing.T) {
	raw := []byte(`{"tabs":[{"id":"a"},{"id":"b"}],"activeTabId":"b"}`)
	set, ok := NormalizeTabSet(raw, testAppURL, testNow)
	if !ok {
		t.Fatalf("expected normalization to succeed")
	}
	if set.ActiveTabID != "b" {
		t.Fatalf("valid active id rewritten, got %q", set.ActiveTabID)
	}
}

func TestNewDefaultTabSet(t *testing.T) {
	set := NewDefaultTabSet(testAppURL, testNow)
	if len(set.Tabs) != 1 {
		t.Fatalf("expected a single tab, got %d", len(set.Tabs))
	}
	tab := set.Tabs[0]
	if tab.ID == "" || tab.Title != DefaultTabTitle || tab.URL != testAppURL {
		t.Fatalf("unexpected default tab: %+v", tab)
	}
	if set.ActiveTabID != tab.ID {
		t.Fatalf("active id must point at the only tab")
	}
}

func TestNormalizeShellConfigDefaults(t *testing.T) {
	cfg, err := NormalizeShellConfig(ShellConfig{AppURL: testAppURL})
	if err != nil {
		t.Fatalf("normalize config: %v", err)
	}
	if cfg.QuickEntryTTL != DefaultQuickEntryTTL {
		t.Fatalf("unexpected ttl: %v", cfg.QuickEntryTTL)
	}
	if cfg.TitlePollInterval != DefaultTitlePollInterval {
		t.Fatalf("unexpected poll interval: %v", cfg.TitlePollInterval)
	}
	if len(cfg.AllowedDomains) != 1 || cfg.AllowedDomains[0] != "chat.example.com" {
		t.Fatalf("allowed domains not derived from app url: %v", cfg.AllowedDomains)
	}
	if cfg.FrameName("t1") != "tabframe-t1" {
		t.Fatalf("unexpected frame name: %q", cfg.FrameName("t1"))
	}
}

func TestNormalizeShellConfigRejectsBadURL(t *testing.T) {
	for _, appURL := range []string{"", "   ", "not-a-url", "ftp://x.example.com/"} {
		if _, err := NormalizeShellConfig(ShellConfig{AppURL: appURL}); err == nil {
			t.Errorf("expected error for app url %q", appURL)
		}
	}
}
