package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"pkt.systems/chatdeck/schema"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeFrame struct {
	name     string
	location string
	locErr   error
}

func (f *fakeFrame) Name() string { return f.name }

func (f *fakeFrame) Location(ctx context.Context) (string, error) {
	return f.location, f.locErr
}

func (f *fakeFrame) Evaluate(ctx context.Context, expr string, out any) error {
	return nil
}

type fakeFrameHost struct {
	mu       sync.Mutex
	frames   map[schema.TabID]*fakeFrame
	mounted  []schema.QuickEntryNavigate
	closed   []schema.TabID
	focused  int
	focusErr error
}

func newFakeFrameHost() *fakeFrameHost {
	return &fakeFrameHost{frames: make(map[schema.TabID]*fakeFrame)}
}

func (h *fakeFrameHost) addFrame(tabID schema.TabID, location string) *fakeFrame {
	h.mu.Lock()
	defer h.mu.Unlock()
	f := &fakeFrame{name: "tabframe-" + string(tabID), location: location}
	h.frames[tabID] = f
	return f
}

func (h *fakeFrameHost) Mount(req schema.QuickEntryNavigate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mounted = append(h.mounted, req)
}

func (h *fakeFrameHost) Resolve(ctx context.Context, tabID schema.TabID) (Frame, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if f, ok := h.frames[tabID]; ok {
		return f, nil
	}
	return nil, schema.ErrFrameNotFound
}

func (h *fakeFrameHost) CloseFrame(ctx context.Context, tabID schema.TabID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = append(h.closed, tabID)
	delete(h.frames, tabID)
	return nil
}

func (h *fakeFrameHost) Focus(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.focused++
	return h.focusErr
}

type injection struct {
	frame  Frame
	text   string
	submit bool
}

type fakeScripts struct {
	mu         sync.Mutex
	injections []injection
	injectErr  error
	title      string
	titleErr   error
}

func (s *fakeScripts) Inject(ctx context.Context, frame Frame, text string, submit bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injections = append(s.injections, injection{frame: frame, text: text, submit: submit})
	return s.injectErr
}

func (s *fakeScripts) ExtractTitle(ctx context.Context, frame Frame) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title, s.titleErr
}

func (s *fakeScripts) injectedTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	texts := make([]string, 0, len(s.injections))
	for _, in := range s.injections {
		texts = append(texts, in.text)
	}
	return texts
}

type recordingSink struct {
	mu          sync.Mutex
	tabEvents   []schema.TabEvent
	quickEvents []schema.QuickEntryEvent
}

func (s *recordingSink) OnTabEvent(event schema.TabEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabEvents = append(s.tabEvents, event)
}

func (s *recordingSink) OnQuickEntryEvent(event schema.QuickEntryEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quickEvents = append(s.quickEvents, event)
}

func (s *recordingSink) tabEventTypes() []schema.TabEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]schema.TabEventType, 0, len(s.tabEvents))
	for _, ev := range s.tabEvents {
		types = append(types, ev.Type)
	}
	return types
}

const testAppURL = "https://chat.example.com/"

type testFixture struct {
	svc     Service
	host    *fakeFrameHost
	scripts *fakeScripts
	sink    *recordingSink
	clock   *fakeClock
}

func newTestFixture(t *testing.T, mutate func(cfg *schema.ShellConfig)) testFixture {
	t.Helper()
	cfg := schema.ShellConfig{AppURL: testAppURL}
	if mutate != nil {
		mutate(&cfg)
	}
	host := newFakeFrameHost()
	scripts := &fakeScripts{}
	sink := &recordingSink{}
	clock := newFakeClock()
	svc, err := NewService(cfg, ShellDeps{
		Frames:  host,
		Scripts: scripts,
		Sink:    sink,
		Now:     clock.Now,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return testFixture{svc: svc, host: host, scripts: scripts, sink: sink, clock: clock}
}
