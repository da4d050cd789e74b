package core

import (
	"context"
	"time"

	"pkt.systems/chatdeck/internal/persist"
	"pkt.systems/chatdeck/schema"
	"pkt.systems/pslog"
)

// Frame is an isolated browsing context embedded in the single host window,
// addressable by its deterministic name.
type Frame interface {
	Name() string
	Location(ctx context.Context) (string, error)
	Evaluate(ctx context.Context, expr string, out any) error
}

// FrameHost mounts and resolves frames. Mount is asynchronous: readiness is
// reported through the host's ready callback, never as a return value.
type FrameHost interface {
	Mount(req schema.QuickEntryNavigate)
	Resolve(ctx context.Context, tabID schema.TabID) (Frame, error)
	CloseFrame(ctx context.Context, tabID schema.TabID) error
	Focus(ctx context.Context) error
}

// FrameScripts evaluates the injection and title-extraction collaborators
// inside a resolved frame. Both are opaque scripts from the service's point
// of view.
type FrameScripts interface {
	Inject(ctx context.Context, frame Frame, text string, submit bool) error
	ExtractTitle(ctx context.Context, frame Frame) (string, error)
}

// ReadyFunc receives a frame-ready signal from the host.
type ReadyFunc func(schema.QuickEntryReady)

// ShellDeps captures optional dependencies for the shell service.
type ShellDeps struct {
	Frames  FrameHost
	Scripts FrameScripts
	Sink    EventSink
	Store   *persist.Store
	Logger  pslog.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}
