package frames

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"pkt.systems/chatdeck/core"
	"pkt.systems/chatdeck/schema"
	"pkt.systems/pslog"
)

// Config configures the Chrome-backed frame host.
type Config struct {
	AppURL       string
	FramePrefix  string
	ChromePath   string
	Headless     bool
	UserDataDir  string
	WindowWidth  int
	WindowHeight int
}

// Host owns the single Chrome window and one browsing context per tab.
// Frames are addressed by the deterministic name prefix+tabID, stamped into
// window.name at mount time; that name is the sole lookup mechanism.
type Host struct {
	cfg     Config
	log     pslog.Logger
	onReady core.ReadyFunc

	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	browserCtx    context.Context

	mu     sync.Mutex
	frames map[schema.TabID]*Frame
}

// NewHost constructs a frame host. Start must be called before use.
func NewHost(cfg Config, logger pslog.Logger) *Host {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Host{
		cfg:    cfg,
		log:    logger,
		frames: make(map[schema.TabID]*Frame),
	}
}

// SetReadyFunc installs the callback invoked when a mounted frame finishes
// loading. Must be set before Mount is called with a correlation id.
func (h *Host) SetReadyFunc(fn core.ReadyFunc) {
	h.onReady = fn
}

// Start launches the browser. The returned error covers launch only;
// individual frame failures are reported per operation.
func (h *Host) Start(ctx context.Context) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("headless", h.cfg.Headless),
	)
	if h.cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(h.cfg.ChromePath))
	}
	if h.cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(h.cfg.UserDataDir))
	}
	if h.cfg.WindowWidth > 0 && h.cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(h.cfg.WindowWidth, h.cfg.WindowHeight))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("launch browser: %w", err)
	}
	h.allocCancel = allocCancel
	h.browserCancel = browserCancel
	h.browserCtx = browserCtx
	h.log.Info("frame host started", "headless", h.cfg.Headless)
	return nil
}

// Stop tears down the browser and all frames.
func (h *Host) Stop() {
	h.mu.Lock()
	for id, frame := range h.frames {
		frame.cancel()
		delete(h.frames, id)
	}
	h.mu.Unlock()
	if h.browserCancel != nil {
		h.browserCancel()
	}
	if h.allocCancel != nil {
		h.allocCancel()
	}
	h.log.Info("frame host stopped")
}

// Mount creates a browsing context for the tab, navigates it to the
// application URL, and stamps the frame name. It returns immediately; once
// the content finishes loading the ready callback fires with the same
// correlation id. Mount requests without a request id mount silently.
func (h *Host) Mount(req schema.QuickEntryNavigate) {
	go h.mount(req)
}

func (h *Host) mount(req schema.QuickEntryNavigate) {
	log := h.log.With("tab", req.TargetTabID)
	if req.RequestID != "" {
		log = log.With("request", req.RequestID)
	}
	if h.browserCtx == nil {
		log.Error("frame mount failed", "err", "host not started")
		return
	}
	name := h.cfg.FramePrefix + string(req.TargetTabID)

	h.mu.Lock()
	if existing := h.frames[req.TargetTabID]; existing != nil {
		existing.cancel()
		delete(h.frames, req.TargetTabID)
	}
	tabCtx, cancel := chromedp.NewContext(h.browserCtx)
	frame := &Frame{name: name, tabID: req.TargetTabID, ctx: tabCtx, cancel: cancel}
	h.frames[req.TargetTabID] = frame
	h.mu.Unlock()

	stamp := fmt.Sprintf("window.name = %q", name)
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(h.cfg.AppURL),
		chromedp.Evaluate(stamp, nil),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		log.Error("frame mount failed", "err", err)
		h.mu.Lock()
		if h.frames[req.TargetTabID] == frame {
			delete(h.frames, req.TargetTabID)
		}
		h.mu.Unlock()
		cancel()
		return
	}
	if c := chromedp.FromContext(tabCtx); c != nil && c.Target != nil {
		frame.targetID = c.Target.TargetID
	}
	log.Info("frame mounted", "name", name)
	if req.RequestID != "" && h.onReady != nil {
		h.onReady(schema.QuickEntryReady{
			RequestID:   req.RequestID,
			TargetTabID: req.TargetTabID,
		})
	}
}

// Resolve maps a tab id to its live frame by deterministic name. The live
// target list is consulted so frames closed out from under the registry
// (for example by the user closing the Chrome tab) report not-found.
func (h *Host) Resolve(ctx context.Context, tabID schema.TabID) (core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	frame := h.frames[tabID]
	h.mu.Unlock()
	if frame == nil || frame.name != h.cfg.FramePrefix+string(tabID) {
		return nil, schema.ErrFrameNotFound
	}
	if frame.targetID != "" {
		infos, err := chromedp.Targets(h.browserCtx)
		if err != nil {
			return nil, err
		}
		alive := false
		for _, info := range infos {
			if info.TargetID == frame.targetID {
				alive = true
				break
			}
		}
		if !alive {
			h.mu.Lock()
			if h.frames[tabID] == frame {
				delete(h.frames, tabID)
			}
			h.mu.Unlock()
			frame.cancel()
			return nil, schema.ErrFrameNotFound
		}
	}
	return frame, nil
}

// CloseFrame tears down the frame for a tab.
func (h *Host) CloseFrame(ctx context.Context, tabID schema.TabID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	frame := h.frames[tabID]
	delete(h.frames, tabID)
	h.mu.Unlock()
	if frame == nil {
		return schema.ErrFrameNotFound
	}
	frame.cancel()
	h.log.Debug("frame closed", "tab", tabID)
	return nil
}

// Focus brings the host window to the foreground.
func (h *Host) Focus(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	var any *Frame
	for _, frame := range h.frames {
		any = frame
		break
	}
	h.mu.Unlock()
	if any == nil {
		return nil
	}
	return chromedp.Run(any.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return page.BringToFront().Do(ctx)
	}))
}

// Frame is one isolated browsing context, addressed by its stamped name.
type Frame struct {
	name     string
	tabID    schema.TabID
	ctx      context.Context
	cancel   context.CancelFunc
	targetID target.ID
}

// Name returns the deterministic frame name.
func (f *Frame) Name() string { return f.name }

// Location reports the frame's current URL. Evaluated live because the
// frame may have navigated (auth redirects) since it was mounted.
func (f *Frame) Location(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var loc string
	if err := chromedp.Run(f.ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Evaluate runs an expression inside the frame.
func (f *Frame) Evaluate(ctx context.Context, expr string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.ctx == nil {
		return errors.New("frame context missing")
	}
	return chromedp.Run(f.ctx, chromedp.Evaluate(expr, out))
}
