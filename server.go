package chatdeck

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/chatdeck/core"
	"pkt.systems/chatdeck/httpapi"
	"pkt.systems/chatdeck/internal/eventbus"
	"pkt.systems/chatdeck/internal/frames"
	"pkt.systems/chatdeck/internal/persist"
	"pkt.systems/chatdeck/schema"
	"pkt.systems/pslog"
)

// Server composes the browser host, the shell service, and the control API.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
	// Service exposes the shell service for in-process embedders.
	Service() core.Service
	// Subscribe taps the in-process event bus.
	Subscribe() (<-chan eventbus.Event, func())
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Shell      schema.ShellConfig
	StateDir   string
	Frames     frames.Config
	HTTP       httpapi.Config
	HubHistory int
}

// ServerDeps captures dependencies required to build the server. Frames and
// Scripts default to the Chrome-backed host when left nil and the browser is
// enabled; tests substitute fakes here.
type ServerDeps struct {
	Logger  pslog.Logger
	Frames  core.FrameHost
	Scripts core.FrameScripts
	Sink    core.EventSink
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP    bool
	enableBrowser bool
}

// WithHTTP enables the local control API.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithBrowser enables the Chrome-backed frame host.
func WithBrowser() ServerOption {
	return func(o *serverOptions) { o.enableBrowser = true }
}

// New constructs a composable chatdeck server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP && !options.enableBrowser {
		return nil, errors.New("no services enabled")
	}

	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	var store *persist.Store
	if cfg.StateDir != "" {
		st, err := persist.NewStoreWithLogger(cfg.StateDir, logger)
		if err != nil {
			return nil, err
		}
		store = st
	}

	bus := eventbus.New(logger)
	var hub *httpapi.Hub
	if options.enableHTTP {
		hub = httpapi.NewHub(cfg.HubHistory)
	}
	sinks := make([]core.EventSink, 0, 3)
	if deps.Sink != nil {
		sinks = append(sinks, deps.Sink)
	}
	if hub != nil {
		sinks = append(sinks, hub)
	}
	sinks = append(sinks, bus)
	var sink core.EventSink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else {
		sink = eventFanout{sinks: sinks}
	}

	frameHost := deps.Frames
	scripts := deps.Scripts
	var browser *frames.Host
	if options.enableBrowser && frameHost == nil {
		browser = frames.NewHost(cfg.Frames, logger)
		frameHost = browser
	}
	if scripts == nil {
		scripts = frames.Scripts{}
	}

	service, err := core.NewService(cfg.Shell, core.ShellDeps{
		Frames:  frameHost,
		Scripts: scripts,
		Sink:    sink,
		Store:   store,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	queue := core.NewReadyQueue(service, cfg.Shell.DeterministicReady)

	var httpSrv *httpapi.Server
	if options.enableHTTP {
		httpSrv = httpapi.NewServer(cfg.HTTP, service, queue, hub)
	}

	return &compositeServer{
		cfg:     cfg,
		options: options,
		service: service,
		queue:   queue,
		store:   store,
		bus:     bus,
		browser: browser,
		httpSrv: httpSrv,
	}, nil
}

type compositeServer struct {
	cfg     ServerConfig
	options serverOptions
	service core.Service
	queue   *core.ReadyQueue
	store   *persist.Store
	bus     *eventbus.Bus
	browser *frames.Host
	httpSrv *httpapi.Server
	logger  pslog.Logger

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	errCh     chan error
	stopTitle func()
	started   bool
}

func (s *compositeServer) Service() core.Service { return s.service }

func (s *compositeServer) Subscribe() (<-chan eventbus.Event, func()) {
	return s.bus.Subscribe()
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"browser", s.options.enableBrowser,
		"http_addr", s.cfg.HTTP.Addr,
		"app_url", s.cfg.Shell.AppURL,
	)

	if s.browser != nil {
		s.browser.SetReadyFunc(func(ready schema.QuickEntryReady) {
			if err := s.queue.Ready(s.ctx, ready); err != nil {
				log.Warn("server ready signal rejected", "request", ready.RequestID, "err", err)
			}
		})
		if err := s.browser.Start(s.ctx); err != nil {
			s.mu.Lock()
			s.started = false
			s.cancel()
			s.mu.Unlock()
			return err
		}
	}

	if s.store != nil {
		if err := s.store.Watch(s.ctx, func() {
			s.service.ReloadState(s.ctx)
		}); err != nil {
			log.Warn("server state watch unavailable", "err", err)
		}
	}

	s.mu.Lock()
	s.stopTitle = s.service.StartTitleSync(s.ctx)
	s.mu.Unlock()

	if s.options.enableHTTP && s.httpSrv != nil {
		go func() {
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	stopTitle := s.stopTitle
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if stopTitle != nil {
		stopTitle()
	}
	if s.browser != nil {
		s.browser.Stop()
	}
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-s.ctx.Done():
		log.Info("server stopped")
		return nil
	}
}
