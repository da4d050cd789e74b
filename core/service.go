package core

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"pkt.systems/chatdeck/internal/logx"
	"pkt.systems/chatdeck/internal/persist"
	"pkt.systems/chatdeck/schema"
	"pkt.systems/pslog"
)

// service implements the shell service. All operations serialize behind one
// mutex, so the tab set, the pending-request map, and its latest-per-tab
// index are always observed as a consistent snapshot.
type service struct {
	cfg     schema.ShellConfig
	frames  FrameHost
	scripts FrameScripts
	sink    EventSink
	store   *persist.Store
	logger  pslog.Logger
	now     func() time.Time

	mu      sync.Mutex
	tabs    *schema.TabSet
	pending map[schema.RequestID]*pendingRequest
	latest  map[schema.TabID]schema.RequestID
}

// NewService constructs the shell service implementation.
func NewService(cfg schema.ShellConfig, deps ShellDeps) (Service, error) {
	normalized, err := schema.NormalizeShellConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		cfg:     normalized,
		frames:  deps.Frames,
		scripts: deps.Scripts,
		sink:    deps.Sink,
		store:   deps.Store,
		logger:  logger,
		now:     now,
		pending: make(map[schema.RequestID]*pendingRequest),
		latest:  make(map[schema.TabID]schema.RequestID),
	}, nil
}

// stateLocked returns the in-memory tab set, loading and normalizing the
// persisted record on first use. A missing or rejected record synthesizes a
// fresh single-tab default; a repaired record is re-persisted so every
// reader observes the valid form.
func (s *service) stateLocked(ctx context.Context) *schema.TabSet {
	if s.tabs != nil {
		return s.tabs
	}
	log := logx.Ctx(ctx)
	now := s.now()
	if s.store != nil {
		raw, ok, err := s.store.Load()
		if err != nil {
			// Unreadable state is not overwritten; run on a default set and
			// leave the record for the operator.
			log.Warn("shell state unreadable, using default", "err", err)
			set := schema.NewDefaultTabSet(s.cfg.AppURL, now)
			s.tabs = &set
			return s.tabs
		}
		if ok {
			if set, valid := schema.NormalizeTabSet(raw, s.cfg.AppURL, now); valid {
				s.tabs = &set
				if repaired, err := json.MarshalIndent(set, "", "  "); err == nil && !bytes.Equal(repaired, raw) {
					log.Debug("shell state repaired on load")
					s.persistLocked(log)
				}
				return s.tabs
			}
			log.Warn("shell state rejected by normalization, synthesizing default")
		} else {
			log.Debug("shell state missing, synthesizing default")
		}
	}
	set := schema.NewDefaultTabSet(s.cfg.AppURL, now)
	s.tabs = &set
	s.persistLocked(log)
	return s.tabs
}

func (s *service) persistLocked(log pslog.Logger) {
	if s.store == nil || s.tabs == nil {
		return
	}
	if err := s.store.Save(*s.tabs); err != nil && log != nil {
		log.Warn("shell state persist failed", "err", err)
	}
}

func (s *service) emitTabEvent(event schema.TabEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnTabEvent(event)
}

func (s *service) emitQuickEntryEvent(event schema.QuickEntryEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnQuickEntryEvent(event)
}
