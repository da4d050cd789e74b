package core

import (
	"context"
	"time"

	"pkt.systems/chatdeck/internal/logx"
	"pkt.systems/chatdeck/schema"
)

// StartTitleSync launches the background poller that mirrors the active
// frame's document title into the tab record. The returned func stops the
// poller; cancelling ctx stops it too.
func (s *service) StartTitleSync(ctx context.Context) func() {
	interval := s.cfg.TitlePollInterval
	if interval <= 0 {
		interval = schema.DefaultTitlePollInterval
	}
	pollCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				s.syncTitleOnce(pollCtx)
			}
		}
	}()
	logx.Ctx(ctx).Debug("shell title sync started", "interval", interval)
	return cancel
}

// syncTitleOnce reads the active frame's title and applies it through
// UpdateTitle. Every failure mode is a skip: the next tick retries.
func (s *service) syncTitleOnce(ctx context.Context) {
	s.mu.Lock()
	active := s.stateLocked(ctx).ActiveTabID
	s.mu.Unlock()
	if active == "" || s.frames == nil || s.scripts == nil {
		return
	}
	log := logx.WithTab(ctx, active)
	frame, err := s.frames.Resolve(ctx, active)
	if err != nil {
		log.Debug("shell title sync skipped", "err", err)
		return
	}
	location, err := frame.Location(ctx)
	if err != nil {
		log.Debug("shell title sync skipped", "err", err)
		return
	}
	if !s.cfg.IsAllowedDomain(location) {
		log.Warn("shell title sync blocked", "err", schema.ErrDomainRejected, "location", location)
		return
	}
	title, err := s.scripts.ExtractTitle(ctx, frame)
	if err != nil {
		log.Debug("shell title sync skipped", "err", err)
		return
	}
	if err := s.UpdateTitle(ctx, schema.UpdateTitleRequest{TabID: active, Title: title}); err != nil {
		log.Debug("shell title sync skipped", "err", err)
	}
}
