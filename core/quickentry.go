package core

import (
	"context"
	"strings"
	"time"

	"pkt.systems/chatdeck/internal/logx"
	"pkt.systems/chatdeck/schema"
	"pkt.systems/pslog"
)

// pendingRequest is an accepted quick-entry submission waiting for its
// target frame to report ready.
type pendingRequest struct {
	id        schema.RequestID
	targetTab schema.TabID
	text      string
	createdAt time.Time
}

// SubmitQuickEntry accepts quick-entry text, materializes the target tab,
// and records the pending request under fresh identifiers. The frame mount
// runs asynchronously; injection happens when the frame reports ready with
// the matching identifier pair.
func (s *service) SubmitQuickEntry(ctx context.Context, req schema.QuickEntrySubmit) (schema.QuickEntryReceipt, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		logx.Ctx(ctx).Warn("quick entry rejected", "err", schema.ErrEmptyText)
		return schema.QuickEntryReceipt{}, schema.ErrEmptyText
	}
	requestID := newRequestID()
	tabID := newTabID()
	log := logx.WithRequest(ctx, requestID, tabID)

	now := s.now()
	tab := schema.Tab{
		ID:        tabID,
		Title:     schema.DefaultTabTitle,
		URL:       s.cfg.AppURL,
		CreatedAt: now.UnixMilli(),
	}
	s.mu.Lock()
	s.sweepLocked(now, log)
	set := s.stateLocked(ctx)
	set.Tabs = append(set.Tabs, tab)
	set.ActiveTabID = tabID
	s.pending[requestID] = &pendingRequest{
		id:        requestID,
		targetTab: tabID,
		text:      text,
		createdAt: now,
	}
	// The newest request supersedes every request still in flight: repoint
	// each pending tab's latest entry so an older ready signal, arriving in
	// any order, fails the latest-index check.
	for _, p := range s.pending {
		s.latest[p.targetTab] = requestID
	}
	s.persistLocked(log)
	s.mu.Unlock()

	nav := schema.QuickEntryNavigate{
		RequestID:   requestID,
		TargetTabID: tabID,
		Text:        text,
	}
	s.emitTabEvent(schema.TabEvent{Type: schema.TabEventCreated, Tab: tab, ActiveTab: tabID})
	s.emitQuickEntryEvent(schema.QuickEntryEvent{Type: schema.QuickEntryEventNavigate, Navigate: nav})
	if s.frames != nil {
		s.frames.Mount(nav)
		if err := s.frames.Focus(ctx); err != nil {
			log.Error("quick entry focus failed", "err", err)
		}
	}
	s.emitQuickEntryEvent(schema.QuickEntryEvent{Type: schema.QuickEntryEventDismiss})
	log.Info("quick entry submitted", "chars", len(text))
	return schema.QuickEntryReceipt{RequestID: requestID, TargetTabID: tabID}, nil
}

// QuickEntryReady correlates a frame's ready signal against the pending
// request table and injects the recorded text on a match. The pending entry
// is consumed before the injection attempt, so each request is injected at
// most once even when the attempt fails.
func (s *service) QuickEntryReady(ctx context.Context, ready schema.QuickEntryReady) error {
	log := logx.WithRequest(ctx, ready.RequestID, ready.TargetTabID)
	if err := ready.Validate(); err != nil {
		log.Warn("quick entry ready rejected", "err", err)
		return err
	}

	s.mu.Lock()
	s.sweepLocked(s.now(), log)
	req, ok := s.pending[ready.RequestID]
	if !ok {
		s.mu.Unlock()
		log.Warn("quick entry ready rejected", "err", schema.ErrUnknownRequest)
		return schema.ErrUnknownRequest
	}
	if req.targetTab != ready.TargetTabID {
		s.mu.Unlock()
		log.Warn("quick entry ready rejected", "err", schema.ErrMismatchedRequest, "expected_tab", req.targetTab)
		return schema.ErrMismatchedRequest
	}
	if latest := s.latest[req.targetTab]; latest != req.id {
		delete(s.pending, req.id)
		delete(s.latest, req.targetTab)
		s.mu.Unlock()
		log.Warn("quick entry ready rejected", "err", schema.ErrSupersededRequest, "latest", latest)
		return schema.ErrSupersededRequest
	}
	delete(s.pending, req.id)
	delete(s.latest, req.targetTab)
	text := req.text
	s.mu.Unlock()

	if s.frames == nil || s.scripts == nil {
		log.Error("quick entry target unavailable", "err", schema.ErrFrameNotFound)
		return schema.ErrFrameNotFound
	}
	frame, err := s.frames.Resolve(ctx, ready.TargetTabID)
	if err != nil {
		log.Error("quick entry target unavailable", "err", err)
		return err
	}
	location, err := frame.Location(ctx)
	if err != nil {
		log.Error("quick entry injection blocked", "err", err)
		return err
	}
	if !s.cfg.IsAllowedDomain(location) {
		log.Error("quick entry injection blocked", "err", schema.ErrDomainRejected, "location", location)
		return schema.ErrDomainRejected
	}
	if err := s.scripts.Inject(ctx, frame, text, !s.cfg.DisableAutoSubmit); err != nil {
		log.Error("quick entry injection failed", "err", err)
		return err
	}
	log.Info("quick entry injected", "chars", len(text))
	return nil
}

// HideQuickEntry dismisses the quick-entry surface without touching pending
// requests: a submission already in flight still lands when its frame
// reports ready.
func (s *service) HideQuickEntry(ctx context.Context) {
	s.emitQuickEntryEvent(schema.QuickEntryEvent{Type: schema.QuickEntryEventDismiss})
	logx.Ctx(ctx).Debug("quick entry hidden")
}

// CancelQuickEntry dismisses the quick-entry surface. Like HideQuickEntry it
// leaves the pending table alone; stale entries age out through the sweep.
func (s *service) CancelQuickEntry(ctx context.Context) {
	s.emitQuickEntryEvent(schema.QuickEntryEvent{Type: schema.QuickEntryEventDismiss})
	logx.Ctx(ctx).Debug("quick entry cancelled")
}

// sweepLocked drops pending requests older than the configured TTL, along
// with any latest-per-tab index entries that point at them. Runs lazily at
// the top of each submit and ready call rather than on a timer.
func (s *service) sweepLocked(now time.Time, log pslog.Logger) {
	ttl := s.cfg.QuickEntryTTL
	if ttl <= 0 {
		ttl = schema.DefaultQuickEntryTTL
	}
	for id, req := range s.pending {
		if now.Sub(req.createdAt) <= ttl {
			continue
		}
		delete(s.pending, id)
		delete(s.latest, req.targetTab)
		log.Debug("quick entry request expired", "request", id, "tab", req.targetTab)
	}
}
