package core

import (
	"context"
	"reflect"
	"strings"

	"pkt.systems/chatdeck/internal/logx"
	"pkt.systems/chatdeck/schema"
)

// GetState returns the current tab set.
func (s *service) GetState(ctx context.Context) (schema.TabSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(ctx).Clone(), nil
}

// SaveState normalizes and persists a candidate tab set. A candidate that
// fails normalization is rejected rather than replaced with a default: a
// save must never silently wipe the user's tabs.
func (s *service) SaveState(ctx context.Context, candidate []byte) (schema.TabSet, error) {
	log := logx.Ctx(ctx)
	set, ok := schema.NormalizeTabSet(candidate, s.cfg.AppURL, s.now())
	if !ok {
		log.Warn("shell state save rejected", "reason", "normalization failed")
		return schema.TabSet{}, schema.ErrInvalidState
	}
	s.mu.Lock()
	s.tabs = &set
	s.persistLocked(log)
	active := set.ActiveTabID
	s.mu.Unlock()
	s.emitTabEvent(schema.TabEvent{Type: schema.TabEventStateReplaced, ActiveTab: active})
	log.Debug("shell state saved", "tabs", len(set.Tabs), "active", active)
	return set.Clone(), nil
}

// UpdateTitle mutates one tab's title. A blank title resets to the sentinel
// rather than storing an empty string; an unchanged title produces no
// persistence write and no broadcast.
func (s *service) UpdateTitle(ctx context.Context, req schema.UpdateTitleRequest) error {
	log := logx.WithTab(ctx, req.TabID)
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = schema.DefaultTabTitle
	}
	s.mu.Lock()
	set := s.stateLocked(ctx)
	tab := set.Tab(req.TabID)
	if tab == nil {
		s.mu.Unlock()
		log.Warn("shell title update failed", "err", schema.ErrTabNotFound)
		return schema.ErrTabNotFound
	}
	if tab.Title == title {
		s.mu.Unlock()
		log.Trace("shell title unchanged")
		return nil
	}
	tab.Title = title
	updated := *tab
	active := set.ActiveTabID
	s.persistLocked(log)
	s.mu.Unlock()
	s.emitTabEvent(schema.TabEvent{Type: schema.TabEventTitleUpdated, Tab: updated, ActiveTab: active})
	log.Debug("shell title updated", "title", title)
	return nil
}

// CreateTab materializes a new tab pointing at the application URL and
// mounts its frame.
func (s *service) CreateTab(ctx context.Context, req schema.CreateTabRequest) (schema.Tab, error) {
	log := logx.Ctx(ctx)
	tab := schema.Tab{
		ID:        newTabID(),
		Title:     schema.DefaultTabTitle,
		URL:       s.cfg.AppURL,
		CreatedAt: s.now().UnixMilli(),
	}
	s.mu.Lock()
	set := s.stateLocked(ctx)
	set.Tabs = append(set.Tabs, tab)
	if req.Activate {
		set.ActiveTabID = tab.ID
	}
	active := set.ActiveTabID
	s.persistLocked(log)
	s.mu.Unlock()
	s.emitTabEvent(schema.TabEvent{Type: schema.TabEventCreated, Tab: tab, ActiveTab: active})
	if s.frames != nil {
		s.frames.Mount(schema.QuickEntryNavigate{TargetTabID: tab.ID})
	}
	log.Info("shell tab created", "tab", tab.ID, "active", active)
	return tab, nil
}

// CloseTab removes a tab. The set is never empty: closing the last tab
// synthesizes a fresh default tab.
func (s *service) CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.TabSet, error) {
	log := logx.WithTab(ctx, req.TabID)
	s.mu.Lock()
	set := s.stateLocked(ctx)
	closed := set.Tab(req.TabID)
	if closed == nil {
		s.mu.Unlock()
		log.Warn("shell tab close failed", "err", schema.ErrTabNotFound)
		return schema.TabSet{}, schema.ErrTabNotFound
	}
	closedTab := *closed
	kept := set.Tabs[:0]
	for _, tab := range set.Tabs {
		if tab.ID != req.TabID {
			kept = append(kept, tab)
		}
	}
	set.Tabs = kept
	var synthesized schema.Tab
	replaced := false
	if len(set.Tabs) == 0 {
		fresh := schema.NewDefaultTabSet(s.cfg.AppURL, s.now())
		*set = fresh
		synthesized = set.Tabs[0]
		replaced = true
	} else if set.ActiveTabID == req.TabID {
		set.ActiveTabID = set.Tabs[0].ID
	}
	active := set.ActiveTabID
	result := set.Clone()
	s.persistLocked(log)
	s.mu.Unlock()

	s.emitTabEvent(schema.TabEvent{Type: schema.TabEventClosed, Tab: closedTab, ActiveTab: active})
	if replaced {
		s.emitTabEvent(schema.TabEvent{Type: schema.TabEventCreated, Tab: synthesized, ActiveTab: active})
	}
	if s.frames != nil {
		if err := s.frames.CloseFrame(ctx, req.TabID); err != nil {
			log.Debug("shell frame close skipped", "err", err)
		}
		if replaced {
			s.frames.Mount(schema.QuickEntryNavigate{TargetTabID: synthesized.ID})
		}
	}
	log.Info("shell tab closed", "active", active)
	return result, nil
}

// ActivateTab moves the active tab pointer.
func (s *service) ActivateTab(ctx context.Context, req schema.ActivateTabRequest) error {
	log := logx.WithTab(ctx, req.TabID)
	s.mu.Lock()
	set := s.stateLocked(ctx)
	if set.Tab(req.TabID) == nil {
		s.mu.Unlock()
		log.Warn("shell tab activate failed", "err", schema.ErrTabNotFound)
		return schema.ErrTabNotFound
	}
	if set.ActiveTabID == req.TabID {
		s.mu.Unlock()
		return nil
	}
	set.ActiveTabID = req.TabID
	activated := *set.Tab(req.TabID)
	s.persistLocked(log)
	s.mu.Unlock()
	s.emitTabEvent(schema.TabEvent{Type: schema.TabEventActivated, Tab: activated, ActiveTab: req.TabID})
	log.Info("shell tab activated")
	return nil
}

// ReloadState re-reads the persisted record after an external change. An
// unchanged or self-inflicted change is a no-op; a record that no longer
// normalizes is repaired from the in-memory state.
func (s *service) ReloadState(ctx context.Context) {
	log := logx.Ctx(ctx)
	if s.store == nil {
		return
	}
	raw, ok, err := s.store.Load()
	if err != nil {
		log.Warn("shell state reload failed", "err", err)
		return
	}
	s.mu.Lock()
	current := s.stateLocked(ctx)
	if !ok {
		// Record deleted out from under us; restore it.
		s.persistLocked(log)
		s.mu.Unlock()
		log.Warn("shell state file missing, restored")
		return
	}
	set, valid := schema.NormalizeTabSet(raw, s.cfg.AppURL, s.now())
	if !valid {
		s.persistLocked(log)
		s.mu.Unlock()
		log.Warn("shell state file invalid after external change, restored")
		return
	}
	if reflect.DeepEqual(*current, set) {
		s.mu.Unlock()
		return
	}
	s.tabs = &set
	active := set.ActiveTabID
	s.mu.Unlock()
	s.emitTabEvent(schema.TabEvent{Type: schema.TabEventStateReplaced, ActiveTab: active})
	log.Info("shell state reloaded after external change", "tabs", len(set.Tabs))
}
