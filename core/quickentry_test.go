package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"pkt.systems/chatdeck/schema"
)

func TestSubmitQuickEntryMintsFreshIdentifiers(t *testing.T) {
	f := newTestFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.SubmitQuickEntry(ctx, schema.QuickEntrySubmit{Text: "hello"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	second, err := f.svc.SubmitQuickEntry(ctx, schema.QuickEntrySubmit{Text: "world"})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if first.RequestID == "" || first.TargetTabID == "" {
		t.Fatalf("expected non-empty identifiers, got %+v", first)
	}
	if first.RequestID == second.RequestID {
		t.Fatalf("expected distinct request ids, both %q", first.RequestID)
	}
	if first.TargetTabID == second.TargetTabID {
		t.Fatalf("expected distinct tab ids, both %q", first.TargetTabID)
	}

	state, err := f.svc.GetState(ctx)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Tab(first.TargetTabID) == nil || state.Tab(second.TargetTabID) == nil {
		t.Fatalf("expected both minted tabs in state, got %+v", state.Tabs)
	}
	if state.ActiveTabID != second.TargetTabID {
		t.Fatalf("expected newest tab active, got %q", state.ActiveTabID)
	}

	if len(f.host.mounted) != 2 {
		t.Fatalf("expected 2 mounts, got %d", len(f.host.mounted))
	}
	if f.host.mounted[0].RequestID != first.RequestID || f.host.mounted[0].Text != "hello" {
		t.Fatalf("unexpected first mount: %+v", f.host.mounted[0])
	}
	if f.host.focused != 2 {
		t.Fatalf("expected host focused per submit, got %d", f.host.focused)
	}
}

func TestSubmitQuickEntryRejectsEmptyText(t *testing.T) {
	f := newTestFixture(t, nil)
	if _, err := f.svc.SubmitQuickEntry(context.Background(), schema.QuickEntrySubmit{Text: "   "}); !errors.Is(err, schema.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if len(f.host.mounted) != 0 {
		t.Fatalf("expected no mounts on rejected submit")
	}
}

func TestQuickEntryReadyInjectsText(t *testing.T) {
	f := newTestFixture(t, nil)
	ctx := context.Background()
	receipt, err := f.svc.SubmitQuickEntry(ctx, schema.QuickEntrySubmit{Text: "hello"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.host.addFrame(receipt.TargetTabID, testAppURL+"chat")

	ready := schema.QuickEntryReady{RequestID: receipt.RequestID, TargetTabID: receipt.TargetTabID}
	if err := f.svc.QuickEntryReady(ctx, ready); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if got := f.scripts.injectedTexts(); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("expected one injection of %q, got %v", "hello", got)
	}
	if !f.scripts.injections[0].submit {
		t.Fatalf("expected auto-submit enabled by default")
	}

	// Entry is consumed; a duplicate ready signal is unknown.
	if err := f.svc.QuickEntryReady(ctx, ready); !errors.Is(err, schema.ErrUnknownRequest) {
		t.Fatalf("expected ErrUnknownRequest on duplicate ready, got %v", err)
	}
}

func TestQuickEntryReadyHonorsDisabledAutoSubmit(t *testing.T) {
	f := newTestFixture(t, func(cfg *schema.ShellConfig) {
		cfg.DisableAutoSubmit = true
	})
	ctx := context.Background()
	receipt, err := f.svc.SubmitQuickEntry(ctx, schema.QuickEntrySubmit{Text: "draft"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.host.addFrame(receipt.TargetTabID, testAppURL)
	if err := f.svc.QuickEntryReady(ctx, schema.QuickEntryReady{
		RequestID:   receipt.RequestID,
		TargetTabID: receipt.TargetTabID,
	}); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if f.scripts.injections[0].submit {
		t.Fatalf("expected injection without auto-submit")
	}
}

func TestQuickEntryReadyValidatesPayload(t *testing.T) {
	f := newTestFixture(t, nil)
	err := f.svc.QuickEntryReady(context.Background(), schema.QuickEntryReady{RequestID: "r1"})
	if !errors.Is(err, schema.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestQuickEntryReadyUnknownRequest(t *testing.T) {
	f := newTestFixture(t, nil)
	err := f.svc.QuickEntryReady(context.Background(), schema.QuickEntryReady{
		RequestID:   "never-issued",
		TargetTabID: "no-such-tab",
	})
	if !errors.Is(err, schema.ErrUnknownRequest) {
		t.Fatalf("expected ErrUnknownRequest, got %v", err)
	}
}

func TestQuickEntryReadyMismatchedTabKeepsEntry(t *testing.T) {
	f := newTestFixture(t, nil)
	ctx := context.Background()
	receipt, err := f.svc.SubmitQuickEntry(ctx, schema.QuickEntrySubmit{Text: "hello"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.host.addFrame(receipt.TargetTabID, testAppURL)

	err = f.svc.QuickEntryReady(ctx, schema.QuickEntryReady{
		RequestID:   receipt.RequestID,
		TargetTabID: "wrong-tab",
	})
	if !errors.Is(err, schema.ErrMismatchedRequest) {
		t.Fatalf("expected ErrMismatchedRequest, got %v", err)
	}
	// A mismatch is defensive, not consuming; the real signal still lands.
	if err := f.svc.QuickEntryReady(ctx, schema.QuickEntryReady{
		RequestID:   receipt.RequestID,
		TargetTabID: receipt.TargetTabID,
	}); err != nil {
		t.Fatalf("ready after mismatch: %v", err)
	}
	if len(f.scripts.injections) != 1 {
		t.Fatalf("expected one injection, got %d", len(f.scripts.injections))
	}
}

func TestQuickEntryReadySupersededByNewerSubmit(t *testing.T) {
	f := newTestFixture(t, nil)
	ctx := context.Background()
	first, err := f.svc.SubmitQuickEntry(ctx, schema.QuickEntrySubmit{Text: "a"})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := f.svc.SubmitQuickEntry(ctx, schema.QuickEntrySubmit{Text: "b"})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	f.host.addFrame(first.TargetTabID, testAppURL)
	f.host.addFrame(second.TargetTabID, testAppURL)

	err = f.svc.QuickEntryReady(ctx, schema.QuickEntryReady{
		RequestID:   first.RequestID,
		TargetTabID: first.TargetTabID,
	})
	if !errors.Is(err, schema.ErrSupersededRequest) {
		t.Fatalf("expected ErrSupersededRequest for older submit, got %v", err)
	}
	if len(f.scripts.injections) != 0 {
		t.Fatalf("expected no injection for superseded request")
	}
	if err := f.svc.QuickEntryReady(ctx, schema.QuickEntryReady{
		RequestID:   second.RequestID,
		TargetTabID: second.TargetTabID,
	}); err != nil {
		t.Fatalf("ready for newest submit: %v", err)
	}
	if got := f.scripts.injectedTexts(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("expected only %q injected, got %v", "b", got)
	}
}

func TestQuickEntryReadyOutOfOrderDelivery(t *testing.T) {
	f := newTestFixture(t, nil)
	ctx := context.Background()
	first, err := f.svc.SubmitQuickEntry(ctx, schema.QuickEntrySubmit{Text: "a"})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := f.svc.SubmitQuickEntry(ctx, schema.QuickEntrySubmit{Text: "b"})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	f.host.addFrame(first.TargetTabID, testAppURL)
	f.host.addFrame(second.TargetTabID, testAppURL)

	// The newest ready arrives first and injects.
	if err := f.svc.QuickEntryReady(ctx, schema.QuickEntryReady{
		RequestID:   second.RequestID,
		TargetTabID: second.TargetTabID,
	}); err != nil {
		t.Fatalf("ready for newest submit: %v", err)
	}
	// The older ready trails in afterwards and must not inject.
	err = f.svc.QuickEntryReady(ctx, schema.QuickEntryReady{
		RequestID:   first.RequestID,
		TargetTabID: first.TargetTabID,
	})
	if !errors.Is(err, schema.ErrSupersededRequest) {
		t.Fatalf("expected ErrSupersededRequest for late ready, got %v", err)
	}
	if got := f.scripts.injectedTexts(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("expected only %q injected, got %v", "b", got)
	}
}

func TestQuickEntryReadyExpiresAfterTTL(t *testing.T) {
	f := newTestFixture(t, nil)
	ctx := context.Background()
	receipt, err := f.svc.SubmitQuickEntry(ctx, schema.QuickEntrySubmit{Text: "hello"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.host.addFrame(receipt.TargetTabID, testAppURL)
	f.clock.Advance(schema.DefaultQuickEntryTTL + time.Second)

	err = f.svc.QuickEntryReady(ctx, schema.QuickEntryReady{
		RequestID:   receipt.RequestID,
		TargetTabID: receipt.TargetTabID,
	})
	if !errors.Is(err, schema.ErrUnknownRequest) {
		t.Fatalf("expected ErrUnknownRequest after expiry, got %v", err)
	}
	if len(f.scripts.injections) != 0 {
		t.Fatalf("expected no injection after expiry")
	}
}

func TestQuickEntryInjectedAtMostOnce(t *testing.T) {
	f := newTestFixture(t, nil)
	ctx := context.Background()
	receipt, err := f.svc.SubmitQuickEntry(ctx, schema.QuickEntrySubmit{Text: "hello"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.host.addFrame(receipt.TargetTabID, testAppURL)
	f.scripts.injectErr = errors.New("script exploded")

	ready := schema.QuickEntryReady{RequestID: receipt.RequestID, TargetTabID: receipt.TargetTabID}
	if err := f.svc.QuickEntryReady(ctx, ready); err == nil {
		t.Fatalf("expected injection error")
	}
	// The entry is gone even though injection failed; no retry path exists.
	f.scripts.injectErr = nil
	if err := f.svc.QuickEntryReady(ctx, ready); !errors.Is(err, schema.ErrUnknownRequest) {
		t.Fatalf("expected ErrUnknownRequest on retry, got %v", err)
	}
	if len(f.scripts.injections) != 1 {
		t.Fatalf("expected exactly one injection attempt, got %d", len(f.scripts.injections))
	}
}

func TestQuickEntryReadyRejectsForeignDomain(t *testing.T) {
	f := newTestFixture(t, nil)
	ctx := context.Background()
	receipt, err := f.svc.SubmitQuickEntry(ctx, schema.QuickEntrySubmit{Text: "hello"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.host.addFrame(receipt.TargetTabID, "https://evil.example.net/phish")

	ready := schema.QuickEntryReady{RequestID: receipt.RequestID, TargetTabID: receipt.TargetTabID}
	if err := f.svc.QuickEntryReady(ctx, ready); !errors.Is(err, schema.ErrDomainRejected) {
		t.Fatalf("expected ErrDomainRejected, got %v", err)
	}
	if len(f.scripts.injections) != 0 {
		t.Fatalf("expected no injection into foreign domain")
	}
	// Consumed on rejection as well.
	if err := f.svc.QuickEntryReady(ctx, ready); !errors.Is(err, schema.ErrUnknownRequest) {
		t.Fatalf("expected ErrUnknownRequest after rejection, got %v", err)
	}
}

func TestHideAndCancelLeavePendingIntact(t *testing.T) {
	f := newTestFixture(t, nil)
	ctx := context.Background()
	receipt, err := f.svc.SubmitQuickEntry(ctx, schema.QuickEntrySubmit{Text: "hello"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.host.addFrame(receipt.TargetTabID, testAppURL)

	f.svc.HideQuickEntry(ctx)
	f.svc.CancelQuickEntry(ctx)

	// Dismissal is a UI concern; the in-flight request still completes.
	if err := f.svc.QuickEntryReady(ctx, schema.QuickEntryReady{
		RequestID:   receipt.RequestID,
		TargetTabID: receipt.TargetTabID,
	}); err != nil {
		t.Fatalf("ready after hide/cancel: %v", err)
	}
	if len(f.scripts.injections) != 1 {
		t.Fatalf("expected injection after hide/cancel, got %d", len(f.scripts.injections))
	}
}

func TestSubmitEmitsNavigateAndDismissEvents(t *testing.T) {
	f := newTestFixture(t, nil)
	receipt, err := f.svc.SubmitQuickEntry(context.Background(), schema.QuickEntrySubmit{Text: "hello"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	if len(f.sink.quickEvents) != 2 {
		t.Fatalf("expected navigate+dismiss events, got %d", len(f.sink.quickEvents))
	}
	nav := f.sink.quickEvents[0]
	if nav.Type != schema.QuickEntryEventNavigate || nav.Navigate.RequestID != receipt.RequestID {
		t.Fatalf("unexpected navigate event: %+v", nav)
	}
	if f.sink.quickEvents[1].Type != schema.QuickEntryEventDismiss {
		t.Fatalf("expected dismiss event, got %+v", f.sink.quickEvents[1])
	}
}
