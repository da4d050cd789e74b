package core

import (
	"context"

	"pkt.systems/chatdeck/schema"
)

// Service is the transport-agnostic API for tab state and quick-entry routing.
type Service interface {
	// Tab identity & state.
	GetState(ctx context.Context) (schema.TabSet, error)
	SaveState(ctx context.Context, candidate []byte) (schema.TabSet, error)
	UpdateTitle(ctx context.Context, req schema.UpdateTitleRequest) error
	CreateTab(ctx context.Context, req schema.CreateTabRequest) (schema.Tab, error)
	CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.TabSet, error)
	ActivateTab(ctx context.Context, req schema.ActivateTabRequest) error
	ReloadState(ctx context.Context)

	// Quick entry protocol.
	SubmitQuickEntry(ctx context.Context, req schema.QuickEntrySubmit) (schema.QuickEntryReceipt, error)
	QuickEntryReady(ctx context.Context, payload schema.QuickEntryReady) error
	HideQuickEntry(ctx context.Context)
	CancelQuickEntry(ctx context.Context)

	// Title sync. The returned stop function cancels the poller.
	StartTitleSync(ctx context.Context) func()
}
