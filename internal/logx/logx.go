package logx

import (
	"context"

	"pkt.systems/chatdeck/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	tabKey contextKey = iota
	requestKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithTab annotates the logger with the tab id if present.
func WithTab(ctx context.Context, tabID schema.TabID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if tabID != "" {
		if current, ok := ctx.Value(tabKey).(schema.TabID); ok && current == tabID {
			return log
		}
		log = log.With("tab", tabID)
	}
	return log
}

// WithRequest annotates the logger with request and tab identifiers.
func WithRequest(ctx context.Context, requestID schema.RequestID, tabID schema.TabID) pslog.Logger {
	log := WithTab(ctx, tabID)
	if requestID != "" {
		if current, ok := ctx.Value(requestKey).(schema.RequestID); ok && current == requestID {
			return log
		}
		log = log.With("request", requestID)
	}
	return log
}

// ContextWithTab stores the tab marker on the context for log de-duplication.
func ContextWithTab(ctx context.Context, tabID schema.TabID) context.Context {
	if ctx == nil || tabID == "" {
		return ctx
	}
	return context.WithValue(ctx, tabKey, tabID)
}

// ContextWithRequest stores request/tab markers on the context for log de-duplication.
func ContextWithRequest(ctx context.Context, requestID schema.RequestID, tabID schema.TabID) context.Context {
	ctx = ContextWithTab(ctx, tabID)
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestKey, requestID)
}

// ContextWithTabLogger attaches the logger and tab marker to the context.
func ContextWithTabLogger(ctx context.Context, log pslog.Logger, tabID schema.TabID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithTab(ctx, tabID)
}
