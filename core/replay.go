package core

import (
	"context"
	"sync"

	"pkt.systems/chatdeck/internal/logx"
	"pkt.systems/chatdeck/schema"
)

// ReadyQueue buffers frame ready signals that arrive before the service is
// prepared to act on them, then replays the buffer in arrival order. With
// buffering disabled it is a plain pass-through; enabling it makes the
// submit-then-ready ordering deterministic for tests and slow startups.
type ReadyQueue struct {
	svc Service

	mu        sync.Mutex
	buffering bool
	buffer    []schema.QuickEntryReady
}

// NewReadyQueue wraps svc. When buffering is true, ready signals are held
// until Flush is called.
func NewReadyQueue(svc Service, buffering bool) *ReadyQueue {
	return &ReadyQueue{svc: svc, buffering: buffering}
}

// Ready forwards a ready signal to the service, or buffers it when
// buffering is active. Buffered signals always return nil; their outcome is
// reported when Flush replays them.
func (q *ReadyQueue) Ready(ctx context.Context, ready schema.QuickEntryReady) error {
	q.mu.Lock()
	if q.buffering {
		q.buffer = append(q.buffer, ready)
		n := len(q.buffer)
		q.mu.Unlock()
		logx.WithRequest(ctx, ready.RequestID, ready.TargetTabID).Debug("quick entry ready buffered", "queued", n)
		return nil
	}
	q.mu.Unlock()
	return q.svc.QuickEntryReady(ctx, ready)
}

// Flush replays held signals in arrival order. Buffering stays on: flush
// drains the queue, it does not switch modes. Replay outcomes are logged,
// not returned: each buffered signal already got its nil from Ready.
func (q *ReadyQueue) Flush(ctx context.Context) {
	q.mu.Lock()
	held := q.buffer
	q.buffer = nil
	q.mu.Unlock()
	log := logx.Ctx(ctx)
	for _, ready := range held {
		if err := q.svc.QuickEntryReady(ctx, ready); err != nil {
			log.Warn("quick entry replay rejected", "request", ready.RequestID, "err", err)
		}
	}
	if len(held) > 0 {
		log.Debug("quick entry replay flushed", "count", len(held))
	}
}
