package dispatch

import (
	"context"

	"github.com/kailas-cloud/searchsync/internal/domain/intent"
)

// Bridge turns decided intents into queued units.
type Bridge struct {
	queue Queue
	opts  Options
}

// NewBridge creates a bridge enqueueing with opts.
func NewBridge(queue Queue, opts Options) *Bridge {
	return &Bridge{queue: queue, opts: opts}
}

// Dispatch enqueues one unit for it. Empty intents are dropped.
func (b *Bridge) Dispatch(ctx context.Context, it intent.Intent) error {
	if it.Len() == 0 {
		return nil
	}
	return b.queue.Enqueue(ctx, FromIntent(it), b.opts)
}
