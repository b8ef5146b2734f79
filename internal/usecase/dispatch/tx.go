package dispatch

import (
	"context"
	"errors"
	"sync"
)

// ErrTxDone is returned when committing a finished transaction.
var ErrTxDone = errors.New("dispatch: transaction already finished")

type txKey struct{}

type held struct {
	queue Queue
	unit  Unit
}

// Tx buffers after-commit units until the surrounding store transaction ends.
type Tx struct {
	mu      sync.Mutex
	pending []held
	done    bool
}

// WithTx returns a context carrying a new Tx.
func WithTx(ctx context.Context) (context.Context, *Tx) {
	tx := &Tx{}
	return context.WithValue(ctx, txKey{}, tx), tx
}

// TxFrom returns the Tx carried by ctx.
func TxFrom(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	return tx, ok
}

// hold buffers u unless the Tx already finished.
func (t *Tx) hold(q Queue, u Unit) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.pending = append(t.pending, held{queue: q, unit: u})
	return true
}

// Pending returns the number of buffered units.
func (t *Tx) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Commit enqueues every buffered unit in order. Units after a failed one are
// still attempted and all errors are joined.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return ErrTxDone
	}
	pending := t.pending
	t.pending, t.done = nil, true
	t.mu.Unlock()

	var errs []error
	for _, h := range pending {
		if err := h.queue.Enqueue(ctx, h.unit, Options{}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Rollback discards buffered units.
func (t *Tx) Rollback() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending, t.done = nil, true
}
