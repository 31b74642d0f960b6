package emitter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/hedisam/assetd/server/internal/store"
)

var (
	ErrClosed = errors.New("emitter closed")
)

// Emitter queues orphaned temp files for the janitor. Emit blocks until the orphan is
// accepted, the context is done, or the emitter is closed.
type Emitter struct {
	ch     chan *store.Orphan
	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

func New(buffer int) *Emitter {
	return &Emitter{
		ch:   make(chan *store.Orphan, max(buffer, 1)),
		done: make(chan struct{}),
	}
}

func (e *Emitter) Emit(ctx context.Context, orphan *store.Orphan) error {
	e.wg.Add(1)
	defer e.wg.Done()

	if e.closed.Load() {
		return ErrClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrClosed
	case e.ch <- orphan:
		return nil
	}
}

func (e *Emitter) Chan() <-chan *store.Orphan {
	return e.ch
}

func (e *Emitter) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return // already closed
	}

	// unblock pending emits before waiting on them
	close(e.done)
	e.wg.Wait()
	close(e.ch)
}
