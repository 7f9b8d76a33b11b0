package sync

import (
	"context"
	stdsync "sync"

	"github.com/rendezlib/go-rendez/internal/errors"
)

// awaitResult is the raw rendezvous value handed to an await clause.
type awaitResult[T any] struct {
	v   T
	err error
}

// Deferred is a one-shot settable result that select invocations can await.
type Deferred[T any] struct {
	mu      stdsync.Mutex
	done    bool
	v       T
	err     error
	waiters *waiterQueue
}

func NewDeferred[T any]() *Deferred[T] {
	return &Deferred[T]{
		waiters: newWaiterQueue(),
	}
}

// Resolve stores the result and wakes all awaiting selects. Resolving twice
// is a usage error.
func (d *Deferred[T]) Resolve(v T, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.done {
		panic(errors.NewUsageError("deferred already resolved"))
	}

	d.done = true
	d.v = v
	d.err = err

	for {
		w, ok := d.waiters.dequeue()
		if !ok {
			return
		}
		w.(*recvWaiter).s.TrySelect(d, awaitResult[T]{v: v, err: err})
	}
}

// Ready reports whether the deferred has been resolved.
func (d *Deferred[T]) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.done
}

// Get blocks until the deferred is resolved or ctx is cancelled.
func (d *Deferred[T]) Get(ctx context.Context) (v T, err error) {
	serr := Select(ctx, Await(d, func(_ context.Context, rv T, rerr error) error {
		v, err = rv, rerr
		return nil
	}))
	if serr != nil {
		err = serr
	}
	return
}

// regAwait is the registration function of await clauses.
func (d *Deferred[T]) regAwait(s *SelectInstance) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.done {
		s.SelectInRegistrationPhase(awaitResult[T]{v: d.v, err: d.err})
		return
	}

	h := d.waiters.enqueue(&recvWaiter{s: s})
	s.InvokeOnCompletion(func() { h.Cancel() })
}
