package sync

import (
	"context"
	stdsync "sync"

	"github.com/rendezlib/go-rendez/internal/errors"
)

// ErrSendClosedChannel is the panic value raised when sending on a closed
// channel, matching native channel semantics.
var ErrSendClosedChannel = errors.NewUsageError("send on closed channel")

// recvResult is the raw rendezvous value handed to a receive clause.
type recvResult[T any] struct {
	v  T
	ok bool
}

// sentResult is the raw rendezvous value handed to a send clause.
type sentResult struct {
	closed bool
}

type sendWaiter[T any] struct {
	s *SelectInstance
	v T
}

type recvWaiter struct {
	s *SelectInstance
}

// Channel is a buffered or rendezvous channel whose send and receive
// operations participate in select invocations. The channel's own bookkeeping
// runs under a mutex; waiters live in cell arrays so that a select cleaning
// up a lost clause cancels its waiter in O(1) without scanning the queue.
type Channel[T any] struct {
	mu     stdsync.Mutex
	buf    []T
	cap    int
	closed bool

	sendq *waiterQueue
	recvq *waiterQueue
}

// NewChannel creates an unbuffered (rendezvous) channel.
func NewChannel[T any]() *Channel[T] {
	return NewBufferedChannel[T](0)
}

// NewBufferedChannel creates a channel with the given buffer capacity.
func NewBufferedChannel[T any](size int) *Channel[T] {
	return &Channel[T]{
		cap:   size,
		sendq: newWaiterQueue(),
		recvq: newWaiterQueue(),
	}
}

// Send blocks until the value was handed over or ctx is cancelled.
func (ch *Channel[T]) Send(ctx context.Context, v T) error {
	return Select(ctx, Send(ch, v, func(context.Context) error { return nil }))
}

// Receive blocks until a value is available or ctx is cancelled. ok is false
// when the channel is closed and drained.
func (ch *Channel[T]) Receive(ctx context.Context) (v T, ok bool, err error) {
	err = Select(ctx, Receive(ch, func(_ context.Context, rv T, rok bool) error {
		v, ok = rv, rok
		return nil
	}))
	return
}

// TrySend performs a non-blocking send.
func (ch *Channel[T]) TrySend(v T) bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	return ch.deliver(v)
}

// TryReceive performs a non-blocking receive.
func (ch *Channel[T]) TryReceive() (v T, ok bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	r, resolved := ch.obtain()
	if !resolved || !r.ok {
		return
	}

	return r.v, true
}

// Close closes the channel. Waiting receivers observe ok == false; waiting
// senders panic, matching native channel semantics.
func (ch *Channel[T]) Close() {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.closed {
		panic(errors.NewUsageError("close of closed channel"))
	}
	ch.closed = true

	for {
		w, ok := ch.recvq.dequeue()
		if !ok {
			break
		}
		var zero T
		w.(*recvWaiter).s.TrySelect(ch, recvResult[T]{v: zero})
	}

	for {
		w, ok := ch.sendq.dequeue()
		if !ok {
			break
		}
		w.(*sendWaiter[T]).s.TrySelect(ch, sentResult{closed: true})
	}
}

// regReceive is the registration function of receive clauses. It either
// resolves synchronously against the buffer, a waiting sender or the closed
// state, or stores a waiter and installs its cancellation as the completion
// hook. Safe to call again after a recorded rendezvous attempt consumed the
// stored waiter.
func (ch *Channel[T]) regReceive(s *SelectInstance) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if r, resolved := ch.obtain(); resolved {
		s.SelectInRegistrationPhase(r)
		return
	}

	h := ch.recvq.enqueue(&recvWaiter{s: s})
	s.InvokeOnCompletion(func() { h.Cancel() })
}

// regSend is the registration function of send clauses.
func (ch *Channel[T]) regSend(s *SelectInstance, v T) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.closed {
		panic(ErrSendClosedChannel)
	}

	if ch.deliver(v) {
		s.SelectInRegistrationPhase(sentResult{})
		return
	}

	h := ch.sendq.enqueue(&sendWaiter[T]{s: s, v: v})
	s.InvokeOnCompletion(func() { h.Cancel() })
}

// obtain takes the next value from the buffer, a waiting sender or the closed
// state. Called with ch.mu held.
func (ch *Channel[T]) obtain() (recvResult[T], bool) {
	if len(ch.buf) > 0 {
		v := ch.buf[0]
		ch.buf = ch.buf[1:]
		ch.promoteSender()
		return recvResult[T]{v: v, ok: true}, true
	}

	for {
		w, ok := ch.sendq.dequeue()
		if !ok {
			break
		}
		sw := w.(*sendWaiter[T])
		if sw.s.TrySelect(ch, sentResult{}) {
			return recvResult[T]{v: sw.v, ok: true}, true
		}
	}

	if ch.closed {
		return recvResult[T]{}, true
	}

	return recvResult[T]{}, false
}

// deliver hands v to a waiting receiver or buffers it. Called with ch.mu
// held.
func (ch *Channel[T]) deliver(v T) bool {
	if ch.closed {
		panic(ErrSendClosedChannel)
	}

	for {
		w, ok := ch.recvq.dequeue()
		if !ok {
			break
		}
		rw := w.(*recvWaiter)
		if rw.s.TrySelect(ch, recvResult[T]{v: v, ok: true}) {
			return true
		}
	}

	if len(ch.buf) < ch.cap {
		ch.buf = append(ch.buf, v)
		return true
	}

	return false
}

// promoteSender moves one waiting sender's value into the just-freed buffer
// slot. Called with ch.mu held.
func (ch *Channel[T]) promoteSender() {
	for {
		w, ok := ch.sendq.dequeue()
		if !ok {
			return
		}
		sw := w.(*sendWaiter[T])
		if sw.s.TrySelect(ch, sentResult{}) {
			ch.buf = append(ch.buf, sw.v)
			return
		}
	}
}
