package rendez

import (
	"context"
	"time"

	"github.com/rendezlib/go-rendez/internal/sync"
)

// SelectClause is one alternative of a select invocation. Clauses are
// single-use: build a fresh set for every Select call.
type SelectClause = sync.SelectClause

// Select blocks until exactly one clause commits, runs its continuation and
// returns the continuation's error. If ctx is cancelled while the invocation
// is suspended, ctx.Err() is returned; a rendezvous racing the cancellation
// yields exactly one of the two outcomes.
func Select(ctx context.Context, clauses ...SelectClause) error {
	return sync.Select(ctx, clauses...)
}

// Receive returns a clause that fires when a value can be received from ch.
// The handler observes ok == false when the channel is closed and drained.
func Receive[T any](ch *Channel[T], handler func(ctx context.Context, v T, ok bool) error) SelectClause {
	return sync.Receive(ch, handler)
}

// Send returns a clause that fires when v was handed to a receiver or placed
// into the channel buffer.
func Send[T any](ch *Channel[T], v T, handler func(ctx context.Context) error) SelectClause {
	return sync.Send(ch, v, handler)
}

// Await returns a clause that fires when d is resolved.
func Await[T any](d *Deferred[T], handler func(ctx context.Context, v T, err error) error) SelectClause {
	return sync.Await(d, handler)
}

// Lock returns a clause that fires when the mutex was acquired. The handler
// runs with the lock held and is responsible for releasing it.
func Lock(m *Mutex, handler func(ctx context.Context) error) SelectClause {
	return sync.Lock(m, handler)
}

// OnTimeout returns a clause that fires once delay has elapsed on the timer
// service's clock. A non-positive delay resolves during registration.
func OnTimeout(ts *TimerService, delay time.Duration, handler func(ctx context.Context) error) SelectClause {
	return sync.OnTimeout(ts, delay, handler)
}

// Default returns a clause that fires when no other clause resolved during
// registration. The select never suspends when a default clause is present.
func Default(handler func(ctx context.Context) error) SelectClause {
	return sync.Default(handler)
}
