package sync

import (
	"context"
	"time"
)

// SelectClause is one alternative of a select invocation. Clauses are created
// by the constructor functions in this package and are single-use: build a
// fresh set for every Select call.
type SelectClause interface {
	selectClause()
}

// clause ties together the target identity, the registration and
// result-processing functions, the continuation and the completion hook slot.
type clause struct {
	target   any
	register func(s *SelectInstance, c *clause)
	process  func(param any, raw any) any
	param    any
	run      func(ctx context.Context, processed any) error

	index     int // position in the clause list, set by the select instance
	complete  func()
	isDefault bool
}

func (c *clause) selectClause() {}

// Receive returns a clause that fires when a value can be received from ch.
// The handler observes ok == false when the channel is closed and drained.
func Receive[T any](ch *Channel[T], handler func(ctx context.Context, v T, ok bool) error) SelectClause {
	return &clause{
		target: ch,
		register: func(s *SelectInstance, c *clause) {
			ch.regReceive(s)
		},
		run: func(ctx context.Context, processed any) error {
			r := processed.(recvResult[T])
			return handler(ctx, r.v, r.ok)
		},
	}
}

// Send returns a clause that fires when v was handed to a receiver or placed
// into the channel buffer.
func Send[T any](ch *Channel[T], v T, handler func(ctx context.Context) error) SelectClause {
	return &clause{
		target: ch,
		param:  v,
		register: func(s *SelectInstance, c *clause) {
			ch.regSend(s, v)
		},
		process: func(param any, raw any) any {
			if raw.(sentResult).closed {
				panic(ErrSendClosedChannel)
			}
			return raw
		},
		run: func(ctx context.Context, processed any) error {
			return handler(ctx)
		},
	}
}

// Await returns a clause that fires when d is resolved.
func Await[T any](d *Deferred[T], handler func(ctx context.Context, v T, err error) error) SelectClause {
	return &clause{
		target: d,
		register: func(s *SelectInstance, c *clause) {
			d.regAwait(s)
		},
		run: func(ctx context.Context, processed any) error {
			r := processed.(awaitResult[T])
			return handler(ctx, r.v, r.err)
		},
	}
}

// Lock returns a clause that fires when the mutex was acquired. The handler
// runs with the lock held and is responsible for releasing it.
func Lock(m *Mutex, handler func(ctx context.Context) error) SelectClause {
	return &clause{
		target: m,
		register: func(s *SelectInstance, c *clause) {
			m.regLock(s)
		},
		run: func(ctx context.Context, processed any) error {
			return handler(ctx)
		},
	}
}

// OnTimeout returns a clause that fires once delay has elapsed on the timer
// service's clock. A non-positive delay resolves during registration.
func OnTimeout(ts *TimerService, delay time.Duration, handler func(ctx context.Context) error) SelectClause {
	t := &timeoutTarget{}
	return &clause{
		target: t,
		register: func(s *SelectInstance, c *clause) {
			ts.regTimeout(s, t, delay)
		},
		run: func(ctx context.Context, processed any) error {
			return handler(ctx)
		},
	}
}

// Default returns a clause that fires when no other clause resolved during
// registration. The select never suspends when a default clause is present.
func Default(handler func(ctx context.Context) error) SelectClause {
	c := &clause{
		register: func(s *SelectInstance, c *clause) {},
		run: func(ctx context.Context, processed any) error {
			return handler(ctx)
		},
		isDefault: true,
	}
	c.target = c
	return c
}
