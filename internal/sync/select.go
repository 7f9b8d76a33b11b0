package sync

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rendezlib/go-rendez/internal/errors"
	"github.com/rendezlib/go-rendez/internal/log"
	"github.com/rendezlib/go-rendez/internal/tracing"
)

type stateKind uint8

const (
	// owner is still running clause registration functions
	stateRegistering stateKind = iota
	// registration finished, owner is suspended
	stateWaiting
	// chain of rendezvous attempts that arrived before the owner reached
	// stateWaiting, kept so they can be re-examined instead of lost
	statePending
	// terminal, records the winning target
	stateDone
)

// stateNode is the value held by the select state cell. The registering and
// waiting nodes are shared singletons; pending and done nodes are allocated
// per transition and immutable once published, so a CAS loop can re-read and
// retry without tearing.
type stateNode struct {
	kind   stateKind
	target any
	next   *stateNode // pending only; nil when the chain bottoms out at registration
}

var (
	nodeRegistering = &stateNode{kind: stateRegistering}
	nodeWaiting     = &stateNode{kind: stateWaiting}
)

// cancelledToken is the target recorded when cancellation wins the
// rendezvous race.
type cancelledToken struct{}

var selectCancelled = &cancelledToken{}

// failedToken is the target recorded when a clause registration function
// panics. It matches no clause, so later rendezvous attempts fail fast
// instead of growing the pending chain of a select that will never drain it.
type failedToken struct{}

var registrationFailed = &failedToken{}

// resultBox wraps a raw rendezvous result so that the nil pointer can serve
// as the "no result yet" sentinel without reserving any payload value.
type resultBox struct {
	v any
}

// TrySelectResult is the detailed outcome of a rendezvous attempt.
type TrySelectResult uint8

const (
	// the attempt committed the select and resumed its owner
	TrySelectSuccess TrySelectResult = iota
	// registration is still in progress; the attempt was recorded and the
	// select will retry the clause, the caller must treat the rendezvous
	// as failed
	TrySelectReregister
	// the select already committed to another target
	TrySelectAlreadySelected
)

// SelectInstance coordinates a single select invocation. The owning goroutine
// drives registration, suspension and cleanup; clause providers running on
// other goroutines interact with it through TrySelect. The state cell and the
// result slot are the only fields shared across goroutines, both updated by
// single-word compare-and-swap.
type SelectInstance struct {
	id      string
	state   atomic.Pointer[stateNode]
	result  atomic.Pointer[resultBox]
	resumed chan struct{}

	clauses []*clause
	current *clause // clause whose registration function is running

	logger *slog.Logger
}

// Select blocks until exactly one clause commits, runs its continuation and
// returns the continuation's error. Completion hooks of all other registered
// clauses run before the continuation. If ctx is cancelled while the
// invocation is suspended, all hooks run and ctx.Err() is returned; a
// rendezvous racing the cancellation yields exactly one of the two outcomes.
func Select(ctx context.Context, clauses ...SelectClause) error {
	if len(clauses) == 0 {
		panic(errors.NewUsageError("select: no clauses"))
	}

	s := newSelectInstance(ctx, clauses)

	ctx, span := tracing.Start(ctx, "rendez.select",
		attribute.String(log.SelectIDKey, s.id),
		attribute.Int(log.ClauseCountKey, len(s.clauses)))
	defer span.End()

	err := s.doSelect(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

func newSelectInstance(ctx context.Context, scs []SelectClause) *SelectInstance {
	s := &SelectInstance{
		id:      uuid.NewString(),
		resumed: make(chan struct{}),
		clauses: make([]*clause, 0, len(scs)),
		logger:  log.FromContext(ctx),
	}

	s.state.Store(nodeRegistering)

	for _, sc := range scs {
		c := sc.(*clause)
		for _, prev := range s.clauses {
			if prev.target == c.target {
				panic(errors.NewUsageError("select: two clauses target the same object"))
			}
		}
		c.index = len(s.clauses)
		s.clauses = append(s.clauses, c)
	}

	return s
}

func (s *SelectInstance) doSelect(ctx context.Context) error {
	winner, raw, err := s.selectClause(ctx)

	// Cleanup is unconditional; it runs before the continuation and also on
	// cancellation.
	s.cleanup(winner)

	if err != nil {
		s.logger.Debug("select cancelled",
			slog.String(log.SelectIDKey, s.id),
			slog.Bool(log.CancelledKey, true))
		return err
	}

	s.logger.Debug("select committed",
		slog.String(log.SelectIDKey, s.id),
		slog.Int(log.ClauseIndexKey, winner.index))

	processed := raw
	if winner.process != nil {
		processed = winner.process(winner.param, raw)
	}

	return s.runContinuation(ctx, winner, processed)
}

func (s *SelectInstance) runContinuation(ctx context.Context, winner *clause, processed any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewPanicError(r)
		}
	}()

	return winner.run(ctx, processed)
}

// selectClause performs the registration and waiting phases and returns the
// winning clause with the raw rendezvous result, or a cancellation error.
// A panicking registration function poisons the state and releases every
// waiter installed so far before the panic propagates.
func (s *SelectInstance) selectClause(ctx context.Context) (*clause, any, error) {
	defer func() {
		if r := recover(); r != nil {
			s.commit(registrationFailed)
			s.cleanup(nil)
			panic(r)
		}
	}()

	// Registration runs in clause order; the first synchronous rendezvous
	// wins and stops further registration.
	for _, c := range s.clauses {
		s.registerClause(c)

		if r := s.takeResult(); r != nil {
			s.commit(c.target)
			return c, r.v, nil
		}
	}

	for {
		st := s.state.Load()

		switch st.kind {
		case statePending:
			// Pop the recorded attempt and retry its clause. The waiter the
			// attempt consumed is gone, so re-registration is required to
			// avoid a lost wakeup.
			replace := st.next
			if replace == nil {
				replace = nodeRegistering
			}
			if !s.state.CompareAndSwap(st, replace) {
				continue
			}

			c := s.findClause(st.target)
			s.registerClause(c)

			if r := s.takeResult(); r != nil {
				s.commit(c.target)
				return c, r.v, nil
			}

		case stateRegistering:
			if s.defaultClause() != nil {
				d := s.defaultClause()
				if s.state.CompareAndSwap(st, &stateNode{kind: stateDone, target: d.target}) {
					return d, nil, nil
				}
				continue
			}

			if !s.state.CompareAndSwap(st, nodeWaiting) {
				continue
			}

			if err := s.suspend(ctx); err != nil {
				return nil, nil, err
			}

		case stateDone:
			// An external rendezvous committed; the result is published
			// before the resume signal.
			<-s.resumed
			r := s.takeResult()
			return s.findClause(st.target), r.v, nil

		case stateWaiting:
			// only ever set by this goroutine immediately before suspending
			panic("select: observed waiting state in owner loop")
		}
	}
}

func (s *SelectInstance) registerClause(c *clause) {
	s.current = c
	c.complete = nil
	c.register(s, c)
	s.current = nil
}

// suspend is the engine's single blocking point. Cancellation must go through
// the state machine so that it is exclusive with a concurrent rendezvous: if
// the cancel CAS loses, the committed value is consumed instead.
func (s *SelectInstance) suspend(ctx context.Context) error {
	s.logger.Debug("select suspending",
		slog.String(log.SelectIDKey, s.id),
		slog.Int(log.ClauseCountKey, len(s.clauses)))

	select {
	case <-s.resumed:
		return nil
	case <-ctx.Done():
		if s.tryCancel() {
			return ctx.Err()
		}

		// a rendezvous won the race; take its value
		<-s.resumed
		return nil
	}
}

func (s *SelectInstance) tryCancel() bool {
	return s.state.CompareAndSwap(nodeWaiting, &stateNode{kind: stateDone, target: selectCancelled})
}

// TrySelect attempts an asynchronous rendezvous with this select on behalf of
// target, handing over result. It returns true only if the attempt committed
// the select.
func (s *SelectInstance) TrySelect(target any, result any) bool {
	return s.TrySelectDetailed(target, result) == TrySelectSuccess
}

// TrySelectDetailed is TrySelect with the registration-race outcome made
// visible. Callers treat TrySelectReregister as a failed rendezvous; the
// select re-runs the clause's registration function once its own
// registration phase is over, so the attempt is never silently dropped.
func (s *SelectInstance) TrySelectDetailed(target any, result any) TrySelectResult {
	for {
		st := s.state.Load()

		switch st.kind {
		case stateDone:
			return TrySelectAlreadySelected

		case stateWaiting:
			if s.state.CompareAndSwap(st, &stateNode{kind: stateDone, target: target}) {
				s.result.Store(&resultBox{v: result})
				close(s.resumed)
				return TrySelectSuccess
			}

		default:
			// Registration still in progress: record the attempt as the new
			// head of the pending chain.
			var next *stateNode
			if st.kind == statePending {
				next = st
			}
			if s.state.CompareAndSwap(st, &stateNode{kind: statePending, target: target, next: next}) {
				return TrySelectReregister
			}
		}
	}
}

// SelectInRegistrationPhase records a synchronous rendezvous performed by the
// clause registration function currently running on the owner goroutine.
func (s *SelectInstance) SelectInRegistrationPhase(result any) {
	s.result.Store(&resultBox{v: result})
}

// InvokeOnCompletion installs the cleanup hook for the clause currently being
// registered. The hook runs if the clause does not win.
func (s *SelectInstance) InvokeOnCompletion(hook func()) {
	if s.current == nil {
		panic(errors.NewUsageError("select: InvokeOnCompletion outside clause registration"))
	}

	s.current.complete = hook
}

// commit moves the state to done on behalf of the owner. Displaced pending
// attempts already failed for their callers, so they need no further
// handling.
func (s *SelectInstance) commit(target any) {
	done := &stateNode{kind: stateDone, target: target}
	for {
		st := s.state.Load()
		if s.state.CompareAndSwap(st, done) {
			return
		}
	}
}

func (s *SelectInstance) takeResult() *resultBox {
	return s.result.Swap(nil)
}

func (s *SelectInstance) findClause(target any) *clause {
	for _, c := range s.clauses {
		if c.target == target {
			return c
		}
	}

	panic(errors.NewUsageError("select: rendezvous from unknown target"))
}

func (s *SelectInstance) defaultClause() *clause {
	for _, c := range s.clauses {
		if c.isDefault {
			return c
		}
	}

	return nil
}

// cleanup runs completion hooks of all non-winning clauses that installed
// one. Hooks are claim-idempotent: a hook whose waiter was already consumed
// by a recorded rendezvous attempt degrades to a no-op inside the cell
// array, so no matching against the pending chain is needed here.
func (s *SelectInstance) cleanup(winner *clause) {
	for _, c := range s.clauses {
		if c == winner || c.complete == nil {
			continue
		}

		c.complete()
		c.complete = nil
	}
}
