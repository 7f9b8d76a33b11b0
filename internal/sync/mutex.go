package sync

import (
	"context"
	stdsync "sync"

	"github.com/rendezlib/go-rendez/internal/errors"
)

// lockAcquired is the raw rendezvous value handed to a lock clause.
type lockAcquired struct{}

// Mutex is a lock that select invocations can acquire as one of several
// clauses. Unlock hands ownership directly to the oldest waiter whose select
// still commits.
type Mutex struct {
	mu      stdsync.Mutex
	locked  bool
	waiters *waiterQueue
}

func NewMutex() *Mutex {
	return &Mutex{
		waiters: newWaiterQueue(),
	}
}

// Lock blocks until the mutex is acquired or ctx is cancelled.
func (m *Mutex) Lock(ctx context.Context) error {
	return Select(ctx, Lock(m, func(context.Context) error { return nil }))
}

// TryLock acquires the mutex if it is free.
func (m *Mutex) TryLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		return false
	}

	m.locked = true
	return true
}

// Unlock releases the mutex or transfers it to a waiter. Unlocking an
// unlocked mutex is a usage error.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.locked {
		panic(errors.NewUsageError("unlock of unlocked mutex"))
	}

	for {
		w, ok := m.waiters.dequeue()
		if !ok {
			break
		}
		if w.(*recvWaiter).s.TrySelect(m, lockAcquired{}) {
			// ownership handed over, stays locked
			return
		}
	}

	m.locked = false
}

// regLock is the registration function of lock clauses.
func (m *Mutex) regLock(s *SelectInstance) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.locked {
		m.locked = true
		s.SelectInRegistrationPhase(lockAcquired{})
		return
	}

	h := m.waiters.enqueue(&recvWaiter{s: s})
	s.InvokeOnCompletion(func() { h.Cancel() })
}
