package rendez

import (
	"github.com/benbjohnson/clock"

	"github.com/rendezlib/go-rendez/internal/sync"
)

type Channel[T any] = sync.Channel[T]

type Deferred[T any] = sync.Deferred[T]

type Mutex = sync.Mutex

type TimerService = sync.TimerService

// ErrSendClosedChannel is the panic value raised when sending on a closed
// channel.
var ErrSendClosedChannel = sync.ErrSendClosedChannel

// NewChannel creates an unbuffered (rendezvous) channel.
func NewChannel[T any]() *Channel[T] {
	return sync.NewChannel[T]()
}

// NewBufferedChannel creates a channel with the given buffer capacity.
func NewBufferedChannel[T any](size int) *Channel[T] {
	return sync.NewBufferedChannel[T](size)
}

// NewDeferred creates an unresolved deferred result.
func NewDeferred[T any]() *Deferred[T] {
	return sync.NewDeferred[T]()
}

// NewMutex creates an unlocked mutex.
func NewMutex() *Mutex {
	return sync.NewMutex()
}

// NewTimerService creates a timer service on the given clock. Production code
// passes clock.New(); tests pass clock.NewMock().
func NewTimerService(c clock.Clock) *TimerService {
	return sync.NewTimerService(c)
}
