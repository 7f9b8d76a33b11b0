package sync

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Mutex_LockUnlock(t *testing.T) {
	m := NewMutex()

	require.NoError(t, m.Lock(context.Background()))
	require.False(t, m.TryLock())

	m.Unlock()
	require.True(t, m.TryLock())
	m.Unlock()
}

func Test_Mutex_UnlockOfUnlockedPanics(t *testing.T) {
	m := NewMutex()

	require.PanicsWithError(t, "unlock of unlocked mutex", func() {
		m.Unlock()
	})
}

func Test_Mutex_HandoffToWaiter(t *testing.T) {
	ctx := context.Background()
	m := NewMutex()
	require.NoError(t, m.Lock(ctx))

	acquired := make(chan struct{})
	go func() {
		require.NoError(t, m.Lock(ctx))
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("lock acquired while held")
	case <-time.After(10 * time.Millisecond):
	}

	m.Unlock()
	<-acquired

	// ownership was transferred, not released
	require.False(t, m.TryLock())
	m.Unlock()
}

func Test_Mutex_SelectLockClause(t *testing.T) {
	ctx := context.Background()
	m := NewMutex()

	var held bool
	err := Select(ctx, Lock(m, func(context.Context) error {
		held = true
		return nil
	}))

	require.NoError(t, err)
	require.True(t, held)
	require.False(t, m.TryLock())
	m.Unlock()
}

func Test_Mutex_CancelledWaiterDoesNotAcquire(t *testing.T) {
	m := NewMutex()
	require.NoError(t, m.Lock(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.Lock(ctx)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	// the cancelled waiter was removed; unlock leaves the mutex free
	m.Unlock()
	require.True(t, m.TryLock())
	m.Unlock()
}

func Test_Mutex_ContendedCounter(t *testing.T) {
	ctx := context.Background()
	m := NewMutex()

	counter := 0
	const n = 50
	var wg stdsync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			require.NoError(t, m.Lock(ctx))
			counter++
			m.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, n, counter)
}

func Test_Mutex_LockVersusChannelSelect(t *testing.T) {
	ctx := context.Background()
	m := NewMutex()
	ch := NewChannel[int]()
	require.NoError(t, m.Lock(ctx))

	go func() {
		require.NoError(t, ch.Send(ctx, 1))
	}()

	// the lock is held, the channel is ready: the channel clause wins
	var won string
	err := Select(ctx,
		Lock(m, func(context.Context) error {
			won = "lock"
			return nil
		}),
		Receive(ch, func(context.Context, int, bool) error {
			won = "receive"
			return nil
		}),
	)

	require.NoError(t, err)
	require.Equal(t, "receive", won)
	m.Unlock()

	// losing the select removed the lock waiter
	require.True(t, m.TryLock())
	m.Unlock()
}
