package sync

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Channel_BufferedSendReceive(t *testing.T) {
	ctx := context.Background()
	ch := NewBufferedChannel[string](2)

	require.NoError(t, ch.Send(ctx, "a"))
	require.NoError(t, ch.Send(ctx, "b"))

	v, ok, err := ch.Receive(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", v)

	v, ok, err = ch.Receive(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b", v)
}

func Test_Channel_TrySendRespectsCapacity(t *testing.T) {
	ch := NewBufferedChannel[int](1)

	require.True(t, ch.TrySend(1))
	require.False(t, ch.TrySend(2))

	v, ok := ch.TryReceive()
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok = ch.TryReceive()
	require.False(t, ok)
}

func Test_Channel_RendezvousUnbuffered(t *testing.T) {
	ctx := context.Background()
	ch := NewChannel[int]()

	go func() {
		require.NoError(t, ch.Send(ctx, 17))
	}()

	v, ok, err := ch.Receive(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 17, v)
}

func Test_Channel_SenderBlocksUntilReceiver(t *testing.T) {
	ctx := context.Background()
	ch := NewChannel[int]()

	sent := make(chan struct{})
	go func() {
		require.NoError(t, ch.Send(ctx, 1))
		close(sent)
	}()

	select {
	case <-sent:
		t.Fatal("send completed without receiver")
	case <-time.After(10 * time.Millisecond):
	}

	_, ok, err := ch.Receive(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	<-sent
}

func Test_Channel_CloseWakesReceivers(t *testing.T) {
	ctx := context.Background()
	ch := NewChannel[int]()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ok, err := ch.Receive(ctx)
		require.NoError(t, err)
		require.False(t, ok)
	}()

	time.Sleep(5 * time.Millisecond)
	ch.Close()
	<-done
}

func Test_Channel_ReceiveDrainsBufferBeforeClosed(t *testing.T) {
	ctx := context.Background()
	ch := NewBufferedChannel[int](2)
	require.True(t, ch.TrySend(1))
	ch.Close()

	v, ok, err := ch.Receive(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok, err = ch.Receive(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func Test_Channel_SendOnClosedPanics(t *testing.T) {
	ch := NewChannel[int]()
	ch.Close()

	require.PanicsWithError(t, "send on closed channel", func() {
		_ = ch.Send(context.Background(), 1)
	})
}

func Test_Channel_CloseOfClosedPanics(t *testing.T) {
	ch := NewChannel[int]()
	ch.Close()

	require.PanicsWithError(t, "close of closed channel", func() {
		ch.Close()
	})
}

func Test_Channel_SelectAcrossTwoChannels(t *testing.T) {
	ctx := context.Background()
	ch1 := NewChannel[int]()
	ch2 := NewChannel[int]()

	go func() {
		require.NoError(t, ch2.Send(ctx, 2))
	}()

	var from int
	err := Select(ctx,
		Receive(ch1, func(_ context.Context, v int, _ bool) error {
			from = 1
			return nil
		}),
		Receive(ch2, func(_ context.Context, v int, _ bool) error {
			from = v
			return nil
		}),
	)

	require.NoError(t, err)
	require.Equal(t, 2, from)
}

func Test_Channel_SelectSendClause(t *testing.T) {
	ctx := context.Background()
	ch := NewChannel[int]()

	got := make(chan int, 1)
	go func() {
		v, _, err := ch.Receive(ctx)
		require.NoError(t, err)
		got <- v
	}()

	time.Sleep(5 * time.Millisecond)

	var sent bool
	err := Select(ctx,
		Send(ch, 5, func(context.Context) error {
			sent = true
			return nil
		}),
	)

	require.NoError(t, err)
	require.True(t, sent)
	require.Equal(t, 5, <-got)
}

func Test_Channel_TwoSendersRaceOneReceiver(t *testing.T) {
	ctx := context.Background()
	ch := NewChannel[int]()

	var wg stdsync.WaitGroup
	wg.Add(2)
	for _, v := range []int{1, 2} {
		go func(v int) {
			defer wg.Done()
			require.NoError(t, ch.Send(ctx, v))
		}(v)
	}

	// exactly one send satisfies the first receive, the loser stays
	// registered and completes on the second receive
	first, ok, err := ch.Receive(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	second, ok, err := ch.Receive(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	wg.Wait()
	require.ElementsMatch(t, []int{1, 2}, []int{first, second})
}

func Test_Channel_ManyConcurrentSendersAndReceivers(t *testing.T) {
	ctx := context.Background()
	ch := NewBufferedChannel[int](4)

	const n = 100
	var wg stdsync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			require.NoError(t, ch.Send(ctx, i))
		}(i)
	}

	seen := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		v, ok, err := ch.Receive(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.False(t, seen[v])
		seen[v] = true
	}

	wg.Wait()
	require.Len(t, seen, n)
}

func Test_Channel_CancelledSelectLeavesNoWaiter(t *testing.T) {
	ch := NewChannel[int]()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Select(ctx, Receive(ch, func(context.Context, int, bool) error { return nil }))
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	require.False(t, ch.TrySend(1))
}
