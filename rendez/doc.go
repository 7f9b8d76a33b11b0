// Package rendez provides a biased multi-way rendezvous primitive: a select
// over heterogeneous awaitable events such as channel operations, deferred
// results, lock acquisition and timeouts.
//
// A select invocation registers its clauses in order and commits to exactly
// one of them. Clauses that can resolve synchronously do so during
// registration, in which case later clauses are never registered. Otherwise
// the invocation suspends until one of the awaited targets performs a
// rendezvous or the context is cancelled; either way the non-selected
// clauses are cleaned up before the winning continuation runs.
//
//	ch := rendez.NewChannel[int]()
//	timers := rendez.NewTimerService(clock.New())
//
//	err := rendez.Select(ctx,
//		rendez.Receive(ch, func(ctx context.Context, v int, ok bool) error {
//			// handle v
//			return nil
//		}),
//		rendez.OnTimeout(timers, time.Second, func(ctx context.Context) error {
//			return ErrTimedOut
//		}),
//	)
package rendez
