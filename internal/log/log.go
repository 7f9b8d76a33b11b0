package log

import (
	"context"
	"log/slog"
)

const (
	NamespaceKey = "rendez"

	SelectIDKey    = NamespaceKey + ".select.id"
	ClauseCountKey = NamespaceKey + ".select.clauses"
	ClauseIndexKey = NamespaceKey + ".select.clause_index"
	CancelledKey   = NamespaceKey + ".select.cancelled"

	// DelayKey is the delay a timer was scheduled with
	DelayKey = NamespaceKey + ".timer.delay_ms"
)

type key int

var loggerCtxKey key

// WithLogger returns a context carrying the given logger. Select invocations
// and timer services pick it up for debug logging.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

// FromContext returns the logger carried by ctx, or a discarding logger.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerCtxKey).(*slog.Logger); ok {
		return l
	}

	return Discard()
}

func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
