package rendez

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/rendezlib/go-rendez/internal/log"
	"github.com/rendezlib/go-rendez/internal/tracing"
)

// WithLogger returns a context carrying a logger. Select invocations and
// timer services created from this context log debug information to it.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return log.WithLogger(ctx, logger)
}

// WithTracer returns a context carrying an OpenTelemetry tracer. Select
// invocations started from this context record one span each.
func WithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	return tracing.WithTracer(ctx, tracer)
}
