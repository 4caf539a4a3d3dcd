package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/fieldserve/pingate"

// StartSpan opens a span named after a gate operation. Callers must end the
// returned span.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name)
}

// RecordValidationEvent annotates the active span and logs the outcome of a
// PIN validation ("granted", "invalid", "locked", "rate_limited", "error").
func RecordValidationEvent(ctx context.Context, outcome string, attemptsLeft int) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("pin.outcome", outcome),
		attribute.Int("pin.attempts_left", attemptsLeft),
	)
	slog.InfoContext(ctx, "pin validation", "outcome", outcome, "attempts_left", attemptsLeft)
}

// RecordStatusEvent annotates the active span with the result of a status check.
func RecordStatusEvent(ctx context.Context, locked bool, attemptsLeft int) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Bool("pin.locked", locked),
		attribute.Int("pin.attempts_left", attemptsLeft),
	)
}
