package log

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// zerologAdapter implements Logger on top of zerolog.
type zerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter creates a Logger backed by zerolog, writing to stderr.
// With pretty enabled, output goes through the console writer.
func NewZerologAdapter(level zerolog.Level, pretty bool) Logger {
	var zlog zerolog.Logger
	if pretty {
		zlog = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(level).
			With().
			Timestamp().
			Logger()
	} else {
		zlog = zerolog.New(os.Stderr).
			Level(level).
			With().
			Timestamp().
			Logger()
	}
	return &zerologAdapter{logger: zlog}
}

// addTraceInfo attaches trace_id and span_id when the context carries a
// recording span.
func addTraceInfo(ctx context.Context, event *zerolog.Event) *zerolog.Event {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		event = event.Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String())
	}
	return event
}

func (z *zerologAdapter) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	event := addTraceInfo(ctx, z.logger.Debug())
	for _, f := range fields {
		event = event.Fields(f)
	}
	event.Msg(msg)
}

func (z *zerologAdapter) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	event := addTraceInfo(ctx, z.logger.Info())
	for _, f := range fields {
		event = event.Fields(f)
	}
	event.Msg(msg)
}

func (z *zerologAdapter) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	event := addTraceInfo(ctx, z.logger.Warn())
	for _, f := range fields {
		event = event.Fields(f)
	}
	event.Msg(msg)
}

func (z *zerologAdapter) Error(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	event := addTraceInfo(ctx, z.logger.Error().Err(err))
	for _, f := range fields {
		event = event.Fields(f)
	}
	event.Msg(msg)
}

func (z *zerologAdapter) Fatal(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	event := addTraceInfo(ctx, z.logger.Fatal().Err(err)) // zerolog.Fatal() exits the process
	for _, f := range fields {
		event = event.Fields(f)
	}
	event.Msg(msg)
}

func (z *zerologAdapter) With(fields map[string]interface{}) Logger {
	return &zerologAdapter{logger: z.logger.With().Fields(fields).Logger()}
}
