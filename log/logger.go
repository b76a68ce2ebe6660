package log

import "context"

// Logger is the structured logging interface used across the proxy. The
// context is passed so adapters can attach request-scoped data such as trace
// identifiers.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	Fatal(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	// With returns a new logger with the fields added to every entry.
	With(fields map[string]interface{}) Logger
}
