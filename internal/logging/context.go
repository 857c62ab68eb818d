package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey string

const loggerKey contextKey = "logger"

// ContextWithLogger stores a logger in the context for later retrieval by Ctx.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Ctx returns the logger stored in ctx, or the global logger if none was
// attached. Use this inside the decision engine and store so every log line
// carries the caller/action fields attached by the entry point.
func Ctx(ctx context.Context) *zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return &logger
	}
	l := Logger()
	return &l
}
