package logger

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type contextKey string

const loggerKey contextKey = "logger"

// echoKey is where Middleware stashes the request-scoped logger on the
// Echo context.
const echoKey = "logger"

// FromContext returns the logger stored in ctx. Callers outside a
// request scope (weather sync workers, startup code) get the process
// logger instead, so logging never needs a nil check.
func FromContext(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return log
	}
	return GetLogger()
}

// WithContext attaches a logger to ctx for code that runs past the
// HTTP layer, keeping the request_id on every line it emits.
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromEcho returns the request-scoped logger set by Middleware, or the
// process logger when the route skipped it (health, metrics).
func FromEcho(c echo.Context) *zap.Logger {
	if log, ok := c.Get(echoKey).(*zap.Logger); ok {
		return log
	}
	return GetLogger()
}
