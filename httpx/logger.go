package httpx

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

// WithLogger attaches the request logger used by Error.
func WithLogger(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// LoggerFrom returns the request logger, or a no-op logger when none is set.
func LoggerFrom(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && log != nil {
		return log
	}
	return zap.NewNop()
}
