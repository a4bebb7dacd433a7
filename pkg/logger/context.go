package logger

import (
	"context"

	"go.uber.org/zap"

	"Mazraaty/pkg/correlation"
)

// With returns the global logger enriched with the identity fields carried in
// ctx. Every log record on the request path must go through this so that
// correlation_id survives goroutine and queue hops.
func With(ctx context.Context) *zap.Logger {
	l := Logger
	if id := correlation.CorrelationID(ctx); id != "" {
		l = l.With(zap.String("correlation_id", id))
	}
	if id := correlation.TenantID(ctx); id != "" {
		l = l.With(zap.String("tenant_id", id))
	}
	if id := correlation.UserID(ctx); id != "" {
		l = l.With(zap.String("user_id", id))
	}
	return l
}

// Event logs a short snake_case pipeline event at info level.
func Event(ctx context.Context, event string, fields ...zap.Field) {
	With(ctx).Info(event, append(fields, zap.String("event", event))...)
}

// EventError logs a pipeline event at error level with its error kind.
func EventError(ctx context.Context, event string, err error, fields ...zap.Field) {
	With(ctx).Error(event,
		append(fields,
			zap.String("event", event),
			zap.Error(err),
		)...)
}
