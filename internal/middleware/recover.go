package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"Mazraaty/config"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/logger"
	"Mazraaty/pkg/response"
)

// RecoverMiddleware turns handler panics into a 500 envelope instead of a
// dropped connection. The stack goes to the log, never to the client in
// production.
func RecoverMiddleware() app.HandlerFunc {
	isProduction := config.Cfg.IsProduction()

	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				stack := debug.Stack()
				logger.With(ctx).Error("panic_recovered",
					zap.String("event", "panic_recovered"),
					zap.String("panic", fmt.Sprintf("%v", err)),
					zap.String("path", string(c.Path())),
					zap.String("method", string(c.Method())),
					zap.ByteString("stack", stack),
				)

				errDef := errors.Definition{
					Code:    "INTERNAL_ERROR",
					Message: "Internal server error",
				}
				if !isProduction {
					errDef.Message = fmt.Sprintf("Internal error: %v", err)
				}
				response.Error(ctx, c, errDef)
			}
		}()

		c.Next(ctx)
	}
}
