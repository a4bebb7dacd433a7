package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"Mazraaty/config"
	"Mazraaty/internal/cache"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/logger"
	"Mazraaty/pkg/response"
)

// ratelimitWindow is the fixed accounting window for ingress admission.
const ratelimitWindow = time.Second

// RateLimitMiddleware bounds submissions per tenant. Read endpoints are not
// limited; only the submit path mounts this. Redis being down fails open:
// dropping valid notifications is worse than briefly over-admitting.
func RateLimitMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if !config.Cfg.RateLimitEnabled {
			c.Next(ctx)
			return
		}

		tenantID, ok := GetTenantID(ctx, c)
		if !ok {
			c.Next(ctx)
			return
		}

		count, err := cache.IncrementWindow(ctx, tenantID, ratelimitWindow)
		if err != nil {
			logger.Logger.Warn("Rate limit check failed, failing open",
				zap.String("tenant_id", tenantID),
				zap.Error(err),
			)
			c.Next(ctx)
			return
		}

		limit := int64(config.Cfg.RateLimitRPS)
		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Response.Header.Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > limit {
			c.Response.Header.Set("Retry-After", "1")
			c.AbortWithStatus(consts.StatusTooManyRequests)
			response.Error(ctx, c, errors.NotificationRateLimit)
			return
		}

		c.Next(ctx)
	}
}
