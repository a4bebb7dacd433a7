package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"Mazraaty/pkg/correlation"
)

// CorrelationMiddleware adopts a sanitized inbound correlation id, minting a
// fresh one when the request carried none (or an unusable one). The effective
// id is echoed on the response and travels in ctx for the whole pipeline.
func CorrelationMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := correlation.Sanitize(string(c.GetHeader(correlation.HeaderCorrelationID)))
		if id == "" {
			id = correlation.Sanitize(string(c.GetHeader(correlation.HeaderRequestID)))
		}
		if id == "" {
			id = correlation.Mint()
		}

		c.Response.Header.Set(correlation.HeaderCorrelationID, id)
		ctx = correlation.WithCorrelationID(ctx, id)

		// gateways forward the acting user here; the JWT claim, when one is
		// present, overwrites this downstream
		if userID := correlation.Sanitize(string(c.GetHeader(correlation.HeaderUserID))); userID != "" {
			ctx = correlation.WithUserID(ctx, userID)
		}

		c.Next(ctx)
	}
}
