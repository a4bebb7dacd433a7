package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"Mazraaty/internal/middleware"
	"Mazraaty/internal/service"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/response"
)

// ListDeadLetters handles GET /v1/dlq. Supports filtering by error_kind.
func ListDeadLetters(ctx context.Context, c *app.RequestContext) {
	tenantID, ok := middleware.GetTenantID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	errorKind := c.Query("error_kind")
	limit, offset := pagination(c)

	letters, total, err := service.Ingress().DeadLetters(ctx, tenantID, errorKind, limit, offset)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.SuccessWithMeta(ctx, c, letters, map[string]interface{}{
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
