package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"Mazraaty/internal/middleware"
	"Mazraaty/internal/model/dto"
	"Mazraaty/internal/service"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/response"
)

// SubmitNotification handles POST /v1/notifications. Admission is
// asynchronous: a 202 means the notification is durably recorded and the
// resolver will expand it, not that anything was delivered yet.
func SubmitNotification(ctx context.Context, c *app.RequestContext) {
	tenantID, ok := middleware.GetTenantID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	var req dto.SubmitNotificationRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	resp, err := service.Ingress().Submit(ctx, tenantID, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	if resp.Status == dto.SubmitStatusDuplicate {
		// idempotent replay, return the original admission
		response.Success(ctx, c, resp)
		return
	}
	response.Accepted(ctx, c, resp)
}

// CancelNotification handles DELETE /v1/notifications/:id. Repeat calls are
// idempotent and return the current rollup either way.
func CancelNotification(ctx context.Context, c *app.RequestContext) {
	tenantID, ok := middleware.GetTenantID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	publicID := c.Param("id")
	if publicID == "" {
		response.Error(ctx, c, errors.InvalidRequest)
		return
	}

	_, cancelled, err := service.Ingress().Cancel(ctx, tenantID, publicID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	rollup, err := service.Ingress().Rollup(ctx, tenantID, publicID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.SuccessWithMeta(ctx, c, rollup, map[string]interface{}{
		"cancelled": cancelled,
	})
}

// GetNotification handles GET /v1/notifications/:id, the delivery rollup.
func GetNotification(ctx context.Context, c *app.RequestContext) {
	tenantID, ok := middleware.GetTenantID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	publicID := c.Param("id")
	if publicID == "" {
		response.Error(ctx, c, errors.InvalidRequest)
		return
	}

	resp, err := service.Ingress().Rollup(ctx, tenantID, publicID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, resp)
}

// ListAttempts handles GET /v1/notifications/:id/attempts.
func ListAttempts(ctx context.Context, c *app.RequestContext) {
	tenantID, ok := middleware.GetTenantID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	publicID := c.Param("id")
	if publicID == "" {
		response.Error(ctx, c, errors.InvalidRequest)
		return
	}

	limit, offset := pagination(c)

	attempts, total, err := service.Ingress().Attempts(ctx, tenantID, publicID, limit, offset)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.SuccessWithMeta(ctx, c, attempts, map[string]interface{}{
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// pagination reads limit/offset query parameters with sane bounds.
func pagination(c *app.RequestContext) (int, int) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}

	offset, err := strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
