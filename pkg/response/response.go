package response

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"Mazraaty/pkg/errors"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse is the uniform success envelope.
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

func errorToHTTPStatus(err error) int {
	def, ok := err.(errors.Definition)
	if !ok {
		return http.StatusInternalServerError
	}

	switch def.Code {
	case "RATE_LIMITED":
		return http.StatusTooManyRequests // 429
	case "INVALID_REQUEST", "UNKNOWN_KIND", "UNKNOWN_TEMPLATE", "UNKNOWN_CHANNEL",
		"INVALID_TARGET", "INVALID_TTL":
		return http.StatusBadRequest // 400
	case "PAYLOAD_TOO_LARGE":
		return http.StatusRequestEntityTooLarge // 413
	case "UNAUTHORIZED":
		return http.StatusUnauthorized // 401
	case "TENANT_MISMATCH", "TENANT_SCOPE_VIOLATION":
		return http.StatusForbidden // 403
	case "NOTIFICATION_NOT_FOUND":
		return http.StatusNotFound // 404
	case "DEPENDENCY_DOWN":
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

// Error writes the error envelope with the mapped status code.
func Error(ctx context.Context, c *app.RequestContext, err error) {
	ErrorWithDetails(ctx, c, err, nil)
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	statusCode := errorToHTTPStatus(err)

	var code, message string
	if def, ok := err.(errors.Definition); ok {
		code = def.Code
		message = def.Message
	} else {
		code = "INTERNAL_ERROR"
		message = err.Error()
	}

	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

func Accepted(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusAccepted, SuccessResponse{
		Data: data,
	})
}

func SuccessWithMeta(ctx context.Context, c *app.RequestContext, data interface{}, meta map[string]interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		},
	})
}
