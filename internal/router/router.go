package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"Mazraaty/internal/handler"
	"Mazraaty/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.CorrelationMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	// liveness probe stays unauthenticated and unversioned; the /v1 alias
	// remains for probes configured against the API base path
	h.GET("/healthz", handler.Healthz)

	v1 := h.Group("/v1")
	v1.GET("/healthz", handler.Healthz)

	notifications := v1.Group("/notifications")
	notifications.Use(middleware.AuthMiddleware())
	notifications.Use(middleware.TenantMiddleware())
	{
		notifications.POST("", middleware.RateLimitMiddleware(), handler.SubmitNotification)
		notifications.GET("/:id", handler.GetNotification)
		notifications.GET("/:id/attempts", handler.ListAttempts)
		notifications.DELETE("/:id", handler.CancelNotification)
	}

	dlq := v1.Group("/dlq")
	dlq.Use(middleware.AuthMiddleware())
	dlq.Use(middleware.TenantMiddleware())
	{
		dlq.GET("", handler.ListDeadLetters)
	}
}
