package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"Mazraaty/storage/database"
	"Mazraaty/storage/mq"
	"Mazraaty/storage/redis"
)

// Healthz handles GET /v1/healthz. It reports per-dependency status so an
// operator can tell a broker outage from a database outage; any dependency
// down turns the overall status to degraded with a 503.
func Healthz(ctx context.Context, c *app.RequestContext) {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	checks := map[string]string{
		"database": "ok",
		"redis":    "ok",
		"rabbitmq": "ok",
	}
	healthy := true

	if sqlDB, err := database.DB().DB(); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else if err := sqlDB.PingContext(checkCtx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	}

	if err := redis.Client().Ping(checkCtx).Err(); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	}

	if conn := mq.Connection(); conn == nil || conn.IsClosed() {
		checks["rabbitmq"] = "connection closed"
		healthy = false
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}
