package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health returns a health‑check endpoint used by load balancers and
// monitoring systems.  It reports 200 when the database answers and 503
// otherwise.  Redis is optional; its state is reported but never fails
// the check.
func Health(db *sql.DB, rdb *redis.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		body := echo.Map{"status": "ok", "db": "ok", "redis": "disabled"}
		status := http.StatusOK
		if err := db.PingContext(ctx); err != nil {
			body["status"], body["db"] = "degraded", "unreachable"
			status = http.StatusServiceUnavailable
		}
		if rdb != nil {
			body["redis"] = "ok"
			if err := rdb.Ping(ctx).Err(); err != nil {
				body["redis"] = "unreachable"
			}
		}
		return c.JSON(status, body)
	}
}
