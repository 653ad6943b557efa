package router

// This file registers administrator routes: account management and the
// monthly report.  They are separate from the employee routes to keep
// the role requirement in one place.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/team-presence/internal/handler"
	"github.com/iliyamo/team-presence/internal/middleware"
	"github.com/iliyamo/team-presence/internal/model"
)

// RegisterAdmin mounts ADMIN-only endpoints under /v1.  The handlers
// re-check the role against the store as well.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, p *handler.PresenceHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(string(model.RoleAdmin)),
		limiter,
	)
	g.GET("/admin/users", a.ListUsers)
	g.PATCH("/admin/users/:id", a.UpdateUser)
	g.PUT("/admin/users/:id/role", a.SetRole)
	g.GET("/reports/monthly", p.Report)
}
