package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/team-presence/internal/handler"
	"github.com/iliyamo/team-presence/internal/middleware"
	"github.com/iliyamo/team-presence/internal/model"
)

// EmployeeHandlers are the handlers behind the routes every signed-in
// user may call.
type EmployeeHandlers struct {
	Locations *handler.LocationHandler
	Checkins  *handler.CheckinHandler
	Presence  *handler.PresenceHandler
	Stream    *handler.WSHandler
}

// RegisterEmployee registers the ledger, check-in and presence endpoints
// under /v1.  All routes require a valid JWT with the ADMIN or EMPLOYEE
// role.  Read endpoints go through the response cache; the websocket
// stream is mounted outside it since a hijacked connection cannot be
// captured.
func RegisterEmployee(e *echo.Echo, h EmployeeHandlers, jwtSecret string, limiter, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(string(model.RoleAdmin), string(model.RoleEmployee)),
		limiter,
	)

	// ---- Location ledger ----
	g.GET("/locations", h.Locations.List, cache)
	g.PUT("/locations/:date", h.Locations.Put)
	g.DELETE("/locations/:date", h.Locations.Delete)

	// ---- Office check-ins ----
	g.GET("/checkins", h.Checkins.List, cache)
	g.POST("/checkins", h.Checkins.Create)
	g.DELETE("/checkins/:date", h.Checkins.Cancel)
	g.POST("/checkins/:id/validate", h.Checkins.Validate)

	// ---- Presence views ----
	g.GET("/presence/week", h.Presence.Week, cache)
	g.GET("/presence/month", h.Presence.Month, cache)
	g.GET("/presence/daily", h.Presence.Daily, cache)
	g.GET("/presence/office", h.Presence.Office, cache)

	// ---- Realtime ----
	if h.Stream != nil {
		g.GET("/ws", h.Stream.Stream)
	}
}
