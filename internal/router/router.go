package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/team-presence/internal/handler"
	"github.com/iliyamo/team-presence/internal/middleware"
	"github.com/iliyamo/team-presence/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}

// RegisterAuth registers all authentication‑related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while reading and editing /v1/me requires a valid access token.
// limiter guards the credential endpoints against brute force.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout does not require JWT authentication: a refresh token in the
	// body revokes that session, a bearer token alone revokes all of them.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(string(model.RoleAdmin), string(model.RoleEmployee)),
	)
	auth.GET("/me", a.Me)
	auth.PATCH("/me", a.UpdateMe)
}
