package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/team-presence/internal/repository"
	"github.com/iliyamo/team-presence/internal/service"
)

// PresenceHandler serves the read-model views.
type PresenceHandler struct {
	Users    *repository.UserRepo
	Presence *service.Presence
}

func NewPresenceHandler(users *repository.UserRepo, p *service.Presence) *PresenceHandler {
	if users == nil || p == nil {
		panic("nil dependency passed to NewPresenceHandler")
	}
	return &PresenceHandler{Users: users, Presence: p}
}

// Week handles GET /v1/presence/week?offset=N.
func (h *PresenceHandler) Week(c echo.Context) error {
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return badRequest(c, "offset must be an integer")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	u, err := currentUser(ctx, c, h.Users)
	if err != nil {
		return respondError(c, err)
	}
	grid, err := h.Presence.Week(ctx, service.ActorFromUser(u), offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, grid)
}

// Month handles GET /v1/presence/month?offset=N&grouped=true.
func (h *PresenceHandler) Month(c echo.Context) error {
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return badRequest(c, "offset must be an integer")
	}
	grouped := false
	if s := c.QueryParam("grouped"); s != "" {
		if grouped, err = strconv.ParseBool(s); err != nil {
			return badRequest(c, "grouped must be a boolean")
		}
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	u, err := currentUser(ctx, c, h.Users)
	if err != nil {
		return respondError(c, err)
	}
	grid, err := h.Presence.Month(ctx, service.ActorFromUser(u), offset, grouped)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, grid)
}

// Daily handles GET /v1/presence/daily?date=YYYY-MM-DD.
func (h *PresenceHandler) Daily(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if _, err := currentUser(ctx, c, h.Users); err != nil {
		return respondError(c, err)
	}
	snap, err := h.Presence.Daily(ctx, c.QueryParam("date"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// Office handles GET /v1/presence/office?date=YYYY-MM-DD.
func (h *PresenceHandler) Office(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if _, err := currentUser(ctx, c, h.Users); err != nil {
		return respondError(c, err)
	}
	entries, err := h.Presence.Office(ctx, c.QueryParam("date"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

// Report handles GET /v1/reports/monthly?month=YYYY-MM (admin only).
func (h *PresenceHandler) Report(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if _, err := currentAdmin(ctx, c, h.Users); err != nil {
		return respondError(c, err)
	}
	report, err := h.Presence.Report(ctx, c.QueryParam("month"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}
