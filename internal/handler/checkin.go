package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/team-presence/internal/model"
	"github.com/iliyamo/team-presence/internal/repository"
	"github.com/iliyamo/team-presence/internal/service"
)

// CheckinHandler exposes the office check-in lifecycle.
type CheckinHandler struct {
	Users   *repository.UserRepo
	Machine *service.Machine
}

func NewCheckinHandler(users *repository.UserRepo, m *service.Machine) *CheckinHandler {
	if users == nil || m == nil {
		panic("nil dependency passed to NewCheckinHandler")
	}
	return &CheckinHandler{Users: users, Machine: m}
}

type checkinReq struct {
	Date string `json:"date"`
}

type validateReq struct {
	UserID uint64 `json:"user_id"`
}

// checkinView adds the derived state and the caller's validate
// affordance to a row.
type checkinView struct {
	model.OfficeCheckin
	Status      model.CheckinStatus `json:"status"`
	CanValidate bool                `json:"can_validate"`
}

// List handles GET /v1/checkins?from=&to=.
func (h *CheckinHandler) List(c echo.Context) error {
	from, to := c.QueryParam("from"), c.QueryParam("to")
	if from == "" || to == "" {
		return badRequest(c, "from and to are required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	u, err := currentUser(ctx, c, h.Users)
	if err != nil {
		return respondError(c, err)
	}
	set, rows, err := h.Machine.List(ctx, from, to)
	if err != nil {
		return respondError(c, err)
	}
	actor := service.ActorFromUser(u)
	out := make([]checkinView, 0, len(rows))
	for _, r := range rows {
		out = append(out, checkinView{
			OfficeCheckin: r,
			Status:        r.Status(),
			CanValidate:   set.ShowValidate(h.Machine.Policy(), actor, r.UserID, r.Date),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Create handles POST /v1/checkins.  The body's date defaults to today.
func (h *CheckinHandler) Create(c echo.Context) error {
	var req checkinReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	u, err := currentUser(ctx, c, h.Users)
	if err != nil {
		return respondError(c, err)
	}
	row, err := h.Machine.CheckIn(ctx, service.ActorFromUser(u), req.Date)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, checkinView{OfficeCheckin: row, Status: row.Status()})
}

// Cancel handles DELETE /v1/checkins/:date.
func (h *CheckinHandler) Cancel(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	u, err := currentUser(ctx, c, h.Users)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Machine.CancelCheckin(ctx, service.ActorFromUser(u), c.Param("date")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Validate handles POST /v1/checkins/:id/validate with body {user_id}.
func (h *CheckinHandler) Validate(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return badRequest(c, "invalid check-in id")
	}
	var req validateReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return badRequest(c, "user_id required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	u, err := currentUser(ctx, c, h.Users)
	if err != nil {
		return respondError(c, err)
	}
	row, err := h.Machine.Validate(ctx, service.ActorFromUser(u), id, req.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, checkinView{OfficeCheckin: row, Status: row.Status()})
}
