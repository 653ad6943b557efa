package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/team-presence/internal/model"
	"github.com/iliyamo/team-presence/internal/repository"
	"github.com/iliyamo/team-presence/internal/service"
)

// LocationHandler serves the daily status ledger.  Employees edit only
// their own records, and only for today or later.
type LocationHandler struct {
	Users  *repository.UserRepo
	Ledger *service.Ledger
	Clock  service.Clock
}

func NewLocationHandler(users *repository.UserRepo, ledger *service.Ledger, clock service.Clock) *LocationHandler {
	if users == nil || ledger == nil {
		panic("nil dependency passed to NewLocationHandler")
	}
	return &LocationHandler{Users: users, Ledger: ledger, Clock: clock}
}

type setStatusReq struct {
	Status        string  `json:"status"`
	Notes         *string `json:"notes"`
	ArrivalTime   *string `json:"arrival_time"`
	DepartureTime *string `json:"departure_time"`
}

// List handles GET /v1/locations?from=&to=.  The viewer's row comes
// first.
func (h *LocationHandler) List(c echo.Context) error {
	from, to := c.QueryParam("from"), c.QueryParam("to")
	if from == "" || to == "" {
		return badRequest(c, "from and to are required")
	}
	if err := service.ValidateRange(from, to); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	u, err := currentUser(ctx, c, h.Users)
	if err != nil {
		return respondError(c, err)
	}
	users, err := h.Ledger.FetchRange(ctx, from, to)
	if err != nil {
		return respondError(c, err)
	}
	service.SortWeekly(users, u.ID)
	return c.JSON(http.StatusOK, echo.Map{"from": from, "to": to, "users": users})
}

// Put handles PUT /v1/locations/:date.
func (h *LocationHandler) Put(c echo.Context) error {
	day := c.Param("date")
	var req setStatusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	u, err := h.editable(ctx, c, day)
	if err != nil {
		return respondError(c, err)
	}
	loc, err := h.Ledger.SetStatus(ctx, u.ID, day, service.StatusInput{
		Status:        model.LocationStatus(req.Status),
		Notes:         req.Notes,
		ArrivalTime:   req.ArrivalTime,
		DepartureTime: req.DepartureTime,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, loc)
}

// Delete handles DELETE /v1/locations/:date.  Clearing an empty day is
// not an error.
func (h *LocationHandler) Delete(c echo.Context) error {
	day := c.Param("date")
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	u, err := h.editable(ctx, c, day)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Ledger.ClearStatus(ctx, u.ID, day); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// editable loads the caller and applies the edit guard for day.  The
// routes only address the caller's own records, so the guard reduces
// to the date check.
func (h *LocationHandler) editable(ctx context.Context, c echo.Context, day string) (model.User, error) {
	if err := service.ValidateDay(day); err != nil {
		return model.User{}, err
	}
	u, err := currentUser(ctx, c, h.Users)
	if err != nil {
		return model.User{}, err
	}
	if !service.CanEdit(service.ActorFromUser(u), u.ID, day, h.Clock.Today()) {
		return model.User{}, &service.Error{Kind: service.ErrAuthorization, Message: "past days are read-only"}
	}
	return u, nil
}
