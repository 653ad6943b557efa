package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/team-presence/internal/model"
	"github.com/iliyamo/team-presence/internal/repository"
	"github.com/iliyamo/team-presence/internal/service"
)

// dbTimeout bounds every request's repository work.
const dbTimeout = 5 * time.Second

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64: // JSON numbers in JWT claims
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// currentUser loads the authenticated user.  Deleted and deactivated
// accounts are treated as unauthenticated even while their token is
// still valid.
func currentUser(ctx context.Context, c echo.Context, users *repository.UserRepo) (model.User, error) {
	uid, err := getUserID(c)
	if err != nil {
		return model.User{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	u, err := users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		return model.User{}, err
	}
	if !u.IsActive {
		return model.User{}, echo.NewHTTPError(http.StatusUnauthorized, "account disabled")
	}
	return u, nil
}

// currentAdmin is currentUser restricted to administrators.  The role is
// re-read from the store, so a demotion takes effect before the access
// token expires.
func currentAdmin(ctx context.Context, c echo.Context, users *repository.UserRepo) (model.User, error) {
	u, err := currentUser(ctx, c, users)
	if err != nil {
		return model.User{}, err
	}
	if u.Role != model.RoleAdmin {
		return model.User{}, echo.NewHTTPError(http.StatusForbidden, "administrator role required")
	}
	return u, nil
}

// statusFor maps domain error codes to HTTP statuses.
var statusFor = map[string]int{
	service.ErrValidation.Error():       http.StatusBadRequest,
	service.ErrDuplicateCheckin.Error(): http.StatusConflict,
	service.ErrInvalidState.Error():     http.StatusConflict,
	service.ErrSelfValidation.Error():   http.StatusForbidden,
	service.ErrAuthorization.Error():    http.StatusForbidden,
	service.ErrPersistence.Error():      http.StatusInternalServerError,
}

// respondError writes err as {"error": code, "message": text}.  Errors
// that are neither domain errors nor echo.HTTPErrors are reported as
// persistence failures and logged.
func respondError(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return c.JSON(he.Code, echo.Map{"error": httpCode(he.Code), "message": he.Message})
	}
	code := service.Code(err)
	status, ok := statusFor[code]
	if !ok {
		code, status = service.ErrPersistence.Error(), http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(status, echo.Map{"error": code, "message": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": code, "message": service.Message(err)})
}

// httpCode names transport level failures that have no domain kind.
func httpCode(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusForbidden:
		return service.ErrAuthorization.Error()
	}
	return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

// badRequest reports malformed input with the validation code.
func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": service.ErrValidation.Error(), "message": msg})
}

// queryInt parses an optional integer query parameter.
func queryInt(c echo.Context, name string, def int) (int, error) {
	s := c.QueryParam(name)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
