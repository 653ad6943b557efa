package handler

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/team-presence/internal/realtime"
	"github.com/iliyamo/team-presence/internal/repository"
)

// WSHandler upgrades authenticated clients onto the realtime hub.
type WSHandler struct {
	Users *repository.UserRepo
	Hub   *realtime.Hub
}

func NewWSHandler(users *repository.UserRepo, hub *realtime.Hub) *WSHandler {
	return &WSHandler{Users: users, Hub: hub}
}

// Stream handles GET /v1/ws.  The connection stays open until the client
// leaves; every change to locations or check-ins arrives as an
// {"type":"invalidate"} frame.
func (h *WSHandler) Stream(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	u, err := currentUser(ctx, c, h.Users)
	cancel()
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Hub.Serve(c.Response(), c.Request(), u.ID); err != nil {
		// the upgrader has already written the HTTP error
		log.Printf("realtime: upgrade for user %d failed: %v", u.ID, err)
	}
	return nil
}
