package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/team-presence/internal/model"
	"github.com/iliyamo/team-presence/internal/repository"
)

// AdminHandler manages user accounts.  Creating accounts on behalf of
// others is not offered; people register themselves.
type AdminHandler struct {
	Users *repository.UserRepo
}

func NewAdminHandler(users *repository.UserRepo) *AdminHandler {
	if users == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{Users: users}
}

// adminUser is the admin listing shape; it never includes the hash.
type adminUser struct {
	ID            uint64              `json:"id"`
	Email         string              `json:"email"`
	FullName      string              `json:"full_name"`
	JobFunction   string              `json:"job_function"`
	AvatarURL     *string             `json:"avatar_url"`
	Role          model.Role          `json:"role"`
	ResourceGroup model.ResourceGroup `json:"resource_group"`
	IsActive      bool                `json:"is_active"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func toAdminUser(u model.User) adminUser {
	return adminUser{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		JobFunction:   u.JobFunction,
		AvatarURL:     u.AvatarURL,
		Role:          u.Role,
		ResourceGroup: u.ResourceGroup,
		IsActive:      u.IsActive,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

type updateUserReq struct {
	FullName      *string `json:"full_name"`
	JobFunction   *string `json:"job_function"`
	AvatarURL     *string `json:"avatar_url"`
	IsActive      *bool   `json:"is_active"`
	ResourceGroup *string `json:"resource_group"`
}

type setRoleReq struct {
	Role string `json:"role"`
}

// ListUsers handles GET /v1/admin/users.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if _, err := currentAdmin(ctx, c, h.Users); err != nil {
		return respondError(c, err)
	}
	users, err := h.Users.ListAll(ctx)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]adminUser, 0, len(users))
	for _, u := range users {
		out = append(out, toAdminUser(u))
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateUser handles PATCH /v1/admin/users/:id.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return badRequest(c, "invalid user id")
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	upd := repository.UserUpdate{
		FullName:    req.FullName,
		JobFunction: req.JobFunction,
		AvatarURL:   req.AvatarURL,
		IsActive:    req.IsActive,
	}
	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		return badRequest(c, "full_name cannot be empty")
	}
	if req.ResourceGroup != nil {
		g := model.ResourceGroup(strings.ToLower(strings.TrimSpace(*req.ResourceGroup)))
		if !g.Valid() {
			return badRequest(c, "resource_group must be head, lead or equipe")
		}
		upd.ResourceGroup = &g
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	admin, err := currentAdmin(ctx, c, h.Users)
	if err != nil {
		return respondError(c, err)
	}
	if admin.ID == id && req.IsActive != nil && !*req.IsActive {
		return badRequest(c, "you cannot deactivate your own account")
	}
	if err := h.Users.Update(ctx, id, upd); err != nil {
		return h.userError(c, err)
	}
	return h.respondUser(ctx, c, id)
}

// SetRole handles PUT /v1/admin/users/:id/role.
func (h *AdminHandler) SetRole(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return badRequest(c, "invalid user id")
	}
	var req setRoleReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	role := model.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
	if !role.Valid() {
		return badRequest(c, "role must be ADMIN or EMPLOYEE")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	admin, err := currentAdmin(ctx, c, h.Users)
	if err != nil {
		return respondError(c, err)
	}
	if admin.ID == id && role != model.RoleAdmin {
		return badRequest(c, "you cannot remove your own administrator role")
	}
	if err := h.Users.SetRole(ctx, id, role); err != nil {
		return h.userError(c, err)
	}
	return h.respondUser(ctx, c, id)
}

func (h *AdminHandler) respondUser(ctx context.Context, c echo.Context, id uint64) error {
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return h.userError(c, err)
	}
	return c.JSON(http.StatusOK, toAdminUser(u))
}

func (h *AdminHandler) userError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return respondError(c, echo.NewHTTPError(http.StatusNotFound, "user not found"))
	}
	return respondError(c, err)
}
