package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/team-presence/internal/config"
	"github.com/iliyamo/team-presence/internal/middleware"
	"github.com/iliyamo/team-presence/internal/model"
	"github.com/iliyamo/team-presence/internal/repository"
	"github.com/iliyamo/team-presence/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	JobFunction string `json:"job_function"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID            uint64              `json:"id"`
	Email         string              `json:"email"`
	FullName      string              `json:"full_name"`
	JobFunction   string              `json:"job_function"`
	AvatarURL     *string             `json:"avatar_url"`
	Role          model.Role          `json:"role"`
	ResourceGroup model.ResourceGroup `json:"resource_group"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func toUserPart(u model.User) userPart {
	return userPart{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		JobFunction:   u.JobFunction,
		AvatarURL:     u.AvatarURL,
		Role:          u.Role,
		ResourceGroup: u.ResourceGroup,
	}
}

// Password length bounds at registration.  bcrypt ignores bytes past 72.
const (
	minPasswordLen = 8
	maxPasswordLen = 72
)

// issue creates an access/refresh pair for u and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    toUserPart(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Register: create an employee account and return tokens immediately.  The
// very first account becomes the administrator.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		return badRequest(c, "email, password and full_name are required")
	}
	if !strings.Contains(req.Email, "@") {
		return badRequest(c, "invalid email")
	}
	if len(req.Password) < minPasswordLen {
		return badRequest(c, "password must be at least 8 characters")
	}
	if len(req.Password) > maxPasswordLen {
		return badRequest(c, "password must be at most 72 bytes")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	uid, _, err := h.Users.Register(ctx, repository.NewUser{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		JobFunction: req.JobFunction,
	}, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email_exists", "message": "email already exists"})
		}
		return respondError(c, err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid credentials"})
		}
		return respondError(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid credentials"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "account disabled"})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// refreshUser validates a refresh token and loads its active owner.
func (h *AuthHandler) refreshUser(ctx context.Context, raw string) (model.User, string, error) {
	hash := utils.HashRefreshRaw(raw)
	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return model.User{}, "", echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh")
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, "", echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh")
		}
		return model.User{}, "", err
	}
	if !u.IsActive {
		return model.User{}, "", echo.NewHTTPError(http.StatusUnauthorized, "account disabled")
	}
	return u, hash, nil
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, hash, err := h.refreshUser(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return respondError(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshAccess: validate a refresh token and return a new access token
// WITHOUT rotating the refresh token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, _, err := h.refreshUser(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return respondError(c, err)
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u, h.Cfg.AccessTTLMin)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Logout revokes either the refresh token in the body or, when only a
// bearer access token is supplied, every refresh token of its user.
func (h *AuthHandler) Logout(c echo.Context) error {
	var uid uint64
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		claims, err := middleware.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
		if err == nil {
			c.Set("user_id", claims["sub"])
			uid, _ = getUserID(c)
		}
	}

	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	switch {
	case refreshToken != "":
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid refresh token"})
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	case uid != 0:
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	return badRequest(c, "provide Authorization header or refresh_token")
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	u, err := currentUser(ctx, c, h.Users)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

type updateMeReq struct {
	FullName      *string `json:"full_name"`
	JobFunction   *string `json:"job_function"`
	AvatarURL     *string `json:"avatar_url"`
	ResourceGroup *string `json:"resource_group"`
}

// UpdateMe lets a user edit their own display fields.  The resource
// group decides who is elevated, so only administrators may change it,
// here or through the admin endpoint.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	var req updateMeReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		return badRequest(c, "full_name cannot be empty")
	}
	upd := repository.UserUpdate{
		FullName:    req.FullName,
		JobFunction: req.JobFunction,
		AvatarURL:   req.AvatarURL,
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
	u, err := currentUser(ctx, c, h.Users)
	if err != nil {
		return respondError(c, err)
	}
	if upd.ResourceGroup != nil && *upd.ResourceGroup != u.ResourceGroup && u.Role != model.RoleAdmin {
		return respondError(c, echo.NewHTTPError(http.StatusForbidden, "only administrators can change the resource group"))
	}
	if err := h.Users.Update(ctx, u.ID, upd); err != nil {
		return respondError(c, err)
	}
	if u, err = h.Users.GetByID(ctx, u.ID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}
