package handler

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/sports-hall-booking/internal/config"
    "github.com/iliyamo/sports-hall-booking/internal/middleware"
    "github.com/iliyamo/sports-hall-booking/internal/model"
    "github.com/iliyamo/sports-hall-booking/internal/repository"
    "github.com/iliyamo/sports-hall-booking/internal/service"
    "github.com/iliyamo/sports-hall-booking/internal/utils"
)

// UserStore persists accounts.
type UserStore interface {
    Create(ctx context.Context, u repository.NewUser, cost int) (uint64, error)
    GetByEmail(ctx context.Context, email string) (model.User, error)
    GetByID(ctx context.Context, id uint64) (model.User, error)
    UpdatePassword(ctx context.Context, id uint64, password string, cost int) error
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
    StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeAllForUser(ctx context.Context, userID uint64) error
}

var (
    _ UserStore  = (*repository.UserRepo)(nil)
    _ TokenStore = (*repository.TokenRepo)(nil)
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  UserStore
    Tokens TokenStore
    Log    logrus.FieldLogger
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, log logrus.FieldLogger) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: log}
}

// ----- DTOs -----

type registerReq struct {
    Email     string `json:"email" validate:"required,email"`
    Password  string `json:"password" validate:"required,min=8,max=72"`
    Role      string `json:"role"` // PLAYER | OWNER
    FirstName string `json:"first_name" validate:"max=50"`
    LastName  string `json:"last_name" validate:"max=50"`
}
type loginReq struct {
    Email    string `json:"email" validate:"required"`
    Password string `json:"password" validate:"required"`
}
type refreshReq struct {
    Refresh string `json:"refresh"`
}
type changePasswordReq struct {
    OldPassword string `json:"old_password" validate:"required"`
    NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type authResp struct {
    User    model.User `json:"user"`
    Access  tokenPart  `json:"access"`
    Refresh tokenPart  `json:"refresh"`
}

func unauthorized(c echo.Context, msg string) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg, "kind": "Unauthorized"})
}

// issue creates an access/refresh pair and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return authResp{}, fmt.Errorf("issue access: %w", err)
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return authResp{}, fmt.Errorf("issue refresh: %w", err)
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return authResp{}, fmt.Errorf("store refresh: %w", err)
    }
    return authResp{
        User:    u,
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
    }, nil
}

// Register handles POST /api/register/: create the user and return tokens.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := bind(c, &req); err != nil {
        return writeError(c, h.Log, err)
    }
    role := strings.ToUpper(strings.TrimSpace(req.Role))
    if role != model.RoleOwner {
        role = model.RolePlayer
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    uid, err := h.Users.Create(ctx, repository.NewUser{
        Email:     req.Email,
        Password:  req.Password,
        Role:      role,
        FirstName: strings.TrimSpace(req.FirstName),
        LastName:  strings.TrimSpace(req.LastName),
    }, h.Cfg.BcryptCost)
    if err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return writeError(c, h.Log, fmt.Errorf("%w: email already registered", service.ErrInvalidState))
        }
        return writeError(c, h.Log, err)
    }
    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    resp, err := h.issue(ctx, u)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    h.Log.WithFields(logrus.Fields{"user_id": uid, "role": role}).Info("user registered")
    return c.JSON(http.StatusCreated, resp)
}

// Login handles POST /api/token/: verify credentials and return a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := bind(c, &req); err != nil {
        return writeError(c, h.Log, err)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return unauthorized(c, "invalid credentials")
        }
        return writeError(c, h.Log, err)
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) || !u.IsActive {
        return unauthorized(c, "invalid credentials")
    }
    resp, err := h.issue(ctx, u)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, resp)
}

// Refresh handles POST /api/token/refresh/: validate by hash, revoke the
// old token and issue a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Refresh) == "" {
        return writeError(c, h.Log, invalid("refresh is required"))
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.Refresh))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash, time.Now().UTC())
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return unauthorized(c, "invalid refresh token")
        }
        return writeError(c, h.Log, err)
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        return writeError(c, h.Log, err)
    }
    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return unauthorized(c, "invalid refresh token")
        }
        return writeError(c, h.Log, err)
    }
    resp, err := h.issue(ctx, u)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, resp)
}

// Logout handles POST /api/logout/.  With a refresh token in the body
// only that session ends; without one every session of the caller does.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req)
    raw := strings.TrimSpace(req.Refresh)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if raw != "" {
        if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil {
            return writeError(c, h.Log, err)
        }
        return c.NoContent(http.StatusNoContent)
    }
    if err := h.Tokens.RevokeAllForUser(ctx, middleware.IdentityFrom(c).UserID); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Me handles GET /api/me/.
func (h *AuthHandler) Me(c echo.Context) error {
    u, err := h.Users.GetByID(c.Request().Context(), middleware.IdentityFrom(c).UserID)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return unauthorized(c, "user no longer exists")
        }
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, u)
}

// ChangePassword handles POST /change-password/.  All refresh tokens of
// the user are revoked afterwards.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
    var req changePasswordReq
    if err := bind(c, &req); err != nil {
        return writeError(c, h.Log, err)
    }
    if err := utils.CheckPasswordStrength(req.NewPassword); err != nil {
        return writeError(c, h.Log, invalid("%v", err))
    }
    uid := middleware.IdentityFrom(c).UserID

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    if !utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
        return writeError(c, h.Log, invalid("old password is incorrect"))
    }
    if err := h.Users.UpdatePassword(ctx, uid, req.NewPassword, h.Cfg.BcryptCost); err != nil {
        return writeError(c, h.Log, err)
    }
    if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"detail": "password changed"})
}
