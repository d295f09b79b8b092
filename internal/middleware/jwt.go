package middleware // reusable HTTP middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/sports-hall-booking/internal/auth"
    "github.com/iliyamo/sports-hall-booking/internal/utils"
)

func unauthorized(c echo.Context, msg string) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg, "kind": "Unauthorized"})
}

// bearer extracts the raw token from the Authorization header.
func bearer(c echo.Context) (string, bool) {
    h := c.Request().Header.Get("Authorization")
    if !strings.HasPrefix(h, "Bearer ") {
        return "", false
    }
    raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
    return raw, raw != ""
}

// JWTAuth validates a Bearer access token and stores the caller identity
// on the context.  Requests without a valid token are rejected with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearer(c)
            if !ok {
                return unauthorized(c, "missing bearer token")
            }
            uid, role, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return unauthorized(c, "invalid token")
            }
            setIdentity(c, auth.Identity{UserID: uid, Role: role})
            return next(c)
        }
    }
}

// OptionalJWT is JWTAuth for public routes: an absent token yields the
// guest identity, while a present but invalid token is still refused so
// a client never silently loses its privileges.
func OptionalJWT(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearer(c)
            if !ok {
                setIdentity(c, auth.Guest)
                return next(c)
            }
            uid, role, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return unauthorized(c, "invalid token")
            }
            setIdentity(c, auth.Identity{UserID: uid, Role: role})
            return next(c)
        }
    }
}
