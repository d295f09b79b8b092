package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// RequireRole lets the request through only when the caller's role is one
// of roles.  It must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !allowed[IdentityFrom(c).Role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "kind": "Forbidden"})
            }
            return next(c)
        }
    }
}
