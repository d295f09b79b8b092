package middleware

// identity.go stores and retrieves the caller identity on the echo
// context.  JWTAuth and OptionalJWT write it; handlers read it with
// IdentityFrom and pass it explicitly into services.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/sports-hall-booking/internal/auth"
)

const identityKey = "identity"

func setIdentity(c echo.Context, id auth.Identity) {
    c.Set(identityKey, id)
    // Kept for handlers and log fields that read the raw claims.
    c.Set("user_id", id.UserID)
    c.Set("role", id.Role)
}

// IdentityFrom returns the identity stored by the auth middleware, or
// auth.Guest when the request is anonymous.
func IdentityFrom(c echo.Context) auth.Identity {
    if id, ok := c.Get(identityKey).(auth.Identity); ok {
        return id
    }
    return auth.Guest
}

// userKey is the caller as a Redis key segment.
func userKey(c echo.Context) string {
    id := IdentityFrom(c)
    if !id.Authenticated() {
        return "guest"
    }
    return strconv.FormatUint(id.UserID, 10)
}
