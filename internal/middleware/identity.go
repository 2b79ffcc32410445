package middleware

// identity.go holds the user identity lookup shared by middleware that
// derives per-user keys. JWTAuth stores the token subject under
// "user_id"; requests without a token resolve to "anon".

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// userID extracts the authenticated user's identifier from the Echo
// context. It returns "anon" when no user is authenticated or the claim
// has an unexpected shape.
func userID(c echo.Context) string {
    switch v := c.Get("user_id").(type) {
    case string:
        if v != "" {
            return v
        }
    case uint64:
        return strconv.FormatUint(v, 10)
    case float64:
        return strconv.FormatFloat(v, 'f', -1, 64)
    }
    return "anon"
}
