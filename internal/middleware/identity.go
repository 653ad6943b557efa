package middleware

// identity.go defines helper functions shared across middleware files. It
// provides a user identifier extraction function that reads the subject
// stored in the Echo context by JWTAuth. When no user is authenticated the
// provided fallback is returned.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userID returns the authenticated user's ID as a string, or fallback
// when the request is anonymous. JSON numbers in JWT claims decode as
// float64, so numeric and string subjects are both accepted.
func userID(c echo.Context, fallback string) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	return fallback
}
