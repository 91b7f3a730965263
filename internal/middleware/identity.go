package middleware

import "github.com/labstack/echo/v4"

// CurrentUserID returns the subject stored by JWTAuth, or "anon".
func CurrentUserID(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	return "anon"
}

// RequestIDFrom returns the id assigned by RequestID, if any.
func RequestIDFrom(c echo.Context) string {
	s, _ := c.Get("request_id").(string)
	return s
}
