package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/response"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/service"
)

// Authenticate runs the authorization gate on the bearer token and the
// blacklist cookie, and attaches the resolved account to the context.
func Authenticate(gate *service.Gate, cookies Cookies, debug bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, _, err := gate.Authorize(c.Request().Context(),
				c.Request().Header.Get(echo.HeaderAuthorization), cookies.Blacklist(c))
			if err != nil {
				return response.Error(c, err, debug)
			}
			c.Set(accountKey, a)
			return next(c)
		}
	}
}
