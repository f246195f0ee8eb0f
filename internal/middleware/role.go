package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/response"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/service"
)

// RestrictTo lets the request through only when the authenticated account
// has one of roles.  It must run after Authenticate.
func RestrictTo(debug bool, roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := service.RestrictTo(AccountFrom(c), roles...); err != nil {
				return response.Error(c, err, debug)
			}
			return next(c)
		}
	}
}
