package middleware

// identity.go stores and retrieves the authenticated account on the echo
// context.  Authenticate sets it; handlers behind it read it.

import (
	"github.com/labstack/echo/v4"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
)

const accountKey = "account"

// AccountFrom returns the account resolved by Authenticate, or nil.
func AccountFrom(c echo.Context) *model.Account {
	a, _ := c.Get(accountKey).(*model.Account)
	return a
}

// accountID identifies the caller for rate limiting; "anon" when not signed in.
func accountID(c echo.Context) string {
	if a := AccountFrom(c); a != nil && a.ID != "" {
		return a.ID
	}
	return "anon"
}
