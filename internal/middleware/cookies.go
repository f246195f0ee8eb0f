package middleware

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Cookie names.
const (
	RefreshCookie   = "refreshToken"
	BlacklistCookie = "blockedTokens"
)

// The client-held list keeps at most maxBlacklist entries and at most
// maxBlacklistBytes of encoded value, newest first to survive, so the cookie
// stays under the 4096 byte browser limit.  Older entries remain revoked
// through the shared list.
const (
	maxBlacklist      = 10
	maxBlacklistBytes = 3800
)

// Cookies writes and reads the session cookies.
type Cookies struct {
	Secure        bool
	RefreshMaxAge time.Duration
	BlockedMaxAge time.Duration
}

// NewCookies returns the cookie settings: 7 day refresh cookie, 1 day
// blacklist, Secure in production.
func NewCookies(secure bool) Cookies {
	return Cookies{Secure: secure, RefreshMaxAge: 7 * 24 * time.Hour, BlockedMaxAge: 24 * time.Hour}
}

// SetRefresh stores the refresh token in an HttpOnly, SameSite=Strict cookie.
func (k Cookies) SetRefresh(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(k.RefreshMaxAge / time.Second),
		HttpOnly: true,
		Secure:   k.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearRefresh expires the refresh cookie.
func (k Cookies) ClearRefresh(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   k.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Refresh returns the refresh cookie value, or "".
func (k Cookies) Refresh(c echo.Context) string {
	ck, err := c.Cookie(RefreshCookie)
	if err != nil {
		return ""
	}
	return ck.Value
}

// SetBlacklist stores the revoked token digests as a base64url JSON array,
// dropping the oldest entries that do not fit.
func (k Cookies) SetBlacklist(c echo.Context, tokens []string) {
	if len(tokens) > maxBlacklist {
		tokens = tokens[len(tokens)-maxBlacklist:]
	}
	value := EncodeBlacklist(tokens)
	for len(value) > maxBlacklistBytes && len(tokens) > 0 {
		tokens = tokens[1:]
		value = EncodeBlacklist(tokens)
	}
	c.SetCookie(&http.Cookie{
		Name:     BlacklistCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(k.BlockedMaxAge / time.Second),
		HttpOnly: true,
		Secure:   k.Secure,
	})
}

// Blacklist returns the revoked token digests carried by the request.  A missing or
// unreadable cookie yields an empty list.
func (k Cookies) Blacklist(c echo.Context) []string {
	ck, err := c.Cookie(BlacklistCookie)
	if err != nil {
		return nil
	}
	return DecodeBlacklist(ck.Value)
}

// EncodeBlacklist renders the list as the cookie value.  A nil list encodes
// as an empty JSON array.
func EncodeBlacklist(tokens []string) string {
	if tokens == nil {
		tokens = []string{}
	}
	b, _ := json.Marshal(tokens)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeBlacklist parses a cookie value written by EncodeBlacklist.  Values
// that are not base64url JSON arrays decode to nil.
func DecodeBlacklist(v string) []string {
	if v == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return nil
	}
	var tokens []string
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil
	}
	return tokens
}
