package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/handler"
)

func TestCodeRoutesAreRateLimited(t *testing.T) {
	e := echo.New()
	limited := map[string]bool{}
	g := Guards{
		Authn: func(next echo.HandlerFunc) echo.HandlerFunc { return next },
		Limit: func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				limited[c.Path()] = true
				return c.NoContent(http.StatusTooManyRequests)
			}
		},
	}
	RegisterAuth(e, &handler.AuthHandler{}, g)
	RegisterFamily(e, &handler.FamilyHandler{}, g)

	paths := []string{
		"/api/v1/auth/register/parent/request",
		"/api/v1/auth/register/parent/verify",
		"/api/v1/auth/login/request",
		"/api/v1/auth/login/verify",
		"/api/v1/auth/resend-verification",
		"/api/v1/family/join/request",
		"/api/v1/family/join/verify",
	}
	for _, p := range paths {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, p, nil))
		if rec.Code != http.StatusTooManyRequests || !limited[p] {
			t.Errorf("%s: not rate limited (status %d)", p, rec.Code)
		}
	}
}
