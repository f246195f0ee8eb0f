// Package router registers the HTTP routes of the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/handler"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/metrics"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/middleware"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
)

// Guards holds the middleware shared by the route groups.  Authn resolves
// the bearer token, Limit throttles routes that mail or redeem a code.
type Guards struct {
	Authn echo.MiddlewareFunc
	Limit echo.MiddlewareFunc
	Debug bool
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers the session endpoints under /api/v1/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g Guards) {
	auth := e.Group("/api/v1/auth")
	auth.POST("/register/parent/request", a.RegisterParentRequest, g.Limit)
	auth.POST("/register/parent/verify", a.RegisterParentVerify, g.Limit)
	auth.POST("/login/request", a.LoginRequest, g.Limit)
	auth.POST("/login/verify", a.LoginVerify, g.Limit)
	auth.POST("/resend-verification", a.ResendVerification, g.Limit)
	auth.POST("/refresh-token", a.Refresh)
	// Logout reads the bearer itself so expired tokens can still be revoked.
	auth.POST("/logout", a.Logout)
	auth.GET("/me", a.Me, g.Authn)
}

// RegisterFamily registers the membership endpoints under /api/v1/family.
// Joining is public; managing members requires a Parent.
func RegisterFamily(e *echo.Echo, f *handler.FamilyHandler, g Guards) {
	fam := e.Group("/api/v1/family")
	fam.POST("/join/request", f.JoinRequest, g.Limit)
	fam.POST("/join/verify", f.JoinVerify, g.Limit)

	parentOnly := middleware.RestrictTo(g.Debug, model.RoleParent)
	fam.POST("/invite", f.Invite, g.Authn, parentOnly, g.Limit)
	fam.PATCH("/update-role", f.UpdateRole, g.Authn, parentOnly)
	fam.DELETE("/remove-member", f.RemoveMember, g.Authn, parentOnly)
	fam.GET("/members", f.ListMembers, g.Authn, parentOnly)
}
