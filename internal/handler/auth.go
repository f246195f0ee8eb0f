package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/middleware"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/response"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/service"
)

// requestTimeout bounds the store and notifier work of one request.
const requestTimeout = 5 * time.Second

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Sessions *service.SessionService
	Cookies  middleware.Cookies
	Debug    bool
}

func NewAuthHandler(s *service.SessionService, cookies middleware.Cookies, debug bool) *AuthHandler {
	return &AuthHandler{Sessions: s, Cookies: cookies, Debug: debug}
}

// ----- DTOs -----

type registerReq struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	FamilyName string `json:"familyName"`
}
type verifyReq struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	FamilyID string `json:"familyId"`
}
type emailReq struct {
	Email string `json:"email"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type userPart struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	FamilyID string     `json:"familyId"`
	Role     model.Role `json:"role"`
}
type sessionResp struct {
	User        userPart `json:"user"`
	AccessToken string   `json:"accessToken"`
	TokenType   string   `json:"tokenType"`
	ExpiresIn   string   `json:"expiresIn"`
}
type refreshResp struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   string `json:"expiresIn"`
}
type profileResp struct {
	User        userPart          `json:"user"`
	IsPremium   bool              `json:"isPremium"`
	Permissions model.Permissions `json:"permissions"`
	Customize   bool              `json:"customize"`
}

func toUser(a *model.Account) userPart {
	return userPart{ID: a.ID, Name: a.Name, Email: a.Email, FamilyID: a.FamilyID, Role: a.Role}
}

func invalidBody(c echo.Context) error {
	return response.Fail(c, http.StatusBadRequest, "Invalid request body", nil)
}

// signIn sets the refresh cookie and writes the session envelope.
func signIn(c echo.Context, cookies middleware.Cookies, status int, message string, s *service.Session) error {
	cookies.SetRefresh(c, s.Pair.RefreshToken)
	return response.OK(c, status, message, sessionResp{
		User:        toUser(s.Account),
		AccessToken: s.Pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.Pair.ExpiresIn,
	})
}

// RegisterParentRequest creates the family and mails the registration code.
func (h *AuthHandler) RegisterParentRequest(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ticket, err := h.Sessions.RegisterParentRequest(ctx, req.Name, req.Email, req.FamilyName)
	if err != nil {
		return response.Error(c, err, h.Debug)
	}
	return response.OK(c, http.StatusOK, "OTP sent to email. Please verify to complete registration.", ticket)
}

// RegisterParentVerify redeems the registration code and signs the parent in.
func (h *AuthHandler) RegisterParentVerify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Sessions.RegisterParentVerify(ctx, req.Email, req.OTP, req.FamilyID)
	if err != nil {
		return response.Error(c, err, h.Debug)
	}
	return signIn(c, h.Cookies, http.StatusCreated, "Registration successful", s)
}

// LoginRequest mails a login code to a verified parent.
func (h *AuthHandler) LoginRequest(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Sessions.LoginRequest(ctx, req.Email); err != nil {
		return response.Error(c, err, h.Debug)
	}
	return response.OK(c, http.StatusOK, "OTP sent to email", emailReq{Email: req.Email})
}

// LoginVerify redeems the login code.
func (h *AuthHandler) LoginVerify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Sessions.LoginVerify(ctx, req.Email, req.OTP)
	if err != nil {
		return response.Error(c, err, h.Debug)
	}
	return signIn(c, h.Cookies, http.StatusOK, "Login successful", s)
}

// ResendVerification mails a fresh code to an unverified account.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Sessions.ResendVerification(ctx, req.Email); err != nil {
		return response.Error(c, err, h.Debug)
	}
	return response.OK(c, http.StatusOK, "Verification OTP resent successfully. Please check your email.", nil)
}

// Refresh rotates the token pair.  The cookie wins over the body.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := h.Cookies.Refresh(c)
	if raw == "" {
		var req refreshReq
		_ = c.Bind(&req)
		raw = req.RefreshToken
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Sessions.Refresh(ctx, raw)
	if err != nil {
		return response.Error(c, err, h.Debug)
	}
	h.Cookies.SetRefresh(c, s.Pair.RefreshToken)
	return response.OK(c, http.StatusOK, "Token refreshed successfully", refreshResp{
		AccessToken: s.Pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.Pair.ExpiresIn,
	})
}

// Logout revokes the bearer token, clears the stored refresh token and
// updates both cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	before := h.Cookies.Blacklist(c)
	updated, err := h.Sessions.Logout(ctx, c.Request().Header.Get(echo.HeaderAuthorization), before)
	if len(updated) != len(before) {
		h.Cookies.SetBlacklist(c, updated)
	}
	if err != nil {
		return response.Error(c, err, h.Debug)
	}
	h.Cookies.ClearRefresh(c)
	return response.OK(c, http.StatusOK, "Logged out successfully", nil)
}

// Me returns the authenticated account with its permission table.
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := h.Sessions.Profile(c.Request().Context(), middleware.AccountFrom(c))
	if err != nil {
		return response.Error(c, err, h.Debug)
	}
	return response.OK(c, http.StatusOK, "Profile retrieved successfully", profileResp{
		User:        toUser(p.Account),
		IsPremium:   p.Account.IsPremium,
		Permissions: p.Permissions,
		Customize:   p.Customizable,
	})
}
