package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/middleware"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/response"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/service"
)

// FamilyHandler serves invitations, joins and member management.
type FamilyHandler struct {
	Members *service.Membership
	Cookies middleware.Cookies
	Debug   bool
}

func NewFamilyHandler(m *service.Membership, cookies middleware.Cookies, debug bool) *FamilyHandler {
	return &FamilyHandler{Members: m, Cookies: cookies, Debug: debug}
}

type inviteReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	RoleName string `json:"roleName"`
}
type joinReq struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Code  string `json:"code"`
}
type memberReq struct {
	UserID   string `json:"userId" query:"userId"`
	RoleName string `json:"roleName"`
}

type inviteResp struct {
	Email     string    `json:"email"`
	RoleName  string    `json:"roleName"`
	ExpiresAt time.Time `json:"expiresAt"`
}
type roleResp struct {
	UserID   string     `json:"userId"`
	RoleName model.Role `json:"roleName"`
}
type removeResp struct {
	UserID string `json:"userId"`
}
type membersResp struct {
	Members []model.Member `json:"members"`
}

// Invite mails an invitation code and join link to a new member.
func (h *FamilyHandler) Invite(c echo.Context) error {
	var req inviteReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	inv, err := h.Members.Invite(ctx, middleware.AccountFrom(c), req.Email, req.Name, req.RoleName)
	if err != nil {
		return response.Error(c, err, h.Debug)
	}
	return response.OK(c, http.StatusOK, "Invitation sent successfully", inviteResp{
		Email:     inv.Email,
		RoleName:  string(inv.Role),
		ExpiresAt: inv.ExpiresAt.UTC(),
	})
}

// JoinRequest mails a join code to someone holding a family code.
func (h *FamilyHandler) JoinRequest(c echo.Context) error {
	var req joinReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ticket, err := h.Members.JoinRequest(ctx, req.Email, req.Name, req.Code)
	if err != nil {
		return response.Error(c, err, h.Debug)
	}
	return response.OK(c, http.StatusOK, "OTP sent to email. Please verify to join the family.", ticket)
}

// JoinVerify redeems a join or invitation code and signs the member in.
func (h *FamilyHandler) JoinVerify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Members.JoinVerify(ctx, req.Email, req.OTP, req.FamilyID)
	if err != nil {
		return response.Error(c, err, h.Debug)
	}
	return signIn(c, h.Cookies, http.StatusOK, "Successfully joined family", s)
}

// UpdateRole changes the role of another member.  Premium parents only.
func (h *FamilyHandler) UpdateRole(c echo.Context) error {
	var req memberReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	a, err := h.Members.UpdateRole(ctx, middleware.AccountFrom(c), req.UserID, req.RoleName)
	if err != nil {
		return response.Error(c, err, h.Debug)
	}
	return response.OK(c, http.StatusOK, "Role updated successfully", roleResp{UserID: a.ID, RoleName: a.Role})
}

// RemoveMember takes userId from the body, or the query string for clients
// that cannot send a DELETE body.
func (h *FamilyHandler) RemoveMember(c echo.Context) error {
	var req memberReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = strings.TrimSpace(c.QueryParam("userId"))
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Members.RemoveMember(ctx, middleware.AccountFrom(c), userID); err != nil {
		return response.Error(c, err, h.Debug)
	}
	return response.OK(c, http.StatusOK, "Member removed successfully", removeResp{UserID: userID})
}

// ListMembers returns the caller's family.
func (h *FamilyHandler) ListMembers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	members, err := h.Members.ListMembers(ctx, middleware.AccountFrom(c))
	if err != nil {
		return response.Error(c, err, h.Debug)
	}
	if members == nil {
		members = []model.Member{}
	}
	return response.OK(c, http.StatusOK, "Family members retrieved successfully", membersResp{Members: members})
}
