package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/metrics"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/repository"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/utils"
)

// RemovalPolicy decides what happens to an account removed from its family.
type RemovalPolicy string

const (
	// RemovalDelete deletes the account row.
	RemovalDelete RemovalPolicy = "delete"
	// RemovalDetach keeps the account without a family and ends its session.
	RemovalDetach RemovalPolicy = "detach"
)

// ParseRemovalPolicy maps a configuration value to a policy.
func ParseRemovalPolicy(s string) (RemovalPolicy, error) {
	switch p := RemovalPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case RemovalDelete, RemovalDetach:
		return p, nil
	case "":
		return RemovalDelete, nil
	default:
		return "", fmt.Errorf("unknown removal policy %q", s)
	}
}

// Invitation describes a sent invitation.
type Invitation struct {
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	FamilyID  string     `json:"familyId"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// MembershipConfig carries the tunables of the manager.
type MembershipConfig struct {
	FrontendURL string
	Removal     RemovalPolicy
}

// Membership manages who belongs to a family and with which role.
type Membership struct {
	accounts Accounts
	families Families
	otp      *OTPEngine
	tokens   *TokenEngine
	notifier Notifier
	tx       TxRunner
	cfg      MembershipConfig
	log      *slog.Logger
}

func NewMembership(cfg MembershipConfig, accounts Accounts, families Families, otp *OTPEngine,
	tokens *TokenEngine, notifier Notifier, tx TxRunner, logger *slog.Logger) *Membership {
	if cfg.Removal == "" {
		cfg.Removal = RemovalDelete
	}
	if tx == nil {
		tx = NoTx{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Membership{accounts: accounts, families: families, otp: otp, tokens: tokens,
		notifier: notifier, tx: tx, cfg: cfg, log: logger}
}

// Invite mails a 24 hour code and a join link to email.  The code joins the
// inviter's family with roleName.
func (m *Membership) Invite(ctx context.Context, inviter *model.Account, email, name, roleName string) (*Invitation, error) {
	email, name, roleName = utils.NormalizeEmail(email), strings.TrimSpace(name), strings.TrimSpace(roleName)
	if email == "" || name == "" || roleName == "" {
		return nil, fail(ErrValidation, "Please provide email, name, and roleName")
	}
	if !utils.ValidEmail(email) {
		return nil, fail(ErrValidation, "Please provide a valid email address")
	}
	role, ok := model.ParseRole(roleName)
	if !ok {
		return nil, fail(ErrValidation, "Invalid role. Must be Parent or Child")
	}
	family, err := m.familyOf(ctx, inviter)
	if err != nil {
		return nil, err
	}
	if _, err := m.accounts.GetByEmailInFamily(ctx, email, family.ID); err == nil {
		return nil, fail(ErrConflict, "User is already a member of this family")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, internal("Failed to send invitation", err)
	}

	// The mail must carry the code, so the code exists before it is recorded.
	code, err := m.otp.Generate()
	if err != nil {
		return nil, err
	}
	err = m.notifier.Send(ctx, email, model.NotifyInvitation, map[string]string{
		"name":        name,
		"code":        code,
		"familyName":  family.Name,
		"inviterName": inviter.Name,
		"role":        string(role),
		"link":        m.joinLink(family.Code, email),
		"hours":       strconv.Itoa(int(InvitationTTL.Hours())),
	})
	metrics.Notification(string(model.NotifyInvitation), err)
	if err != nil {
		m.log.Error("send invitation", "email", email, "family_id", family.ID, "err", err)
		return nil, internal("Failed to send invitation", err)
	}
	v, err := m.otp.Record(ctx, email, name, code, InvitationTTL, model.VerificationMeta{
		Purpose:  model.PurposeInvitation,
		FamilyID: family.ID,
		Role:     role,
	})
	if err != nil {
		return nil, err
	}
	m.log.Info("invitation sent", "family_id", family.ID, "inviter_id", inviter.ID, "role", role)
	return &Invitation{Email: email, Role: role, FamilyID: family.ID, ExpiresAt: v.ExpiresAt}, nil
}

func (m *Membership) joinLink(familyCode, email string) string {
	q := url.Values{}
	q.Set("code", familyCode)
	q.Set("email", email)
	return strings.TrimRight(m.cfg.FrontendURL, "/") + "/join?" + q.Encode()
}

// JoinRequest mails a 10 minute code that joins the family owning code.
func (m *Membership) JoinRequest(ctx context.Context, email, name, code string) (*CodeTicket, error) {
	email, name, code = utils.NormalizeEmail(email), strings.TrimSpace(name), strings.TrimSpace(code)
	if email == "" || name == "" || code == "" {
		return nil, fail(ErrValidation, "Please provide email, name, and family code")
	}
	if !utils.ValidEmail(email) {
		return nil, fail(ErrValidation, "Please provide a valid email address")
	}
	family, err := m.families.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fail(ErrValidation, "Invalid family code")
		}
		return nil, internal("Failed to process join request", err)
	}
	if _, err := m.accounts.GetByEmailInFamily(ctx, email, family.ID); err == nil {
		return nil, fail(ErrConflict, "You are already a member of this family")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, internal("Failed to process join request", err)
	}

	otp, err := m.otp.RequestCode(ctx, email, name, CodeTTL, model.VerificationMeta{
		Purpose:  model.PurposeJoin,
		FamilyID: family.ID,
	})
	if err != nil {
		return nil, err
	}
	err = m.notifier.Send(ctx, email, model.NotifyOTPCode, map[string]string{
		"name":    name,
		"code":    otp,
		"purpose": string(model.PurposeJoin),
		"minutes": strconv.Itoa(int(CodeTTL.Minutes())),
	})
	metrics.Notification(string(model.NotifyOTPCode), err)
	if err != nil {
		m.log.Error("send join code", "email", email, "family_id", family.ID, "err", err)
		return nil, internal("Failed to process join request", err)
	}
	return &CodeTicket{Email: email, FamilyID: family.ID}, nil
}

// JoinVerify redeems a join or invitation code for familyID, creating or
// attaching the account, and signs it in.
func (m *Membership) JoinVerify(ctx context.Context, email, code, familyID string) (*Session, error) {
	email = utils.NormalizeEmail(email)
	code, familyID = strings.TrimSpace(code), strings.TrimSpace(familyID)
	if email == "" || code == "" || familyID == "" {
		return nil, fail(ErrValidation, "Please provide email, OTP, and familyId")
	}

	var sess *Session
	err := m.tx.Do(ctx, func(ctx context.Context) error {
		v, err := m.otp.VerifyCode(ctx, email, code, model.PurposeJoin, model.PurposeInvitation)
		if err != nil {
			return err
		}
		if v.Meta.FamilyID != familyID {
			return fail(ErrInvalidOrExpired, "Invalid or expired OTP")
		}
		if _, err := m.families.GetByID(ctx, familyID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fail(ErrNotFound, "Family not found")
			}
			return internal("Failed to join family", err)
		}

		a, err := m.accounts.GetByEmail(ctx, email)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			role := model.RoleChild
			if v.Meta.Role.Valid() {
				role = v.Meta.Role
			}
			a = &model.Account{
				Name:          v.Name,
				Email:         email,
				FamilyID:      familyID,
				Role:          role,
				IsActive:      true,
				EmailVerified: true,
			}
			if err := m.accounts.Create(ctx, a); err != nil {
				if errors.Is(err, repository.ErrEmailExists) {
					return fail(ErrConflict, "User is already part of another family")
				}
				return internal("Failed to join family", err)
			}
		case err != nil:
			return internal("Failed to join family", err)
		default:
			if a.HasFamily() {
				return fail(ErrConflict, "User is already part of another family")
			}
			if v.Meta.Role.Valid() {
				a.Role = v.Meta.Role
			}
			if err := m.accounts.AttachToFamily(ctx, a.ID, familyID, a.Role); err != nil {
				return internal("Failed to join family", err)
			}
			a.FamilyID = familyID
			a.EmailVerified = true
		}

		if err := m.families.AddMember(ctx, familyID, a.ID); err != nil {
			return internal("Failed to join family", err)
		}
		if err := m.otp.Consume(ctx, v.ID); err != nil {
			return err
		}
		pair, err := m.tokens.Rotate(ctx, a)
		if err != nil {
			return err
		}
		sess = &Session{Account: a, Pair: pair}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info("joined family", "account_id", sess.Account.ID, "family_id", familyID, "role", sess.Account.Role)
	return sess, nil
}

// UpdateRole reassigns the role of a member.  Only premium parents may do so.
func (m *Membership) UpdateRole(ctx context.Context, parent *model.Account, userID, roleName string) (*model.Account, error) {
	if parent == nil || !parent.IsPremium {
		return nil, fail(ErrForbidden, "Role customization requires a premium account")
	}
	userID, roleName = strings.TrimSpace(userID), strings.TrimSpace(roleName)
	if userID == "" || roleName == "" {
		return nil, fail(ErrValidation, "Please provide userId and roleName")
	}
	role, ok := model.ParseRole(roleName)
	if !ok {
		return nil, fail(ErrValidation, "Invalid role. Must be Parent or Child")
	}

	var updated *model.Account
	err := m.tx.Do(ctx, func(ctx context.Context) error {
		family, err := m.familyOf(ctx, parent)
		if err != nil {
			return err
		}
		if err := m.requireMember(ctx, family.ID, userID); err != nil {
			return err
		}
		if err := m.accounts.UpdateRole(ctx, userID, role); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fail(ErrNotFound, "User not found")
			}
			return internal("Failed to update role", err)
		}
		updated, err = m.accounts.GetByID(ctx, userID)
		if err != nil {
			return internal("Failed to update role", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info("role updated", "parent_id", parent.ID, "account_id", userID, "role", role)
	return updated, nil
}

// RemoveMember takes a member out of the parent's family and applies the
// removal policy to the account.  Parents cannot remove themselves.
func (m *Membership) RemoveMember(ctx context.Context, parent *model.Account, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fail(ErrValidation, "Please provide userId")
	}
	if parent == nil || userID == parent.ID {
		return fail(ErrValidation, "Cannot remove yourself from the family")
	}

	err := m.tx.Do(ctx, func(ctx context.Context) error {
		family, err := m.familyOf(ctx, parent)
		if err != nil {
			return err
		}
		if err := m.requireMember(ctx, family.ID, userID); err != nil {
			return err
		}
		if err := m.families.RemoveMember(ctx, family.ID, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fail(ErrValidation, "User is not a member of this family")
			}
			return internal("Failed to remove member", err)
		}
		switch m.cfg.Removal {
		case RemovalDetach:
			err = m.accounts.Detach(ctx, userID)
		default:
			err = m.accounts.Delete(ctx, userID)
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return internal("Failed to remove member", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.log.Info("member removed", "parent_id", parent.ID, "account_id", userID, "policy", m.cfg.Removal)
	return nil
}

// ListMembers returns the member projection of the parent's family.
func (m *Membership) ListMembers(ctx context.Context, parent *model.Account) ([]model.Member, error) {
	family, err := m.familyOf(ctx, parent)
	if err != nil {
		return nil, err
	}
	members, err := m.accounts.ListMembers(ctx, family.ID)
	if err != nil {
		return nil, internal("Failed to retrieve family members", err)
	}
	return members, nil
}

func (m *Membership) familyOf(ctx context.Context, a *model.Account) (*model.Family, error) {
	if a == nil || !a.HasFamily() {
		return nil, fail(ErrNotFound, "Family not found")
	}
	f, err := m.families.GetByID(ctx, a.FamilyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fail(ErrNotFound, "Family not found")
		}
		return nil, internal("Failed to load family", err)
	}
	return f, nil
}

func (m *Membership) requireMember(ctx context.Context, familyID, accountID string) error {
	ok, err := m.families.IsMember(ctx, familyID, accountID)
	if err != nil {
		return internal("Failed to check membership", err)
	}
	if !ok {
		return fail(ErrValidation, "User is not a member of this family")
	}
	return nil
}
