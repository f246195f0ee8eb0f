package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/metrics"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/repository"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/utils"
)

// familyCodeAttempts bounds retries when a generated join code collides.
const familyCodeAttempts = 5

// Session is the result of every flow that signs a caller in.
type Session struct {
	Account *model.Account
	Pair    Pair
}

// CodeTicket tells the caller where a code was sent and which family it
// is bound to.
type CodeTicket struct {
	Email    string `json:"email"`
	FamilyID string `json:"familyId"`
}

// Profile is the authenticated account with its permission table.
type Profile struct {
	Account      *model.Account
	Permissions  model.Permissions
	Customizable bool
}

// SessionService runs the registration, login, refresh and logout flows.
type SessionService struct {
	accounts Accounts
	families Families
	otp      *OTPEngine
	tokens   *TokenEngine
	notifier Notifier
	tx       TxRunner
	log      *slog.Logger
}

func NewSessionService(accounts Accounts, families Families, otp *OTPEngine, tokens *TokenEngine,
	notifier Notifier, tx TxRunner, logger *slog.Logger) *SessionService {
	if tx == nil {
		tx = NoTx{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{accounts: accounts, families: families, otp: otp, tokens: tokens,
		notifier: notifier, tx: tx, log: logger}
}

// RegisterParentRequest creates the family and mails a registration code to
// the future parent.
func (s *SessionService) RegisterParentRequest(ctx context.Context, name, email, familyName string) (*CodeTicket, error) {
	name, familyName = strings.TrimSpace(name), strings.TrimSpace(familyName)
	email = utils.NormalizeEmail(email)
	if name == "" || email == "" || familyName == "" {
		return nil, fail(ErrValidation, "Please provide all required fields: name, email, and familyName")
	}
	if !utils.ValidEmail(email) {
		return nil, fail(ErrValidation, "Please provide a valid email address")
	}
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, fail(ErrConflict, "Email already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, internal("Registration failed", err)
	}

	family, err := s.createFamily(ctx, familyName)
	if err != nil {
		return nil, err
	}

	code, err := s.otp.RequestCode(ctx, email, name, CodeTTL, model.VerificationMeta{
		Purpose:  model.PurposeRegistration,
		FamilyID: family.ID,
		Role:     model.RoleParent,
	})
	if err != nil {
		return nil, err
	}
	if err := s.sendCode(ctx, email, name, code, model.PurposeRegistration); err != nil {
		return nil, err
	}
	s.log.Info("registration code issued", "email", email, "family_id", family.ID)
	return &CodeTicket{Email: email, FamilyID: family.ID}, nil
}

func (s *SessionService) createFamily(ctx context.Context, name string) (*model.Family, error) {
	for i := 0; i < familyCodeAttempts; i++ {
		code, err := utils.NewFamilyCode()
		if err != nil {
			return nil, internal("Registration failed", err)
		}
		f := &model.Family{Name: name, Code: code}
		err = s.families.Create(ctx, f)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, repository.ErrCodeExists) {
			return nil, internal("Registration failed", err)
		}
	}
	return nil, internal("Registration failed", errors.New("could not allocate a unique family code"))
}

// RegisterParentVerify redeems a registration code, creates the verified
// parent account in the family and signs it in.  An existing unverified
// account of the same family (see ResendVerification) is verified instead.
func (s *SessionService) RegisterParentVerify(ctx context.Context, email, code, familyID string) (*Session, error) {
	email = utils.NormalizeEmail(email)
	code, familyID = strings.TrimSpace(code), strings.TrimSpace(familyID)
	if email == "" || code == "" || familyID == "" {
		return nil, fail(ErrValidation, "Please provide email, OTP, and familyId")
	}

	var sess *Session
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		v, err := s.otp.VerifyCode(ctx, email, code, model.PurposeRegistration)
		if err != nil {
			return err
		}
		if v.Meta.FamilyID != familyID {
			return fail(ErrInvalidOrExpired, "Invalid or expired OTP")
		}
		if _, err := s.families.GetByID(ctx, familyID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fail(ErrNotFound, "Family not found")
			}
			return internal("Verification failed", err)
		}

		a, err := s.accounts.GetByEmail(ctx, email)
		switch {
		case err == nil:
			if a.EmailVerified || a.FamilyID != familyID {
				return fail(ErrConflict, "Email already registered")
			}
			if err := s.accounts.MarkEmailVerified(ctx, a.ID); err != nil {
				return internal("Verification failed", err)
			}
			a.EmailVerified = true
		case errors.Is(err, repository.ErrNotFound):
			role := v.Meta.Role
			if !role.Valid() {
				role = model.RoleParent
			}
			a = &model.Account{
				Name:          v.Name,
				Email:         email,
				FamilyID:      familyID,
				Role:          role,
				IsActive:      true,
				EmailVerified: true,
			}
			if err := s.accounts.Create(ctx, a); err != nil {
				if errors.Is(err, repository.ErrEmailExists) {
					return fail(ErrConflict, "Email already registered")
				}
				return internal("Verification failed", err)
			}
		default:
			return internal("Verification failed", err)
		}

		if err := s.families.AddMember(ctx, familyID, a.ID); err != nil {
			return internal("Verification failed", err)
		}
		if err := s.otp.Consume(ctx, v.ID); err != nil {
			return err
		}
		pair, err := s.tokens.Rotate(ctx, a)
		if err != nil {
			return err
		}
		sess = &Session{Account: a, Pair: pair}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("parent registered", "account_id", sess.Account.ID, "family_id", familyID)
	return sess, nil
}

// LoginRequest mails a login code to a verified parent.
func (s *SessionService) LoginRequest(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return fail(ErrValidation, "Please provide email")
	}
	a, err := s.loginAccount(ctx, email)
	if err != nil {
		return err
	}
	code, err := s.otp.RequestCode(ctx, email, a.Name, CodeTTL, model.VerificationMeta{Purpose: model.PurposeLogin})
	if err != nil {
		return err
	}
	if err := s.sendCode(ctx, email, a.Name, code, model.PurposeLogin); err != nil {
		return err
	}
	s.log.Info("login code issued", "account_id", a.ID)
	return nil
}

// LoginVerify redeems a login code and signs the parent in.
func (s *SessionService) LoginVerify(ctx context.Context, email, code string) (*Session, error) {
	email, code = utils.NormalizeEmail(email), strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, fail(ErrValidation, "Please provide email and OTP")
	}
	var sess *Session
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		v, err := s.otp.VerifyCode(ctx, email, code, model.PurposeLogin)
		if err != nil {
			return err
		}
		a, err := s.loginAccount(ctx, email)
		if err != nil {
			return err
		}
		if err := s.otp.Consume(ctx, v.ID); err != nil {
			return err
		}
		pair, err := s.tokens.Rotate(ctx, a)
		if err != nil {
			return err
		}
		sess = &Session{Account: a, Pair: pair}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("login succeeded", "account_id", sess.Account.ID)
	return sess, nil
}

// loginAccount enforces that only verified parents sign in by code.
func (s *SessionService) loginAccount(ctx context.Context, email string) (*model.Account, error) {
	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fail(ErrValidation, "No parent account found with this email")
		}
		return nil, internal("Login failed", err)
	}
	if a.Role != model.RoleParent {
		return nil, fail(ErrValidation, "No parent account found with this email")
	}
	if !a.EmailVerified {
		return nil, fail(ErrForbidden, "Please verify your email before logging in")
	}
	return a, nil
}

// ResendVerification mails a fresh registration code to an unverified
// account.
func (s *SessionService) ResendVerification(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return fail(ErrValidation, "Please provide your email address")
	}
	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(ErrNotFound, "No account found with this email")
		}
		return internal("Failed to resend verification OTP", err)
	}
	if a.EmailVerified {
		return fail(ErrValidation, "Email is already verified")
	}
	code, err := s.otp.RequestCode(ctx, email, a.Name, CodeTTL, model.VerificationMeta{
		Purpose:  model.PurposeRegistration,
		FamilyID: a.FamilyID,
		Role:     a.Role,
	})
	if err != nil {
		return err
	}
	return s.sendCode(ctx, email, a.Name, code, model.PurposeRegistration)
}

// Refresh exchanges the stored refresh token for a new pair.
func (s *SessionService) Refresh(ctx context.Context, raw string) (*Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fail(ErrValidation, "Refresh token is required")
	}
	a, err := s.tokens.VerifyRefresh(ctx, raw)
	if err != nil {
		return nil, err
	}
	if !a.EmailVerified {
		return nil, fail(ErrForbidden, "Email not verified")
	}
	pair, err := s.tokens.Rotate(ctx, a)
	if err != nil {
		return nil, err
	}
	return &Session{Account: a, Pair: pair}, nil
}

// Logout revokes the bearer access token and drops the stored refresh
// token.  It returns the updated client-held blacklist.
func (s *SessionService) Logout(ctx context.Context, header string, blacklist []string) ([]string, error) {
	raw, ok := BearerToken(header)
	if !ok {
		return blacklist, fail(ErrValidation, "Access token is required")
	}
	updated, claims, err := s.tokens.RevokeAccess(ctx, raw, blacklist)
	if err != nil {
		return blacklist, err
	}
	if err := s.tokens.ClearRefresh(ctx, claims.ID); err != nil {
		return updated, err
	}
	s.log.Info("logged out", "account_id", claims.ID)
	return updated, nil
}

// Profile returns the account with the permission table of its role.
func (s *SessionService) Profile(_ context.Context, a *model.Account) (*Profile, error) {
	if a == nil {
		return nil, fail(ErrUnauthorized, "Not authorized to access this route")
	}
	return &Profile{Account: a, Permissions: a.Role.Permissions(), Customizable: a.Role.Customizable()}, nil
}

func (s *SessionService) sendCode(ctx context.Context, email, name, code string, purpose model.Purpose) error {
	err := s.notifier.Send(ctx, email, model.NotifyOTPCode, map[string]string{
		"name":    name,
		"code":    code,
		"purpose": string(purpose),
		"minutes": strconv.Itoa(int(CodeTTL.Minutes())),
	})
	metrics.Notification(string(model.NotifyOTPCode), err)
	if err != nil {
		s.log.Error("send code", "email", email, "err", err)
		return internal("Failed to send verification email", err)
	}
	return nil
}
