package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/metrics"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/repository"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/utils"
)

// Code lifetimes.
const (
	CodeTTL       = 10 * time.Minute
	InvitationTTL = 24 * time.Hour
)

// OTPEngine issues and redeems one-time codes.  Only bcrypt hashes of the
// codes are stored.
type OTPEngine struct {
	store Verifications
	cost  int
	now   func() time.Time
	log   *slog.Logger
}

func NewOTPEngine(store Verifications, hashCost int, logger *slog.Logger) *OTPEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &OTPEngine{store: store, cost: hashCost, now: time.Now, log: logger}
}

// Generate returns a fresh six digit code without recording it.
func (e *OTPEngine) Generate() (string, error) {
	code, err := utils.NewOTPCode()
	if err != nil {
		return "", internal("Failed to generate code", err)
	}
	return code, nil
}

// Record stores code for email, valid for ttl from now.
func (e *OTPEngine) Record(ctx context.Context, email, name, code string, ttl time.Duration, meta model.VerificationMeta) (*model.Verification, error) {
	hash, err := utils.HashCode(code, e.cost)
	if err != nil {
		return nil, internal("Failed to store code", err)
	}
	v := &model.Verification{
		Email:     utils.NormalizeEmail(email),
		Name:      name,
		CodeHash:  hash,
		ExpiresAt: e.now().UTC().Add(ttl),
		Meta:      meta,
	}
	if err := e.store.Create(ctx, v); err != nil {
		return nil, internal("Failed to store code", err)
	}
	metrics.OTPIssued(string(meta.Purpose))
	return v, nil
}

// RequestCode generates and records a code.  Outstanding codes for the same
// email stay valid.
func (e *OTPEngine) RequestCode(ctx context.Context, email, name string, ttl time.Duration, meta model.VerificationMeta) (string, error) {
	code, err := e.Generate()
	if err != nil {
		return "", err
	}
	if _, err := e.Record(ctx, email, name, code, ttl, meta); err != nil {
		return "", err
	}
	return code, nil
}

// VerifyCode returns the unexpired verification for email whose code
// matches and whose purpose is one of purposes.  It does not consume it.
func (e *OTPEngine) VerifyCode(ctx context.Context, email, code string, purposes ...model.Purpose) (*model.Verification, error) {
	if !utils.WellFormedOTP(code) {
		metrics.OTPVerification("rejected")
		return nil, fail(ErrInvalidOrExpired, "Invalid or expired OTP")
	}
	now := e.now()
	list, err := e.store.ListActive(ctx, email, now)
	if err != nil {
		return nil, internal("Failed to verify code", err)
	}
	for i := range list {
		v := list[i]
		if v.Expired(now) || !purposeIn(v.Meta.Purpose, purposes) {
			continue
		}
		if utils.CodeMatches(v.CodeHash, code) {
			metrics.OTPVerification("ok")
			return &v, nil
		}
	}
	metrics.OTPVerification("rejected")
	return nil, fail(ErrInvalidOrExpired, "Invalid or expired OTP")
}

// Consume deletes the verification.  Of concurrent consumers of the same
// code only one succeeds; the others see ErrInvalidOrExpired.
func (e *OTPEngine) Consume(ctx context.Context, id string) error {
	if err := e.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(ErrInvalidOrExpired, "Invalid or expired OTP")
		}
		return internal("Failed to consume code", err)
	}
	return nil
}

// Redeem verifies and consumes a code in one step.
func (e *OTPEngine) Redeem(ctx context.Context, email, code string, purposes ...model.Purpose) (*model.Verification, error) {
	v, err := e.VerifyCode(ctx, email, code, purposes...)
	if err != nil {
		return nil, err
	}
	if err := e.Consume(ctx, v.ID); err != nil {
		return nil, err
	}
	return v, nil
}

// Purge removes expired verifications.
func (e *OTPEngine) Purge(ctx context.Context) (int64, error) {
	return e.store.DeleteExpired(ctx, e.now())
}

// RunJanitor purges expired verifications every interval until ctx ends.
func (e *OTPEngine) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := e.Purge(ctx)
			if err != nil {
				e.log.Error("purge expired codes", "err", err)
				continue
			}
			if n > 0 {
				e.log.Debug("purged expired codes", "count", n)
			}
		}
	}
}

func purposeIn(p model.Purpose, set []model.Purpose) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if p == s {
			return true
		}
	}
	return false
}
