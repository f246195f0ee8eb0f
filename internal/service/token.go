package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/metrics"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/repository"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/utils"
)

// TokenConfig carries secrets and lifetimes.  AccessLifetime is the
// configured lifetime string echoed to clients as expiresIn.
type TokenConfig struct {
	AccessSecret   string
	AccessTTL      time.Duration
	AccessLifetime string
	RefreshSecret  string
	RefreshTTL     time.Duration
}

// Pair is a freshly issued access/refresh token pair.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	ExpiresIn        string
}

// TokenEngine signs, verifies, rotates and revokes session tokens.  Each
// account has at most one live refresh token; its SHA-256 digest is stored
// on the account and rotation overwrites it.
type TokenEngine struct {
	cfg         TokenConfig
	accounts    Accounts
	revocations Revocations
	now         func() time.Time
	log         *slog.Logger
}

// NewTokenEngine builds the engine.  revocations may be nil, in which case
// revocation is carried only by the client-held list.
func NewTokenEngine(cfg TokenConfig, accounts Accounts, revocations Revocations, logger *slog.Logger) *TokenEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AccessLifetime == "" {
		cfg.AccessLifetime = cfg.AccessTTL.String()
	}
	return &TokenEngine{cfg: cfg, accounts: accounts, revocations: revocations, now: time.Now, log: logger}
}

// IssueAccess signs an access token carrying id, email and role.
func (t *TokenEngine) IssueAccess(a *model.Account) (utils.SignedToken, error) {
	tok, err := utils.NewAccessToken(t.cfg.AccessSecret, a.ID, a.Email, string(a.Role), t.cfg.AccessTTL, t.now())
	if err != nil {
		return utils.SignedToken{}, internal("Failed to issue token", err)
	}
	metrics.TokenIssued("access")
	return tok, nil
}

// IssueRefresh signs a refresh token carrying the id only.
func (t *TokenEngine) IssueRefresh(a *model.Account) (utils.SignedToken, error) {
	tok, err := utils.NewRefreshToken(t.cfg.RefreshSecret, a.ID, t.cfg.RefreshTTL, t.now())
	if err != nil {
		return utils.SignedToken{}, internal("Failed to issue token", err)
	}
	metrics.TokenIssued("refresh")
	return tok, nil
}

// Rotate issues a new pair and stores the new refresh digest, which makes
// every earlier refresh token for the account unusable.
func (t *TokenEngine) Rotate(ctx context.Context, a *model.Account) (Pair, error) {
	access, err := t.IssueAccess(a)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := t.IssueRefresh(a)
	if err != nil {
		return Pair{}, err
	}
	hash := utils.HashToken(refresh.Token)
	if err := t.accounts.SetRefreshHash(ctx, a.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Pair{}, fail(ErrNotFound, "User not found")
		}
		return Pair{}, internal("Failed to store session", err)
	}
	a.RefreshTokenHash = hash
	return Pair{
		AccessToken:      access.Token,
		AccessExpiresAt:  access.Exp,
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.Exp,
		ExpiresIn:        t.cfg.AccessLifetime,
	}, nil
}

// VerifyRefresh resolves the account owning raw.  The token must be the one
// currently stored and must verify against the refresh secret.
func (t *TokenEngine) VerifyRefresh(ctx context.Context, raw string) (*model.Account, error) {
	a, err := t.accounts.GetByRefreshHash(ctx, utils.HashToken(raw))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fail(ErrInvalidRefreshToken, "Invalid refresh token")
		}
		return nil, internal("Token refresh failed", err)
	}
	claims, err := utils.ParseRefreshToken(t.cfg.RefreshSecret, raw, t.now())
	if err != nil {
		return nil, failWith(ErrInvalidRefreshToken, "Invalid or expired refresh token", err)
	}
	if claims.ID != a.ID {
		return nil, fail(ErrInvalidRefreshToken, "Invalid refresh token")
	}
	return a, nil
}

// ParseAccess verifies an access token's signature and expiry.
func (t *TokenEngine) ParseAccess(raw string) (*utils.AccessClaims, error) {
	return utils.ParseAccessToken(t.cfg.AccessSecret, raw, t.now())
}

// RevokeAccess adds the digest of raw to the client-held blacklist and to the
// shared revocation list until the token would have expired anyway.  Expired
// tokens are accepted.
func (t *TokenEngine) RevokeAccess(ctx context.Context, raw string, blacklist []string) ([]string, *utils.AccessClaims, error) {
	claims, err := utils.DecodeAccessToken(t.cfg.AccessSecret, raw)
	if err != nil {
		return blacklist, nil, failWith(ErrInvalidAccessToken, "Invalid access token", err)
	}
	digest := utils.HashToken(raw)
	out := slices.Clone(blacklist)
	if !slices.Contains(out, digest) {
		out = append(out, digest)
	}
	if t.revocations != nil && claims.ExpiresAt != nil {
		ttl := claims.ExpiresAt.Sub(t.now())
		if err := t.revocations.Revoke(ctx, digest, ttl); err != nil {
			return blacklist, nil, internal("Logout failed", err)
		}
	}
	return out, claims, nil
}

// IsRevoked checks the client-held blacklist of token digests first, then
// the shared list.  A shared list that cannot be read is logged and treated
// as empty, so the client-held list alone decides.
func (t *TokenEngine) IsRevoked(ctx context.Context, raw string, blacklist []string) bool {
	digest := utils.HashToken(raw)
	if slices.Contains(blacklist, digest) {
		return true
	}
	if t.revocations == nil {
		return false
	}
	revoked, err := t.revocations.IsRevoked(ctx, digest)
	if err != nil {
		t.log.Warn("shared revocation list unavailable, using client list only", "err", err)
		return false
	}
	return revoked
}

// ClearRefresh drops the stored refresh digest of the account.
func (t *TokenEngine) ClearRefresh(ctx context.Context, accountID string) error {
	if err := t.accounts.SetRefreshHash(ctx, accountID, ""); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(ErrNotFound, "User not found")
		}
		return internal("Logout failed", err)
	}
	return nil
}
