package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/metrics"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/repository"
)

// Gate authorizes requests carrying a bearer access token.
type Gate struct {
	tokens   *TokenEngine
	accounts Accounts
}

func NewGate(tokens *TokenEngine, accounts Accounts) *Gate {
	return &Gate{tokens: tokens, accounts: accounts}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// Authorize runs the gate steps in order and stops at the first failure:
// token present, not revoked, valid signature and expiry, account exists,
// account active.  It returns the resolved account and the raw token.
func (g *Gate) Authorize(ctx context.Context, header string, blacklist []string) (*model.Account, string, error) {
	raw, ok := BearerToken(header)
	if !ok {
		metrics.GateRejected("missing_token")
		return nil, "", fail(ErrUnauthorized, "Not authorized to access this route")
	}

	if g.tokens.IsRevoked(ctx, raw, blacklist) {
		metrics.GateRejected("revoked")
		return nil, "", fail(ErrUnauthorized, "Your session has been logged out")
	}

	claims, err := g.tokens.ParseAccess(raw)
	if err != nil {
		metrics.GateRejected("invalid_token")
		return nil, "", failWith(ErrUnauthorized, "Token is invalid or expired", err)
	}

	a, err := g.accounts.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.GateRejected("unknown_account")
			return nil, "", fail(ErrUnauthorized, "User not found")
		}
		return nil, "", internal("Authorization failed", err)
	}

	if !a.IsActive {
		metrics.GateRejected("inactive")
		return nil, "", fail(ErrForbidden, "Your account is inactive")
	}
	return a, raw, nil
}

// RestrictTo rejects unless the account's role is one of roles.
func RestrictTo(a *model.Account, roles ...model.Role) error {
	if a == nil || !slices.Contains(roles, a.Role) {
		metrics.GateRejected("role")
		return fail(ErrForbidden, "You do not have permission to perform this action")
	}
	return nil
}
