package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/utils"
)

func TestRotateInvalidatesPreviousRefreshToken(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	ctx := context.Background()

	first, err := h.tokens.Rotate(ctx, &h.jane)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if _, err := h.tokens.VerifyRefresh(ctx, first.RefreshToken); err != nil {
		t.Fatalf("fresh refresh token rejected: %v", err)
	}

	second, err := h.tokens.Rotate(ctx, &h.jane)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("rotation must produce a new refresh token")
	}
	_, err = h.tokens.VerifyRefresh(ctx, first.RefreshToken)
	requireKind(t, err, ErrInvalidRefreshToken)
	requireKind(t, err, ErrUnauthorized)

	a, err := h.tokens.VerifyRefresh(ctx, second.RefreshToken)
	if err != nil || a.ID != h.jane.ID {
		t.Fatalf("current refresh token rejected: %v", err)
	}
}

func TestVerifyRefreshRequiresValidSignature(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	ctx := context.Background()

	forged, err := utils.NewRefreshToken("wrong-secret", h.jane.ID, time.Hour, h.clock.Now())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	// Stored digest matches, signature does not.
	_ = h.accounts.SetRefreshHash(ctx, h.jane.ID, utils.HashToken(forged.Token))
	_, err = h.tokens.VerifyRefresh(ctx, forged.Token)
	requireKind(t, err, ErrInvalidRefreshToken)
}

func TestVerifyRefreshRejectsExpired(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	ctx := context.Background()
	pair, err := h.tokens.Rotate(ctx, &h.jane)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	h.clock.Advance(8 * 24 * time.Hour)
	_, err = h.tokens.VerifyRefresh(ctx, pair.RefreshToken)
	requireKind(t, err, ErrInvalidRefreshToken)
}

func TestRevokeAccessAcceptsExpiredTokens(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	ctx := context.Background()
	tok, err := h.tokens.IssueAccess(&h.jane)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	h.clock.Advance(30 * 24 * time.Hour)

	list, claims, err := h.tokens.RevokeAccess(ctx, tok.Token, []string{"older"})
	if err != nil {
		t.Fatalf("RevokeAccess: %v", err)
	}
	if claims.ID != h.jane.ID || len(list) != 2 || list[1] != utils.HashToken(tok.Token) {
		t.Fatalf("unexpected revoke result %v %+v", list, claims)
	}
	// Already expired, so nothing is kept in the shared list.
	if len(h.revocations.revoked) != 0 {
		t.Fatalf("expired token should not be stored in shared list")
	}
}

func TestRevokeAccessSharedTTLMatchesRemainingLifetime(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	ctx := context.Background()
	tok, _ := h.tokens.IssueAccess(&h.jane)
	h.clock.Advance(24 * time.Hour)

	if _, _, err := h.tokens.RevokeAccess(ctx, tok.Token, nil); err != nil {
		t.Fatalf("RevokeAccess: %v", err)
	}
	ttl := h.revocations.revoked[utils.HashToken(tok.Token)]
	if ttl != 6*24*time.Hour {
		t.Fatalf("ttl=%v, want 144h", ttl)
	}
}

func TestRevokeAccessRejectsGarbage(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	list, _, err := h.tokens.RevokeAccess(context.Background(), "not-a-jwt", []string{"x"})
	requireKind(t, err, ErrInvalidAccessToken)
	if len(list) != 1 {
		t.Fatalf("blacklist must be unchanged on failure")
	}
}

func TestBlacklistCarriesDigestsNotTokens(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	ctx := context.Background()
	tok, _ := h.tokens.IssueAccess(&h.jane)

	list, _, err := h.tokens.RevokeAccess(ctx, tok.Token, nil)
	if err != nil {
		t.Fatalf("RevokeAccess: %v", err)
	}
	if len(list) != 1 || list[0] != utils.HashToken(tok.Token) {
		t.Fatalf("blacklist = %v", list)
	}
	if again, _, _ := h.tokens.RevokeAccess(ctx, tok.Token, list); len(again) != 1 {
		t.Fatalf("revoking twice should not duplicate, got %v", again)
	}
	if !h.tokens.IsRevoked(ctx, tok.Token, list) {
		t.Fatal("digest in blacklist should revoke the token")
	}
	// The raw token itself is not a valid entry.
	h.revocations.revoked = map[string]time.Duration{}
	if h.tokens.IsRevoked(ctx, tok.Token, []string{tok.Token}) {
		t.Fatal("raw token in blacklist should not match")
	}
}

func TestIsRevokedFallsBackToClientListWhenSharedListFails(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	ctx := context.Background()
	revoked, _ := h.tokens.IssueAccess(&h.jane)
	live, _ := h.tokens.IssueAccess(&h.jane)
	list, _, err := h.tokens.RevokeAccess(ctx, revoked.Token, nil)
	if err != nil {
		t.Fatalf("RevokeAccess: %v", err)
	}

	h.revocations.readErr = errors.New("redis: connection refused")
	if !h.tokens.IsRevoked(ctx, revoked.Token, list) {
		t.Fatal("client list should still revoke")
	}
	if h.tokens.IsRevoked(ctx, live.Token, list) {
		t.Fatal("unrevoked token should pass when the shared list is down")
	}
	if _, _, err := h.gate.Authorize(ctx, "Bearer "+live.Token, list); err != nil {
		t.Fatalf("gate should not fail on shared list errors: %v", err)
	}
}
