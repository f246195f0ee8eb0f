package service

import (
	"context"
	"errors"
	"testing"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/utils"
)

func TestRegistrationCreatesOneVerifiedParent(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	ctx := context.Background()

	ticket, err := h.sessions.RegisterParentRequest(ctx, "Rita Jones", "Rita@Jones.com", "Jones Family")
	if err != nil {
		t.Fatalf("RegisterParentRequest: %v", err)
	}
	if ticket.Email != "rita@jones.com" || ticket.FamilyID == "" {
		t.Fatalf("unexpected ticket %+v", ticket)
	}
	fam, err := h.families.GetByID(ctx, ticket.FamilyID)
	if err != nil || len(fam.Code) != 8 {
		t.Fatalf("family not created with a join code: %+v %v", fam, err)
	}

	code := h.notifier.lastCode(t, "rita@jones.com")
	sess, err := h.sessions.RegisterParentVerify(ctx, "rita@jones.com", code, ticket.FamilyID)
	if err != nil {
		t.Fatalf("RegisterParentVerify: %v", err)
	}
	a := sess.Account
	if !a.EmailVerified || a.Role != model.RoleParent || a.FamilyID != ticket.FamilyID {
		t.Fatalf("unexpected account %+v", a)
	}
	if ok, _ := h.families.IsMember(ctx, ticket.FamilyID, a.ID); !ok {
		t.Fatal("parent must be in the family member set")
	}
	if h.verifications.count() != 0 {
		t.Fatal("verification must be consumed")
	}
	if sess.Pair.AccessToken == "" || sess.Pair.RefreshToken == "" || sess.Pair.ExpiresIn != "7d" {
		t.Fatalf("unexpected pair %+v", sess.Pair)
	}

	_, err = h.sessions.RegisterParentVerify(ctx, "rita@jones.com", code, ticket.FamilyID)
	requireKind(t, err, ErrInvalidOrExpired)

	members, _ := h.accounts.ListMembers(ctx, ticket.FamilyID)
	if len(members) != 1 {
		t.Fatalf("expected exactly one account, got %d", len(members))
	}
}

func TestRegistrationValidation(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	ctx := context.Background()

	_, err := h.sessions.RegisterParentRequest(ctx, "", "a@b.co", "Fam")
	requireKind(t, err, ErrValidation)
	_, err = h.sessions.RegisterParentRequest(ctx, "A", "not-an-email", "Fam")
	requireKind(t, err, ErrValidation)
	_, err = h.sessions.RegisterParentRequest(ctx, "Jane", "jane@smith.com", "Fam")
	requireKind(t, err, ErrConflict)
}

func TestRegistrationCodeBoundToFamily(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	ctx := context.Background()
	ticket, err := h.sessions.RegisterParentRequest(ctx, "Rita", "rita@jones.com", "Jones Family")
	if err != nil {
		t.Fatalf("RegisterParentRequest: %v", err)
	}
	code := h.notifier.lastCode(t, "rita@jones.com")
	_, err = h.sessions.RegisterParentVerify(ctx, "rita@jones.com", code, h.smith.ID)
	requireKind(t, err, ErrInvalidOrExpired)
	if h.verifications.count() != 1 {
		t.Fatal("rejected attempt must not consume the code")
	}
	if _, err := h.sessions.RegisterParentVerify(ctx, "rita@jones.com", code, ticket.FamilyID); err != nil {
		t.Fatalf("RegisterParentVerify: %v", err)
	}
}

func TestRegistrationNotifierFailureAborts(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	h.notifier.err = errors.New("broker down")
	_, err := h.sessions.RegisterParentRequest(context.Background(), "Rita", "rita@jones.com", "Jones Family")
	requireKind(t, err, ErrInternal)
}

func TestLoginOnlyForVerifiedParents(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	ctx := context.Background()

	requireKind(t, h.sessions.LoginRequest(ctx, ""), ErrValidation)
	requireKind(t, h.sessions.LoginRequest(ctx, "nobody@x.com"), ErrValidation)
	requireKind(t, h.sessions.LoginRequest(ctx, h.timmy.Email), ErrValidation)

	_ = h.accounts.mutate(h.jane.ID, func(a *model.Account) { a.EmailVerified = false })
	requireKind(t, h.sessions.LoginRequest(ctx, h.jane.Email), ErrForbidden)
}

func TestLoginVerifyIssuesSession(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	sess := h.login(t)
	if sess.Account.ID != h.jane.ID {
		t.Fatalf("signed in as %s", sess.Account.ID)
	}
	stored, _ := h.accounts.GetByID(context.Background(), h.jane.ID)
	if stored.RefreshTokenHash == "" {
		t.Fatal("refresh digest must be stored")
	}
	_, err := h.sessions.LoginVerify(context.Background(), h.jane.Email, h.notifier.lastCode(t, h.jane.Email))
	requireKind(t, err, ErrInvalidOrExpired)
}

func TestRefreshRotates(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	ctx := context.Background()
	sess := h.login(t)

	_, err := h.sessions.Refresh(ctx, "")
	requireKind(t, err, ErrValidation)

	next, err := h.sessions.Refresh(ctx, sess.Pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	_, err = h.sessions.Refresh(ctx, sess.Pair.RefreshToken)
	requireKind(t, err, ErrInvalidRefreshToken)
	if _, err := h.sessions.Refresh(ctx, next.Pair.RefreshToken); err != nil {
		t.Fatalf("Refresh with rotated token: %v", err)
	}
}

func TestLogoutRevokesAccessAndRefresh(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	ctx := context.Background()
	sess := h.login(t)
	bearer := "Bearer " + sess.Pair.AccessToken

	if _, _, err := h.gate.Authorize(ctx, bearer, nil); err != nil {
		t.Fatalf("gate before logout: %v", err)
	}

	blacklist, err := h.sessions.Logout(ctx, bearer, nil)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(blacklist) != 1 || blacklist[0] != utils.HashToken(sess.Pair.AccessToken) {
		t.Fatalf("unexpected blacklist %v", blacklist)
	}

	// Same client context.
	_, _, err = h.gate.Authorize(ctx, bearer, blacklist)
	requireKind(t, err, ErrUnauthorized)
	// Another client that never saw the cookie.
	_, _, err = h.gate.Authorize(ctx, bearer, nil)
	requireKind(t, err, ErrUnauthorized)

	_, err = h.tokens.VerifyRefresh(ctx, sess.Pair.RefreshToken)
	requireKind(t, err, ErrInvalidRefreshToken)
}

func TestLogoutErrors(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	ctx := context.Background()

	_, err := h.sessions.Logout(ctx, "", nil)
	requireKind(t, err, ErrValidation)
	_, err = h.sessions.Logout(ctx, "Bearer junk", nil)
	requireKind(t, err, ErrInvalidAccessToken)

	sess := h.login(t)
	_ = h.accounts.Delete(ctx, h.jane.ID)
	_, err = h.sessions.Logout(ctx, "Bearer "+sess.Pair.AccessToken, nil)
	requireKind(t, err, ErrNotFound)
}

func TestResendVerification(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	ctx := context.Background()

	requireKind(t, h.sessions.ResendVerification(ctx, "nobody@x.com"), ErrNotFound)
	requireKind(t, h.sessions.ResendVerification(ctx, h.jane.Email), ErrValidation)

	_ = h.accounts.mutate(h.jane.ID, func(a *model.Account) { a.EmailVerified = false })
	if err := h.sessions.ResendVerification(ctx, h.jane.Email); err != nil {
		t.Fatalf("ResendVerification: %v", err)
	}
	code := h.notifier.lastCode(t, h.jane.Email)
	sess, err := h.sessions.RegisterParentVerify(ctx, h.jane.Email, code, h.smith.ID)
	if err != nil {
		t.Fatalf("verify resent code: %v", err)
	}
	if !sess.Account.EmailVerified || sess.Account.ID != h.jane.ID {
		t.Fatalf("expected jane verified, got %+v", sess.Account)
	}
}

func TestProfileCarriesPermissions(t *testing.T) {
	h := newHarness(t, RemovalDelete)
	p, err := h.sessions.Profile(context.Background(), &h.timmy)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Permissions[model.DomainCalendar].Write {
		t.Fatal("child must not write the calendar")
	}
	if !p.Permissions[model.DomainShoppingList].Write {
		t.Fatal("child must write the shopping list")
	}
	if p.Customizable {
		t.Fatal("child must not customise roles")
	}
	if p, _ := h.sessions.Profile(context.Background(), &h.jane); !p.Customizable {
		t.Fatal("parent should customise roles")
	}
}
