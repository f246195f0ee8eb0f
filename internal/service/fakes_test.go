package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/repository"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeAccounts struct {
	mu   sync.Mutex
	byID map[string]model.Account
}

func newFakeAccounts() *fakeAccounts { return &fakeAccounts{byID: map[string]model.Account{}} }

func (f *fakeAccounts) find(match func(model.Account) bool) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if match(a) {
			cp := a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*model.Account, error) {
	return f.find(func(a model.Account) bool { return a.ID == id })
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	return f.find(func(a model.Account) bool { return a.Email == email })
}

func (f *fakeAccounts) GetByEmailInFamily(_ context.Context, email, familyID string) (*model.Account, error) {
	return f.find(func(a model.Account) bool { return a.Email == email && a.FamilyID == familyID })
}

func (f *fakeAccounts) GetByRefreshHash(_ context.Context, hash string) (*model.Account, error) {
	if hash == "" {
		return nil, repository.ErrNotFound
	}
	return f.find(func(a model.Account) bool { return a.RefreshTokenHash == hash })
}

func (f *fakeAccounts) Create(_ context.Context, a *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == a.Email {
			return repository.ErrEmailExists
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	f.byID[a.ID] = *a
	return nil
}

func (f *fakeAccounts) mutate(id string, fn func(*model.Account)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&a)
	f.byID[id] = a
	return nil
}

func (f *fakeAccounts) AttachToFamily(_ context.Context, id, familyID string, role model.Role) error {
	return f.mutate(id, func(a *model.Account) {
		a.FamilyID, a.Role, a.EmailVerified = familyID, role, true
	})
}

func (f *fakeAccounts) MarkEmailVerified(_ context.Context, id string) error {
	return f.mutate(id, func(a *model.Account) { a.EmailVerified = true })
}

func (f *fakeAccounts) UpdateRole(_ context.Context, id string, role model.Role) error {
	return f.mutate(id, func(a *model.Account) { a.Role = role })
}

func (f *fakeAccounts) SetRefreshHash(_ context.Context, id, hash string) error {
	return f.mutate(id, func(a *model.Account) { a.RefreshTokenHash = hash })
}

func (f *fakeAccounts) Detach(_ context.Context, id string) error {
	return f.mutate(id, func(a *model.Account) { a.FamilyID, a.RefreshTokenHash = "", "" })
}

func (f *fakeAccounts) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeAccounts) ListMembers(_ context.Context, familyID string) ([]model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Member{}
	for _, a := range f.byID {
		if a.FamilyID == familyID {
			out = append(out, model.Member{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role,
				IsPremium: a.IsPremium, EmailVerified: a.EmailVerified})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeFamilies struct {
	mu      sync.Mutex
	byID    map[string]model.Family
	members map[string]map[string]bool
}

func newFakeFamilies() *fakeFamilies {
	return &fakeFamilies{byID: map[string]model.Family{}, members: map[string]map[string]bool{}}
}

func (f *fakeFamilies) Create(_ context.Context, fam *model.Family) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Code == fam.Code {
			return repository.ErrCodeExists
		}
	}
	if fam.ID == "" {
		fam.ID = uuid.NewString()
	}
	f.byID[fam.ID] = *fam
	f.members[fam.ID] = map[string]bool{}
	return nil
}

func (f *fakeFamilies) GetByID(_ context.Context, id string) (*model.Family, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fam, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &fam, nil
}

func (f *fakeFamilies) GetByCode(_ context.Context, code string) (*model.Family, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fam := range f.byID {
		if fam.Code == code {
			cp := fam
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeFamilies) AddMember(_ context.Context, familyID, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[familyID]; !ok {
		return repository.ErrNotFound
	}
	f.members[familyID][accountID] = true
	return nil
}

func (f *fakeFamilies) RemoveMember(_ context.Context, familyID, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.members[familyID][accountID] {
		return repository.ErrNotFound
	}
	delete(f.members[familyID], accountID)
	return nil
}

func (f *fakeFamilies) IsMember(_ context.Context, familyID, accountID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[familyID][accountID], nil
}

type fakeVerifications struct {
	mu   sync.Mutex
	byID map[string]model.Verification
}

func newFakeVerifications() *fakeVerifications {
	return &fakeVerifications{byID: map[string]model.Verification{}}
}

func (f *fakeVerifications) Create(_ context.Context, v *model.Verification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	f.byID[v.ID] = *v
	return nil
}

func (f *fakeVerifications) ListActive(_ context.Context, email string, now time.Time) ([]model.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Verification{}
	for _, v := range f.byID {
		if v.Email == email && v.ExpiresAt.After(now) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVerifications) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeVerifications) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, v := range f.byID {
		if !v.ExpiresAt.After(now) {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeVerifications) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	readErr error
}

func (f *fakeRevocations) Revoke(_ context.Context, hash string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ttl > 0 {
		f.revoked[hash] = ttl
	}
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return false, f.readErr
	}
	_, ok := f.revoked[hash]
	return ok, nil
}

type sentMessage struct {
	To   string
	Kind model.NotificationKind
	Data map[string]string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, to string, kind model.NotificationKind, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{To: to, Kind: kind, Data: data})
	return nil
}

// lastCode returns the code of the latest message sent to email.
func (f *fakeNotifier) lastCode(t *testing.T, email string) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].To == email {
			return f.sent[i].Data["code"]
		}
	}
	t.Fatalf("no message sent to %s", email)
	return ""
}

type harness struct {
	clock         *fakeClock
	accounts      *fakeAccounts
	families      *fakeFamilies
	verifications *fakeVerifications
	revocations   *fakeRevocations
	notifier      *fakeNotifier
	otp           *OTPEngine
	tokens        *TokenEngine
	gate          *Gate
	sessions      *SessionService
	membership    *Membership

	smith model.Family
	jane  model.Account
	timmy model.Account
}

func newHarness(t *testing.T, removal RemovalPolicy) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		clock:         &fakeClock{t: time.Now().UTC().Truncate(time.Second)},
		accounts:      newFakeAccounts(),
		families:      newFakeFamilies(),
		verifications: newFakeVerifications(),
		revocations:   &fakeRevocations{revoked: map[string]time.Duration{}},
		notifier:      &fakeNotifier{},
	}
	h.otp = NewOTPEngine(h.verifications, 4, logger)
	h.otp.now = h.clock.Now
	h.tokens = NewTokenEngine(TokenConfig{
		AccessSecret:   "access-secret",
		AccessTTL:      7 * 24 * time.Hour,
		AccessLifetime: "7d",
		RefreshSecret:  "refresh-secret",
		RefreshTTL:     7 * 24 * time.Hour,
	}, h.accounts, h.revocations, logger)
	h.tokens.now = h.clock.Now
	h.gate = NewGate(h.tokens, h.accounts)
	h.sessions = NewSessionService(h.accounts, h.families, h.otp, h.tokens, h.notifier, NoTx{}, logger)
	h.membership = NewMembership(MembershipConfig{FrontendURL: "https://app.example.com/", Removal: removal},
		h.accounts, h.families, h.otp, h.tokens, h.notifier, NoTx{}, logger)

	ctx := context.Background()
	h.smith = model.Family{Name: "Smith Family", Code: "SMITH123"}
	if err := h.families.Create(ctx, &h.smith); err != nil {
		t.Fatalf("seed family: %v", err)
	}
	h.jane = model.Account{Name: "Jane Smith", Email: "jane@smith.com", FamilyID: h.smith.ID,
		Role: model.RoleParent, IsPremium: true, IsActive: true, EmailVerified: true}
	h.timmy = model.Account{Name: "Timmy Smith", Email: "timmy@smith.com", FamilyID: h.smith.ID,
		Role: model.RoleChild, IsActive: true, EmailVerified: true}
	for _, a := range []*model.Account{&h.jane, &h.timmy} {
		if err := h.accounts.Create(ctx, a); err != nil {
			t.Fatalf("seed account: %v", err)
		}
		if err := h.families.AddMember(ctx, h.smith.ID, a.ID); err != nil {
			t.Fatalf("seed member: %v", err)
		}
	}
	return h
}

// login signs jane in through the code flow.
func (h *harness) login(t *testing.T) *Session {
	t.Helper()
	ctx := context.Background()
	if err := h.sessions.LoginRequest(ctx, h.jane.Email); err != nil {
		t.Fatalf("LoginRequest: %v", err)
	}
	sess, err := h.sessions.LoginVerify(ctx, h.jane.Email, h.notifier.lastCode(t, h.jane.Email))
	if err != nil {
		t.Fatalf("LoginVerify: %v", err)
	}
	return sess
}

func requireKind(t *testing.T, err, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}
