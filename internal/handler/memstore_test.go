package handler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/repository"
)

// memStore is an in-memory credential store covering the account, family
// and verification ports.  Method sets are split across three views because
// the ports share method names.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]model.Account
	families map[string]model.Family
	members  map[string]map[string]bool
	codes    map[string]model.Verification
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]model.Account{},
		families: map[string]model.Family{},
		members:  map[string]map[string]bool{},
		codes:    map[string]model.Verification{},
	}
}

type memAccounts struct{ *memStore }
type memFamilies struct{ *memStore }
type memCodes struct{ *memStore }

func (s memAccounts) find(match func(model.Account) bool) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if match(a) {
			cp := a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memAccounts) mutate(id string, fn func(*model.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&a)
	s.accounts[id] = a
	return nil
}

func (s memAccounts) GetByID(_ context.Context, id string) (*model.Account, error) {
	return s.find(func(a model.Account) bool { return a.ID == id })
}

func (s memAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	return s.find(func(a model.Account) bool { return a.Email == email })
}

func (s memAccounts) GetByEmailInFamily(_ context.Context, email, familyID string) (*model.Account, error) {
	return s.find(func(a model.Account) bool { return a.Email == email && a.FamilyID == familyID })
}

func (s memAccounts) GetByRefreshHash(_ context.Context, hash string) (*model.Account, error) {
	if hash == "" {
		return nil, repository.ErrNotFound
	}
	return s.find(func(a model.Account) bool { return a.RefreshTokenHash == hash })
}

func (s memAccounts) Create(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Email == a.Email {
			return repository.ErrEmailExists
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.accounts[a.ID] = *a
	return nil
}

func (s memAccounts) AttachToFamily(_ context.Context, id, familyID string, role model.Role) error {
	return s.mutate(id, func(a *model.Account) { a.FamilyID, a.Role, a.EmailVerified = familyID, role, true })
}

func (s memAccounts) MarkEmailVerified(_ context.Context, id string) error {
	return s.mutate(id, func(a *model.Account) { a.EmailVerified = true })
}

func (s memAccounts) UpdateRole(_ context.Context, id string, role model.Role) error {
	return s.mutate(id, func(a *model.Account) { a.Role = role })
}

func (s memAccounts) SetRefreshHash(_ context.Context, id, hash string) error {
	return s.mutate(id, func(a *model.Account) { a.RefreshTokenHash = hash })
}

func (s memAccounts) Detach(_ context.Context, id string) error {
	return s.mutate(id, func(a *model.Account) { a.FamilyID, a.RefreshTokenHash = "", "" })
}

func (s memAccounts) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s memAccounts) ListMembers(_ context.Context, familyID string) ([]model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Member
	for _, a := range s.accounts {
		if a.FamilyID == familyID {
			out = append(out, model.Member{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role})
		}
	}
	return out, nil
}

func (s memFamilies) Create(_ context.Context, f *model.Family) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.families {
		if existing.Code == f.Code {
			return repository.ErrCodeExists
		}
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	s.families[f.ID] = *f
	s.members[f.ID] = map[string]bool{}
	return nil
}

func (s memFamilies) GetByID(_ context.Context, id string) (*model.Family, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.families[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &f, nil
}

func (s memFamilies) GetByCode(_ context.Context, code string) (*model.Family, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.families {
		if f.Code == code {
			cp := f
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memFamilies) AddMember(_ context.Context, familyID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[familyID]; !ok {
		return repository.ErrNotFound
	}
	s.members[familyID][accountID] = true
	return nil
}

func (s memFamilies) RemoveMember(_ context.Context, familyID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.members[familyID][accountID] {
		return repository.ErrNotFound
	}
	delete(s.members[familyID], accountID)
	return nil
}

func (s memFamilies) IsMember(_ context.Context, familyID, accountID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[familyID][accountID], nil
}

func (s memCodes) Create(_ context.Context, v *model.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	s.codes[v.ID] = *v
	return nil
}

func (s memCodes) ListActive(_ context.Context, email string, now time.Time) ([]model.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Verification
	for _, v := range s.codes {
		if v.Email == email && v.ExpiresAt.After(now) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s memCodes) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.codes, id)
	return nil
}

func (s memCodes) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, v := range s.codes {
		if !v.ExpiresAt.After(now) {
			delete(s.codes, id)
			n++
		}
	}
	return n, nil
}

// outbox records notifications so tests can read the mailed codes.
type outbox struct {
	mu   sync.Mutex
	last map[string]map[string]string
}

func (o *outbox) Send(_ context.Context, to string, _ model.NotificationKind, data map[string]string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		o.last = map[string]map[string]string{}
	}
	o.last[to] = data
	return nil
}

func (o *outbox) code(to string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last[to]["code"]
}
