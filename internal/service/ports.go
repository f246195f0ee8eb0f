package service

import (
	"context"
	"time"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
)

// Accounts is the account half of the credential store.  Lookups report
// repository.ErrNotFound when nothing matches.
type Accounts interface {
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByEmailInFamily(ctx context.Context, email, familyID string) (*model.Account, error)
	GetByRefreshHash(ctx context.Context, hash string) (*model.Account, error)
	Create(ctx context.Context, a *model.Account) error
	AttachToFamily(ctx context.Context, id, familyID string, role model.Role) error
	MarkEmailVerified(ctx context.Context, id string) error
	UpdateRole(ctx context.Context, id string, role model.Role) error
	SetRefreshHash(ctx context.Context, id, hash string) error
	Detach(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ListMembers(ctx context.Context, familyID string) ([]model.Member, error)
}

// Families stores households and their member sets.
type Families interface {
	Create(ctx context.Context, f *model.Family) error
	GetByID(ctx context.Context, id string) (*model.Family, error)
	GetByCode(ctx context.Context, code string) (*model.Family, error)
	AddMember(ctx context.Context, familyID, accountID string) error
	RemoveMember(ctx context.Context, familyID, accountID string) error
	IsMember(ctx context.Context, familyID, accountID string) (bool, error)
}

// Verifications stores pending one-time codes.  Delete must be a
// compare-and-delete reporting repository.ErrNotFound when the row is gone.
type Verifications interface {
	Create(ctx context.Context, v *model.Verification) error
	ListActive(ctx context.Context, email string, now time.Time) ([]model.Verification, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Revocations is the shared, TTL-bounded list of revoked access tokens.
type Revocations interface {
	Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}

// Notifier delivers templated messages.  A returned error aborts the
// operation that triggered the notification.
type Notifier interface {
	Send(ctx context.Context, to string, kind model.NotificationKind, data map[string]string) error
}

// TxRunner runs fn atomically; stores called with the context passed to fn
// take part in the same transaction.
type TxRunner interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoTx runs fn directly.  It suits stores that are already atomic per call.
type NoTx struct{}

func (NoTx) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
