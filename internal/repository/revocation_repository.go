package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationRepo is the shared list of revoked access tokens.  Entries are
// keyed by token digest and expire together with the token they revoke, so
// the list never outgrows the set of still-valid tokens.
type RevocationRepo struct {
	rdb    *redis.Client
	prefix string
}

func NewRevocationRepo(rdb *redis.Client, prefix string) *RevocationRepo {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RevocationRepo{rdb: rdb, prefix: prefix}
}

func (r *RevocationRepo) key(tokenHash string) string {
	return r.prefix + ":" + tokenHash
}

// Revoke records tokenHash for ttl.  A non-positive ttl means the token has
// already expired and nothing is stored.
func (r *RevocationRepo) Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.rdb.SetEx(ctx, r.key(tokenHash), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenHash is on the list.
func (r *RevocationRepo) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(tokenHash)).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}
