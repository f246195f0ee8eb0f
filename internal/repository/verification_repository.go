package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
)

// VerificationRepo persists pending one-time codes.  Several codes may be
// outstanding for one email; nothing is unique except the id.
type VerificationRepo struct{ DB *sql.DB }

func NewVerificationRepo(db *sql.DB) *VerificationRepo { return &VerificationRepo{DB: db} }

// Create inserts a pending verification.
func (r *VerificationRepo) Create(ctx context.Context, v *model.Verification) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.Email = strings.ToLower(strings.TrimSpace(v.Email))
	v.CreatedAt = time.Now().UTC()
	_, err := conn(ctx, r.DB).ExecContext(ctx,
		`INSERT INTO pending_verifications (id, email, name, code_hash, expires_at, purpose, family_id, role, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		v.ID, v.Email, v.Name, v.CodeHash, v.ExpiresAt.UTC(), string(v.Meta.Purpose), nullString(v.Meta.FamilyID),
		nullString(string(v.Meta.Role)), v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

// ListActive returns the codes for email that expire after now, newest
// first.
func (r *VerificationRepo) ListActive(ctx context.Context, email string, now time.Time) ([]model.Verification, error) {
	rows, err := conn(ctx, r.DB).QueryContext(ctx,
		`SELECT id, email, name, code_hash, expires_at, purpose, family_id, role, created_at
		   FROM pending_verifications
		  WHERE email=? AND expires_at > ?
		  ORDER BY created_at DESC`,
		strings.ToLower(strings.TrimSpace(email)), now.UTC())
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	defer rows.Close()

	out := []model.Verification{}
	for rows.Next() {
		var (
			v        model.Verification
			purpose  string
			familyID sql.NullString
			role     sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.Email, &v.Name, &v.CodeHash, &v.ExpiresAt, &purpose, &familyID, &role, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		v.Meta = model.VerificationMeta{Purpose: model.Purpose(purpose), FamilyID: familyID.String, Role: model.Role(role.String)}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	return out, nil
}

// Delete removes the verification with id.  It reports ErrNotFound when the
// row is already gone, which makes consumption a compare-and-delete: of two
// concurrent consumers exactly one sees success.
func (r *VerificationRepo) Delete(ctx context.Context, id string) error {
	res, err := conn(ctx, r.DB).ExecContext(ctx, "DELETE FROM pending_verifications WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete verification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete verification: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired purges every code whose expiry is at or before now.
func (r *VerificationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := conn(ctx, r.DB).ExecContext(ctx,
		"DELETE FROM pending_verifications WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge verifications: %w", err)
	}
	return res.RowsAffected()
}
