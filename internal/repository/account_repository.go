package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
)

const accountColumns = "id,name,email,family_id,role,is_premium,is_active,email_verified,refresh_token_hash,created_at,updated_at"

// AccountRepo persists accounts in the 'accounts' table.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		a        model.Account
		familyID sql.NullString
		refresh  sql.NullString
		role     string
	)
	err := row.Scan(&a.ID, &a.Name, &a.Email, &familyID, &role, &a.IsPremium, &a.IsActive,
		&a.EmailVerified, &refresh, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.FamilyID = familyID.String
	a.RefreshTokenHash = refresh.String
	a.Role = model.Role(role)
	return &a, nil
}

func (r *AccountRepo) getOne(ctx context.Context, where string, args ...any) (*model.Account, error) {
	q := "SELECT " + accountColumns + " FROM accounts WHERE " + where + " LIMIT 1" + lockSuffix(ctx)
	a, err := scanAccount(conn(ctx, r.DB).QueryRowContext(ctx, q, args...))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("query account: %w", err)
	}
	return a, err
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return r.getOne(ctx, "id=?", id)
}

// GetByEmail fetches an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.getOne(ctx, "email=?", strings.ToLower(strings.TrimSpace(email)))
}

// GetByEmailInFamily fetches an account only if it belongs to familyID.
func (r *AccountRepo) GetByEmailInFamily(ctx context.Context, email, familyID string) (*model.Account, error) {
	return r.getOne(ctx, "email=? AND family_id=?", strings.ToLower(strings.TrimSpace(email)), familyID)
}

// GetByRefreshHash fetches the account whose stored refresh digest equals hash.
func (r *AccountRepo) GetByRefreshHash(ctx context.Context, hash string) (*model.Account, error) {
	if hash == "" {
		return nil, ErrNotFound
	}
	return r.getOne(ctx, "refresh_token_hash=?", hash)
}

// Create inserts the account, assigning an id when it has none.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	_, err := conn(ctx, r.DB).ExecContext(ctx,
		"INSERT INTO accounts ("+accountColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?)",
		a.ID, a.Name, a.Email, nullString(a.FamilyID), string(a.Role), a.IsPremium, a.IsActive,
		a.EmailVerified, nullString(a.RefreshTokenHash), now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepo) update(ctx context.Context, q string, args ...any) error {
	res, err := conn(ctx, r.DB).ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AttachToFamily sets the family and role of an account.  Joining proves
// control of the email, so the account is marked verified as well.
func (r *AccountRepo) AttachToFamily(ctx context.Context, id, familyID string, role model.Role) error {
	return r.update(ctx, "UPDATE accounts SET family_id=?, role=?, email_verified=TRUE WHERE id=?", familyID, string(role), id)
}

// MarkEmailVerified flags the account email as verified.
func (r *AccountRepo) MarkEmailVerified(ctx context.Context, id string) error {
	return r.update(ctx, "UPDATE accounts SET email_verified=TRUE WHERE id=?", id)
}

// UpdateRole reassigns the role of an account.
func (r *AccountRepo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	return r.update(ctx, "UPDATE accounts SET role=? WHERE id=?", string(role), id)
}

// SetRefreshHash stores the digest of the live refresh token.  An empty hash
// clears it.
func (r *AccountRepo) SetRefreshHash(ctx context.Context, id, hash string) error {
	return r.update(ctx, "UPDATE accounts SET refresh_token_hash=? WHERE id=?", nullString(hash), id)
}

// Detach returns the account to the pending-family state and ends its session.
func (r *AccountRepo) Detach(ctx context.Context, id string) error {
	return r.update(ctx, "UPDATE accounts SET family_id=NULL, refresh_token_hash=NULL WHERE id=?", id)
}

// Delete removes the account row.
func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	res, err := conn(ctx, r.DB).ExecContext(ctx, "DELETE FROM accounts WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMembers returns the member projection of a family, oldest first.
func (r *AccountRepo) ListMembers(ctx context.Context, familyID string) ([]model.Member, error) {
	rows, err := conn(ctx, r.DB).QueryContext(ctx,
		`SELECT a.id, a.name, a.email, a.role, a.is_premium, a.email_verified
		   FROM family_members m
		   JOIN accounts a ON a.id = m.account_id
		  WHERE m.family_id = ?
		  ORDER BY m.joined_at, a.name`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []model.Member{}
	for rows.Next() {
		var (
			m    model.Member
			role string
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &role, &m.IsPremium, &m.EmailVerified); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Role = model.Role(role)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}
