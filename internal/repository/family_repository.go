package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
)

// FamilyRepo persists families and their member sets.
type FamilyRepo struct{ DB *sql.DB }

func NewFamilyRepo(db *sql.DB) *FamilyRepo { return &FamilyRepo{DB: db} }

// Create inserts the family, assigning an id when it has none.
func (r *FamilyRepo) Create(ctx context.Context, f *model.Family) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now
	_, err := conn(ctx, r.DB).ExecContext(ctx,
		"INSERT INTO families (id, name, code, created_at, updated_at) VALUES (?,?,?,?,?)",
		f.ID, f.Name, f.Code, now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("insert family: %w", err)
	}
	return nil
}

func (r *FamilyRepo) getOne(ctx context.Context, where string, arg any) (*model.Family, error) {
	var f model.Family
	err := conn(ctx, r.DB).QueryRowContext(ctx,
		"SELECT id, name, code, created_at, updated_at FROM families WHERE "+where+" LIMIT 1"+lockSuffix(ctx), arg).
		Scan(&f.ID, &f.Name, &f.Code, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query family: %w", err)
	}
	return &f, nil
}

// GetByID fetches a family by id.
func (r *FamilyRepo) GetByID(ctx context.Context, id string) (*model.Family, error) {
	return r.getOne(ctx, "id=?", id)
}

// GetByCode fetches a family by its join code.
func (r *FamilyRepo) GetByCode(ctx context.Context, code string) (*model.Family, error) {
	return r.getOne(ctx, "code=?", code)
}

// AddMember puts accountID in the member set.  Adding an existing member is
// a no-op.
func (r *FamilyRepo) AddMember(ctx context.Context, familyID, accountID string) error {
	_, err := conn(ctx, r.DB).ExecContext(ctx,
		"INSERT INTO family_members (family_id, account_id, joined_at) VALUES (?,?,?) ON DUPLICATE KEY UPDATE joined_at=joined_at",
		familyID, accountID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// RemoveMember takes accountID out of the member set.
func (r *FamilyRepo) RemoveMember(ctx context.Context, familyID, accountID string) error {
	res, err := conn(ctx, r.DB).ExecContext(ctx,
		"DELETE FROM family_members WHERE family_id=? AND account_id=?", familyID, accountID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsMember reports whether accountID is in the member set.  Inside a
// transaction the membership row is locked until commit.
func (r *FamilyRepo) IsMember(ctx context.Context, familyID, accountID string) (bool, error) {
	var one int
	err := conn(ctx, r.DB).QueryRowContext(ctx,
		"SELECT 1 FROM family_members WHERE family_id=? AND account_id=? LIMIT 1"+lockSuffix(ctx),
		familyID, accountID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check member: %w", err)
	}
	return true, nil
}
