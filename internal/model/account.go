package model

import "time"

// Account is a user identity.  FamilyID is empty while the account is in
// the pending-family state.  RefreshTokenHash holds the SHA-256 digest of
// the single live refresh token, or is empty after logout.
type Account struct {
	ID               string
	Name             string
	Email            string
	FamilyID         string
	Role             Role
	IsPremium        bool
	IsActive         bool
	EmailVerified    bool
	RefreshTokenHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasFamily reports whether the account has joined a family.
func (a *Account) HasFamily() bool { return a.FamilyID != "" }

// Member is the read projection returned when listing a family.
type Member struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          Role   `json:"role"`
	IsPremium     bool   `json:"isPremium"`
	EmailVerified bool   `json:"emailVerified"`
}
