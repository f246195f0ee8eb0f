package model

import "time"

// Verification is a pending one-time code proving control of an email
// address.  CodeHash is a bcrypt digest; the plain code only ever leaves the
// process inside a notification.
type Verification struct {
	ID        string
	Email     string
	Name      string
	CodeHash  string
	ExpiresAt time.Time
	Meta      VerificationMeta
	CreatedAt time.Time
}

// Purpose names the flow a code was issued for.  A code only redeems in
// the flow it was issued for.
type Purpose string

const (
	PurposeRegistration Purpose = "registration"
	PurposeLogin        Purpose = "login"
	PurposeJoin         Purpose = "join"
	PurposeInvitation   Purpose = "invitation"
)

// VerificationMeta tags a code with its purpose and the family and role it
// grants.  FamilyID and Role are optional.
type VerificationMeta struct {
	Purpose  Purpose
	FamilyID string
	Role     Role
}

// Expired reports whether the code is no longer usable at now.
func (v *Verification) Expired(now time.Time) bool {
	return !v.ExpiresAt.After(now)
}
