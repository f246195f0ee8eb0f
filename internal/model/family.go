package model

import "time"

// Family is a household.  Members live in the family_members table.
type Family struct {
	ID        string
	Name      string
	Code      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
