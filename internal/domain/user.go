package domain

import "time"

// User is the domain model for registered account holders. Accounts are
// immutable once created; removal happens only through external
// administration.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
