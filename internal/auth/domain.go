package auth

import "time"

// User represents an authenticated user account. Its ID scopes every record
// the user owns.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
