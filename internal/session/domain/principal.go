package domain

import "time"

// Principal is an account that can log in. The engine only reads it; the
// directory owns it.
type Principal struct {
	ID           string // ULID
	Username     string
	Email        string
	PasswordHash string // argon2id PHC string
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
