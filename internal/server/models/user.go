package models

import "time"

// User is an account in the identity system. PasswordHash is an argon2id
// PHC string of the server-chosen credential password.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
