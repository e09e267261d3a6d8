package models

import "time"

// Credential is the per-e-mail password the OTP flow applies to the account.
// It is created on the first code request for an e-mail and never rotated.
// PasswordHash holds the password value itself: the server has to re-apply
// it to the account on every successful verification.
type Credential struct {
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
