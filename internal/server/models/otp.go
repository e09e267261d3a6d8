package models

import "time"

// OTP is one issued one-time code. Rows are mutated exactly once (Verified
// flips to true) and purged by the janitor after the retention period.
type OTP struct {
	ID        string
	Email     string
	Code      string
	Password  string
	ExpiresAt time.Time
	Verified  bool
	CreatedAt time.Time
}
