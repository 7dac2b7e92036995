package models

import "time"

// PasswordResetToken is a single-use credential allowing one password change.
type PasswordResetToken struct {
	Token      string
	UserID     string
	ValidUntil time.Time
}

func (t *PasswordResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ValidUntil)
}
