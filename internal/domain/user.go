package domain

import "time"

// User is an account identified by a verified email address. There is no
// password; possession of a verification token proves identity.
type User struct {
	ID         string
	Email      string
	VerifiedAt *time.Time
	CreatedAt  time.Time
}

// Verified reports whether the user has completed email verification.
func (u User) Verified() bool {
	return u.VerifiedAt != nil
}
