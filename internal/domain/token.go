package domain

import "time"

// VerificationToken is a single-use credential tied to an email address.
// Its lifecycle is issued -> consumed or issued -> expired.
type VerificationToken struct {
	Token      string
	Email      string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

func (t VerificationToken) Consumed() bool {
	return t.ConsumedAt != nil
}

// Expired reports whether the token is past its expiry at now. A token is
// still valid at the exact expiry instant.
func (t VerificationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
