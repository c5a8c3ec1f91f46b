package models

import "time"

// Token purposes. Password-reset tokens reuse the same table with a
// short expiry and a single-use contract.
const (
	TokenPurposeSession = "session"
	TokenPurposeReset   = "reset"
)

// RefreshToken stores a hashed representation of an opaque token for
// session rotation and revocation. TokenHash is the sha256 of the secret,
// so the row can be found by equality without ever persisting the
// plaintext. A token is usable only while RevokedAt is null and ExpiresAt
// is in the future; expiry is computed at read time, there is no flag.
type RefreshToken struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint      `gorm:"index;not null"`
	TokenHash string    `gorm:"size:128;not null;uniqueIndex"`
	Purpose   string    `gorm:"size:16;not null;default:session"`
	ExpiresAt time.Time `gorm:"index;not null"`
	RevokedAt *time.Time
	IP        string `gorm:"size:64"`
	UserAgent string `gorm:"size:255"`
}

// Valid reports whether the token is usable at the given instant.
func (t *RefreshToken) Valid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
