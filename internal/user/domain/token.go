package domain

import (
	"time"

	"authplane/internal/fault"
)

// RefreshToken is the stored form of an opaque refresh credential. Only the
// SHA-256 hash is persisted; ReplacedByHash links a rotated token to its
// successor so a redeemed-again token exposes the whole descendant chain.
// ApplicationID records the scope the token was issued under; empty means an
// admin-scoped session.
type RefreshToken struct {
	TokenHash      string
	ApplicationID  string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	RevokedAt      *time.Time
	ReplacedByHash string
}

func (t *RefreshToken) IsExpired(now time.Time) bool { return !now.Before(t.ExpiresAt) }
func (t *RefreshToken) IsRevoked() bool              { return t.RevokedAt != nil }

// IsActive reports whether the token can still be redeemed.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}

// Revoke marks the token unusable. Fails Conflict when already revoked.
func (t *RefreshToken) Revoke(now time.Time) error {
	if t.IsRevoked() {
		return fault.Conflictf("refresh token already revoked")
	}
	at := now
	t.RevokedAt = &at
	return nil
}

// ResetToken is a pending password reset: hash of the opaque value plus expiry.
type ResetToken struct {
	Hash      string
	ExpiresAt time.Time
}

func (t *ResetToken) IsExpired(now time.Time) bool { return !now.Before(t.ExpiresAt) }
