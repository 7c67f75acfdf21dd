// Package domain holds the User aggregate. A user is either an Auth Admin
// (operator of the control plane, may hold system roles) or a Regular user
// (authenticates into applications); the type is fixed at creation and the
// aggregate enforces the separation on every transition.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"authplane/internal/events"
	"authplane/internal/fault"
	"authplane/internal/rolekit"
	"authplane/internal/security"
)

// Type discriminates the two user identities.
type Type string

const (
	TypeAuthAdmin Type = "auth_admin"
	TypeRegular   Type = "regular"
)

// User is the aggregate root for identity state, including the refresh token
// set and any pending password reset.
type User struct {
	events.Recorder

	ID             string
	Email          Email
	PasswordHash   string
	FirstName      string
	LastName       string
	Type           Type
	Active         bool
	EmailConfirmed bool
	SystemRoleIDs  rolekit.PermissionSet
	RefreshTokens  []*RefreshToken
	Reset          *ResetToken
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewRegular creates an application-facing user.
func NewRegular(email Email, passwordHash, firstName, lastName string, now time.Time) (*User, error) {
	return newUser(email, passwordHash, firstName, lastName, TypeRegular, now)
}

// NewAuthAdmin creates a control-plane operator.
func NewAuthAdmin(email Email, passwordHash, firstName, lastName string, now time.Time) (*User, error) {
	return newUser(email, passwordHash, firstName, lastName, TypeAuthAdmin, now)
}

func newUser(email Email, passwordHash, firstName, lastName string, typ Type, now time.Time) (*User, error) {
	if email.IsZero() {
		return nil, fault.Invalidf("user email is required")
	}
	if passwordHash == "" {
		return nil, fault.Invalidf("user password hash is required")
	}
	u := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Type:         typ,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.Record(events.UserRegistered, u.ID, now, map[string]string{
		"email": u.Email.String(),
		"type":  string(typ),
	})
	return u, nil
}

// IsAuthAdmin reports whether the user operates the control plane.
func (u *User) IsAuthAdmin() bool { return u.Type == TypeAuthAdmin }

// UpdateProfile replaces the user's display names.
func (u *User) UpdateProfile(firstName, lastName string, now time.Time) {
	u.FirstName = strings.TrimSpace(firstName)
	u.LastName = strings.TrimSpace(lastName)
	u.UpdatedAt = now
}

// ConfirmEmail marks the address verified. Fails Conflict when already confirmed.
func (u *User) ConfirmEmail(now time.Time) error {
	if u.EmailConfirmed {
		return fault.Conflictf("email %s is already confirmed", u.Email)
	}
	u.EmailConfirmed = true
	u.UpdatedAt = now
	return nil
}

// Deactivate suspends the user and revokes every active refresh token. Fails
// Conflict when already inactive.
func (u *User) Deactivate(now time.Time) error {
	if !u.Active {
		return fault.Conflictf("user %s is already inactive", u.Email)
	}
	u.Active = false
	u.RevokeAllRefreshTokens(now)
	u.UpdatedAt = now
	u.Record(events.UserDeactivated, u.ID, now, nil)
	return nil
}

// ChangePassword installs a new password hash.
func (u *User) ChangePassword(hash string, now time.Time) error {
	if hash == "" {
		return fault.Invalidf("password hash is required")
	}
	u.PasswordHash = hash
	u.UpdatedAt = now
	return nil
}

// AssignSystemRole grants a system role. Regular users can never hold system
// roles, whatever the input.
func (u *User) AssignSystemRole(roleID string, now time.Time) error {
	if !u.IsAuthAdmin() {
		return fault.Forbiddenf("system roles are restricted to auth admins")
	}
	if err := u.SystemRoleIDs.Add(roleID); err != nil {
		return err
	}
	u.UpdatedAt = now
	u.Record(events.UserSystemRoleChanged, u.ID, now, map[string]string{"role_id": roleID, "op": "assign"})
	return nil
}

// RemoveSystemRole revokes a system role grant.
func (u *User) RemoveSystemRole(roleID string, now time.Time) error {
	if !u.IsAuthAdmin() {
		return fault.Forbiddenf("system roles are restricted to auth admins")
	}
	if err := u.SystemRoleIDs.Remove(roleID); err != nil {
		return err
	}
	u.UpdatedAt = now
	u.Record(events.UserSystemRoleChanged, u.ID, now, map[string]string{"role_id": roleID, "op": "remove"})
	return nil
}

// SetPasswordResetToken installs a pending reset, replacing any prior one.
func (u *User) SetPasswordResetToken(hash string, expiresAt time.Time) {
	u.Reset = &ResetToken{Hash: hash, ExpiresAt: expiresAt}
}

// ConsumeResetToken completes a password reset. NotFound when no reset is
// pending, Invalid when the presented hash mismatches or the token expired.
// Success clears the reset state and revokes all refresh tokens. hash is the
// already-hashed presented token, compared against the stored hash as-is.
func (u *User) ConsumeResetToken(hash, newPasswordHash string, now time.Time) error {
	if u.Reset == nil {
		return fault.NotFoundf("no password reset pending for %s", u.Email)
	}
	if !security.HashesEqual(hash, u.Reset.Hash) {
		return fault.Invalidf("invalid password reset token")
	}
	if u.Reset.IsExpired(now) {
		return fault.Invalidf("password reset token expired")
	}
	if err := u.ChangePassword(newPasswordHash, now); err != nil {
		return err
	}
	u.Reset = nil
	u.RevokeAllRefreshTokens(now)
	u.Record(events.PasswordResetPerformed, u.ID, now, nil)
	return nil
}

// AddRefreshToken attaches a newly issued token to the aggregate.
func (u *User) AddRefreshToken(rt *RefreshToken) {
	u.RefreshTokens = append(u.RefreshTokens, rt)
}

// RefreshTokenByHash returns the stored token for hash. Fails NotFound.
func (u *User) RefreshTokenByHash(hash string) (*RefreshToken, error) {
	for _, rt := range u.RefreshTokens {
		if rt.TokenHash == hash {
			return rt, nil
		}
	}
	return nil, fault.NotFoundf("refresh token not found")
}

// RevokeRefreshToken revokes a single token by hash.
func (u *User) RevokeRefreshToken(hash string, now time.Time) error {
	rt, err := u.RefreshTokenByHash(hash)
	if err != nil {
		return err
	}
	if err := rt.Revoke(now); err != nil {
		return err
	}
	u.UpdatedAt = now
	return nil
}

// RevokeAllRefreshTokens revokes every token that is still active and reports
// how many were burned.
func (u *User) RevokeAllRefreshTokens(now time.Time) int {
	n := 0
	for _, rt := range u.RefreshTokens {
		if rt.IsActive(now) {
			_ = rt.Revoke(now)
			n++
		}
	}
	if n > 0 {
		u.UpdatedAt = now
	}
	return n
}

// RevokeChainFrom walks the ReplacedByHash links starting at hash and revokes
// every descendant not yet revoked. Used when a rotated-out token is presented
// again: everything minted from it is burned.
func (u *User) RevokeChainFrom(hash string, now time.Time) int {
	byHash := make(map[string]*RefreshToken, len(u.RefreshTokens))
	for _, rt := range u.RefreshTokens {
		byHash[rt.TokenHash] = rt
	}
	n := 0
	for cur := byHash[hash]; cur != nil; cur = byHash[cur.ReplacedByHash] {
		if !cur.IsRevoked() {
			_ = cur.Revoke(now)
			n++
		}
		if cur.ReplacedByHash == "" {
			break
		}
	}
	if n > 0 {
		u.UpdatedAt = now
	}
	return n
}

// PruneRefreshTokens drops fully dead history: tokens whose replacement chain
// no longer reaches an active token. Ancestors of a live token stay so a
// replayed old value is still recognized as reuse rather than unknown.
func (u *User) PruneRefreshTokens(now time.Time) {
	byHash := make(map[string]*RefreshToken, len(u.RefreshTokens))
	for _, rt := range u.RefreshTokens {
		byHash[rt.TokenHash] = rt
	}
	reachesActive := func(rt *RefreshToken) bool {
		for cur := rt; cur != nil; cur = byHash[cur.ReplacedByHash] {
			if cur.IsActive(now) {
				return true
			}
			if cur.ReplacedByHash == "" {
				return false
			}
		}
		return false
	}
	kept := u.RefreshTokens[:0]
	for _, rt := range u.RefreshTokens {
		if reachesActive(rt) {
			kept = append(kept, rt)
		}
	}
	u.RefreshTokens = kept
}
