package repository

import (
	"context"
	"time"

	"authplane/internal/user/domain"
)

// Repository defines persistence for users. Loads hydrate system role grants
// and the refresh token set. Refresh-token writes that race with each other
// get dedicated guarded operations instead of going through Save.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email domain.Email) (*domain.User, error)

	// GetByRefreshTokenHash returns the user owning the stored token, or nil
	// when no such token exists.
	GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email domain.Email) (bool, error)
	Create(ctx context.Context, u *domain.User) error
	Save(ctx context.Context, u *domain.User) error

	// AddRefreshToken inserts a newly issued token without rewriting the rest
	// of the aggregate.
	AddRefreshToken(ctx context.Context, userID string, rt *domain.RefreshToken) error

	// RotateRefreshToken revokes the old token and inserts its replacement in
	// one transaction. The revocation is conditional on the old row still
	// being active; when another redemption won the race it fails Conflict and
	// writes nothing.
	RotateRefreshToken(ctx context.Context, userID, oldHash string, replacement *domain.RefreshToken, revokedAt time.Time) error

	// RevokeChain revokes fromHash and every descendant reachable through
	// replaced_by_hash links that is not revoked yet.
	RevokeChain(ctx context.Context, userID, fromHash string, at time.Time) error

	// RevokeAll revokes every active token the user holds.
	RevokeAll(ctx context.Context, userID string, at time.Time) error
}
