package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"authplane/internal/db"
	"authplane/internal/fault"
	"authplane/internal/rolekit"
	"authplane/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository backed by the given db.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const userColumns = `id, email, password_hash, first_name, last_name, user_type, active,
	email_confirmed, reset_token_hash, reset_token_expires_at, created_at, updated_at`

// GetByID returns the user with role grants and refresh tokens, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return r.hydrate(ctx, row)
}

// GetByEmail returns the user for the normalized address, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email domain.Email) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email.String())
	return r.hydrate(ctx, row)
}

// GetByRefreshTokenHash returns the user owning the token, or nil if not found.
func (r *PostgresRepository) GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE id = (SELECT user_id FROM refresh_tokens WHERE token_hash = $1)`, hash)
	return r.hydrate(ctx, row)
}

// ExistsByEmail reports whether a user with the address exists.
func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email domain.Email) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)", email.String()).Scan(&exists)
	return exists, err
}

// Create persists a new user. Duplicate emails fail Conflict.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var resetHash, resetExp any
		if u.Reset != nil {
			resetHash, resetExp = u.Reset.Hash, u.Reset.ExpiresAt
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email, password_hash, first_name, last_name, user_type, active,
				email_confirmed, reset_token_hash, reset_token_expires_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			u.ID, u.Email.String(), u.PasswordHash, u.FirstName, u.LastName, string(u.Type),
			u.Active, u.EmailConfirmed, resetHash, resetExp, u.CreatedAt, u.UpdatedAt,
		)
		if db.IsUniqueViolation(err) {
			return fault.Conflictf("user %s already exists", u.Email)
		}
		if err != nil {
			return err
		}
		if err := writeSystemRoles(ctx, tx, u); err != nil {
			return err
		}
		return upsertRefreshTokens(ctx, tx, u)
	})
}

// Save persists the aggregate: user row, role grants rewritten, refresh tokens
// upserted and stale ones deleted.
func (r *PostgresRepository) Save(ctx context.Context, u *domain.User) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var resetHash, resetExp any
		if u.Reset != nil {
			resetHash, resetExp = u.Reset.Hash, u.Reset.ExpiresAt
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE users
			SET password_hash = $2, first_name = $3, last_name = $4, active = $5,
				email_confirmed = $6, reset_token_hash = $7, reset_token_expires_at = $8, updated_at = $9
			WHERE id = $1`,
			u.ID, u.PasswordHash, u.FirstName, u.LastName, u.Active,
			u.EmailConfirmed, resetHash, resetExp, u.UpdatedAt,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fault.NotFoundf("user %s", u.ID)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM user_system_roles WHERE user_id = $1", u.ID); err != nil {
			return err
		}
		if err := writeSystemRoles(ctx, tx, u); err != nil {
			return err
		}
		keep := make([]string, 0, len(u.RefreshTokens))
		for _, rt := range u.RefreshTokens {
			keep = append(keep, rt.TokenHash)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM refresh_tokens WHERE user_id = $1 AND NOT (token_hash = ANY($2))", u.ID, keep); err != nil {
			return err
		}
		return upsertRefreshTokens(ctx, tx, u)
	})
}

// AddRefreshToken inserts a single token row.
func (r *PostgresRepository) AddRefreshToken(ctx context.Context, userID string, rt *domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token_hash, user_id, application_id, created_at, expires_at, revoked_at, replaced_by_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rt.TokenHash, userID, nullable(rt.ApplicationID), rt.CreatedAt, rt.ExpiresAt, rt.RevokedAt, nullable(rt.ReplacedByHash),
	)
	if db.IsUniqueViolation(err) {
		return fault.Conflictf("refresh token already exists")
	}
	return err
}

// RotateRefreshToken is the guarded rotation write. The UPDATE only matches an
// old row that is still redeemable; zero rows affected means a concurrent
// redemption already rotated or revoked it, and the whole transaction aborts
// with Conflict.
func (r *PostgresRepository) RotateRefreshToken(ctx context.Context, userID, oldHash string, replacement *domain.RefreshToken, revokedAt time.Time) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = $3, replaced_by_hash = $4
			WHERE user_id = $1 AND token_hash = $2 AND revoked_at IS NULL AND expires_at > $3`,
			userID, oldHash, revokedAt, replacement.TokenHash,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fault.Conflictf("refresh token already redeemed")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO refresh_tokens (token_hash, user_id, application_id, created_at, expires_at, revoked_at, replaced_by_hash)
			VALUES ($1, $2, $3, $4, $5, NULL, NULL)`,
			replacement.TokenHash, userID, nullable(replacement.ApplicationID), replacement.CreatedAt, replacement.ExpiresAt,
		)
		return err
	})
}

// RevokeChain revokes fromHash and all descendants via replaced_by_hash links.
func (r *PostgresRepository) RevokeChain(ctx context.Context, userID, fromHash string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		WITH RECURSIVE chain AS (
			SELECT token_hash, replaced_by_hash FROM refresh_tokens
			WHERE user_id = $1 AND token_hash = $2
			UNION ALL
			SELECT rt.token_hash, rt.replaced_by_hash FROM refresh_tokens rt
			JOIN chain c ON rt.token_hash = c.replaced_by_hash
			WHERE rt.user_id = $1
		)
		UPDATE refresh_tokens
		SET revoked_at = $3
		WHERE user_id = $1 AND revoked_at IS NULL AND token_hash IN (SELECT token_hash FROM chain)`,
		userID, fromHash, at,
	)
	return err
}

// RevokeAll revokes every active token the user holds.
func (r *PostgresRepository) RevokeAll(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL", userID, at)
	return err
}

func (r *PostgresRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func writeSystemRoles(ctx context.Context, tx *sql.Tx, u *domain.User) error {
	for _, roleID := range u.SystemRoleIDs.IDs() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_system_roles (user_id, role_id) VALUES ($1, $2)", u.ID, roleID); err != nil {
			if db.IsForeignKeyViolation(err) {
				return fault.NotFoundf("system role %s", roleID)
			}
			return err
		}
	}
	return nil
}

func upsertRefreshTokens(ctx context.Context, tx *sql.Tx, u *domain.User) error {
	for _, rt := range u.RefreshTokens {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO refresh_tokens (token_hash, user_id, application_id, created_at, expires_at, revoked_at, replaced_by_hash)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (token_hash) DO UPDATE
			SET revoked_at = EXCLUDED.revoked_at, replaced_by_hash = EXCLUDED.replaced_by_hash`,
			rt.TokenHash, u.ID, nullable(rt.ApplicationID), rt.CreatedAt, rt.ExpiresAt, rt.RevokedAt, nullable(rt.ReplacedByHash)); err != nil {
			return err
		}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *PostgresRepository) hydrate(ctx context.Context, row *sql.Row) (*domain.User, error) {
	var (
		u         domain.User
		rawEmail  string
		rawType   string
		resetHash sql.NullString
		resetExp  sql.NullTime
	)
	err := row.Scan(&u.ID, &rawEmail, &u.PasswordHash, &u.FirstName, &u.LastName, &rawType,
		&u.Active, &u.EmailConfirmed, &resetHash, &resetExp, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	email, err := domain.ParseEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	u.Email = email
	u.Type = domain.Type(rawType)
	if resetHash.Valid {
		u.Reset = &domain.ResetToken{Hash: resetHash.String, ExpiresAt: resetExp.Time}
	}

	roleRows, err := r.db.QueryContext(ctx,
		"SELECT role_id FROM user_system_roles WHERE user_id = $1 ORDER BY role_id", u.ID)
	if err != nil {
		return nil, err
	}
	defer roleRows.Close()
	var roleIDs []string
	for roleRows.Next() {
		var id string
		if err := roleRows.Scan(&id); err != nil {
			return nil, err
		}
		roleIDs = append(roleIDs, id)
	}
	if err := roleRows.Err(); err != nil {
		return nil, err
	}
	u.SystemRoleIDs = rolekit.NewPermissionSet(roleIDs...)

	tokenRows, err := r.db.QueryContext(ctx, `
		SELECT token_hash, application_id, created_at, expires_at, revoked_at, replaced_by_hash
		FROM refresh_tokens WHERE user_id = $1 ORDER BY created_at`, u.ID)
	if err != nil {
		return nil, err
	}
	defer tokenRows.Close()
	for tokenRows.Next() {
		var (
			rt       domain.RefreshToken
			appID    sql.NullString
			revoked  sql.NullTime
			replaced sql.NullString
		)
		if err := tokenRows.Scan(&rt.TokenHash, &appID, &rt.CreatedAt, &rt.ExpiresAt, &revoked, &replaced); err != nil {
			return nil, err
		}
		if revoked.Valid {
			at := revoked.Time
			rt.RevokedAt = &at
		}
		rt.ApplicationID = appID.String
		rt.ReplacedByHash = replaced.String
		u.RefreshTokens = append(u.RefreshTokens, &rt)
	}
	if err := tokenRows.Err(); err != nil {
		return nil, err
	}
	return &u, nil
}
