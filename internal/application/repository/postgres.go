package repository

import (
	"context"
	"database/sql"
	"errors"

	"authplane/internal/application/domain"
	"authplane/internal/db"
	"authplane/internal/fault"
	"authplane/internal/rolekit"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an application repository backed by the given db.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const appColumns = "id, code, name, api_key_digest, api_key_generated_at, active, created_at, updated_at"

// GetByID returns the application with its roles and permission associations,
// or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+appColumns+" FROM applications WHERE id = $1", id)
	return r.hydrate(ctx, row)
}

// GetByCode returns the application for the normalized code, or nil if not found.
func (r *PostgresRepository) GetByCode(ctx context.Context, code domain.Code) (*domain.Application, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+appColumns+" FROM applications WHERE code = $1", code.String())
	return r.hydrate(ctx, row)
}

// ExistsByCode reports whether an application with the code exists.
func (r *PostgresRepository) ExistsByCode(ctx context.Context, code domain.Code) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM applications WHERE code = $1)", code.String()).Scan(&exists)
	return exists, err
}

// Create persists the aggregate and its initial roles in one transaction.
// Duplicate codes fail Conflict.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Application) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO applications (id, code, name, api_key_digest, api_key_generated_at, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			a.ID, a.Code.String(), a.Name, a.APIKey.Digest, a.APIKey.GeneratedAt, a.Active, a.CreatedAt, a.UpdatedAt,
		)
		if db.IsUniqueViolation(err) {
			return fault.Conflictf("application %s already exists", a.Code)
		}
		if err != nil {
			return err
		}
		return upsertRoles(ctx, tx, a)
	})
}

// Save persists the aggregate state atomically: application row, role rows
// (upserted, stale ones deleted), and permission associations rewritten.
// No partial write is observable.
func (r *PostgresRepository) Save(ctx context.Context, a *domain.Application) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE applications
			SET name = $2, api_key_digest = $3, api_key_generated_at = $4, active = $5, updated_at = $6
			WHERE id = $1`,
			a.ID, a.Name, a.APIKey.Digest, a.APIKey.GeneratedAt, a.Active, a.UpdatedAt,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fault.NotFoundf("application %s", a.ID)
		}
		keep := make([]string, 0, len(a.Roles))
		for _, role := range a.Roles {
			keep = append(keep, role.ID)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM application_roles WHERE application_id = $1 AND NOT (id = ANY($2))", a.ID, keep); err != nil {
			return err
		}
		return upsertRoles(ctx, tx, a)
	})
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

// upsertRoles writes non-default rows before the default one. The partial
// unique index on (application_id) WHERE is_default is checked per row, so a
// demoted role must hit the database before the row that takes over as default.
func upsertRoles(ctx context.Context, tx *sql.Tx, a *domain.Application) error {
	for _, role := range a.Roles {
		if role.IsDefault {
			continue
		}
		if err := upsertRole(ctx, tx, a, role); err != nil {
			return err
		}
	}
	for _, role := range a.Roles {
		if !role.IsDefault {
			continue
		}
		if err := upsertRole(ctx, tx, a, role); err != nil {
			return err
		}
	}
	return nil
}

func upsertRole(ctx context.Context, tx *sql.Tx, a *domain.Application, role *domain.Role) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO application_roles (id, application_id, name, description, is_default, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description,
		    is_default = EXCLUDED.is_default, active = EXCLUDED.active, updated_at = EXCLUDED.updated_at`,
		role.ID, a.ID, role.Name, role.Description, role.IsDefault, role.Active, role.CreatedAt, role.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return fault.Conflictf("role %s already exists in application %s", role.Name, a.Code)
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM application_role_permissions WHERE role_id = $1", role.ID); err != nil {
		return err
	}
	for _, pid := range role.Permissions.IDs() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO application_role_permissions (role_id, permission_id) VALUES ($1, $2)", role.ID, pid); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) hydrate(ctx context.Context, row *sql.Row) (*domain.Application, error) {
	var (
		a       domain.Application
		rawCode string
	)
	err := row.Scan(&a.ID, &rawCode, &a.Name, &a.APIKey.Digest, &a.APIKey.GeneratedAt, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	code, err := domain.ParseCode(rawCode)
	if err != nil {
		return nil, err
	}
	a.Code = code

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, is_default, active, created_at, updated_at
		FROM application_roles WHERE application_id = $1 ORDER BY created_at, name`, a.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsDefault, &role.Active, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		a.Roles = append(a.Roles, &role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, role := range a.Roles {
		permRows, err := r.db.QueryContext(ctx,
			"SELECT permission_id FROM application_role_permissions WHERE role_id = $1 ORDER BY permission_id", role.ID)
		if err != nil {
			return nil, err
		}
		var ids []string
		for permRows.Next() {
			var id string
			if err := permRows.Scan(&id); err != nil {
				permRows.Close()
				return nil, err
			}
			ids = append(ids, id)
		}
		if err := permRows.Err(); err != nil {
			permRows.Close()
			return nil, err
		}
		permRows.Close()
		role.Permissions = rolekit.NewPermissionSet(ids...)
	}
	return &a, nil
}
