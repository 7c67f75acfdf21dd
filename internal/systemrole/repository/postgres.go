package repository

import (
	"context"
	"database/sql"
	"errors"

	"authplane/internal/db"
	"authplane/internal/fault"
	"authplane/internal/rolekit"
	"authplane/internal/systemrole/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a system role repository backed by the given db.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const roleColumns = "id, name, description, active, created_at, updated_at"

// GetByID returns the role with its permission associations, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.SystemRole, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+roleColumns+" FROM system_roles WHERE id = $1", id)
	role, err := scanRole(row)
	if err != nil || role == nil {
		return role, err
	}
	if err := r.loadPermissions(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// GetByName returns the role for name, or nil if not found.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*domain.SystemRole, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+roleColumns+" FROM system_roles WHERE name = $1", name)
	role, err := scanRole(row)
	if err != nil || role == nil {
		return role, err
	}
	if err := r.loadPermissions(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// ListByIDs returns the roles for ids, each with its permission associations.
func (r *PostgresRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.SystemRole, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, "SELECT "+roleColumns+" FROM system_roles WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roles, err := collectRoles(rows)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		if err := r.loadPermissions(ctx, role); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// List returns all system roles ordered by name, without permission associations.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.SystemRole, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+roleColumns+" FROM system_roles ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

// Create persists a new role and its associations atomically.
func (r *PostgresRepository) Create(ctx context.Context, role *domain.SystemRole) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO system_roles (id, name, description, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			role.ID, role.Name, role.Description, role.Active, role.CreatedAt, role.UpdatedAt,
		)
		if db.IsUniqueViolation(err) {
			return fault.Conflictf("system role %s already exists", role.Name)
		}
		if err != nil {
			return err
		}
		return insertRolePermissions(ctx, tx, role)
	})
}

// Save updates the role and rewrites its permission associations in one transaction.
func (r *PostgresRepository) Save(ctx context.Context, role *domain.SystemRole) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE system_roles SET name = $2, description = $3, active = $4, updated_at = $5
			WHERE id = $1`,
			role.ID, role.Name, role.Description, role.Active, role.UpdatedAt,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fault.NotFoundf("system role %s", role.ID)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM system_role_permissions WHERE role_id = $1", role.ID); err != nil {
			return err
		}
		return insertRolePermissions(ctx, tx, role)
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

func (r *PostgresRepository) loadPermissions(ctx context.Context, role *domain.SystemRole) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT permission_id FROM system_role_permissions WHERE role_id = $1 ORDER BY permission_id", role.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	role.Permissions = rolekit.NewPermissionSet(ids...)
	return rows.Err()
}

func insertRolePermissions(ctx context.Context, tx *sql.Tx, role *domain.SystemRole) error {
	for _, pid := range role.Permissions.IDs() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO system_role_permissions (role_id, permission_id) VALUES ($1, $2)", role.ID, pid); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRole(row rowScanner) (*domain.SystemRole, error) {
	var role domain.SystemRole
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.Active, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func collectRoles(rows *sql.Rows) ([]*domain.SystemRole, error) {
	var out []*domain.SystemRole
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}
