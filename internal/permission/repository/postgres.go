package repository

import (
	"context"
	"database/sql"
	"errors"

	"authplane/internal/db"
	"authplane/internal/fault"
	"authplane/internal/permission/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a permission repository backed by the given db.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const permissionColumns = "id, name, resource, action, description, active, created_at"

// GetByID returns the permission for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Permission, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+permissionColumns+" FROM permissions WHERE id = $1", id)
	return scanPermission(row)
}

// GetByName returns the permission for name, or nil if not found.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*domain.Permission, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+permissionColumns+" FROM permissions WHERE name = $1", name)
	return scanPermission(row)
}

// ListByIDs returns the permissions for the given ids, preserving no particular order.
func (r *PostgresRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	// pgx stdlib binds []string to text[].
	rows, err := r.db.QueryContext(ctx, "SELECT "+permissionColumns+" FROM permissions WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// List returns the whole catalog ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.Permission, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+permissionColumns+" FROM permissions ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// Create persists the permission. Duplicate names fail Conflict.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Permission) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO permissions (id, name, resource, action, description, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.Resource, p.Action, p.Description, p.Active, p.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return fault.Conflictf("permission %s already exists", p.Name)
	}
	return err
}

// SetActive updates the activation flag. Fails NotFound when the row is absent.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE permissions SET active = $2 WHERE id = $1", id, active)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fault.NotFoundf("permission %s", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPermission(row rowScanner) (*domain.Permission, error) {
	var p domain.Permission
	err := row.Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func collectPermissions(rows *sql.Rows) ([]*domain.Permission, error) {
	var out []*domain.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
