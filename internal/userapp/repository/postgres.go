package repository

import (
	"context"
	"database/sql"
	"errors"

	"authplane/internal/db"
	"authplane/internal/fault"
	"authplane/internal/userapp/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an assignment repository backed by the given db.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const columns = "user_id, application_id, application_role_id, assigned_at, active"

// Get returns the assignment for (user, application), or nil if not found.
func (r *PostgresRepository) Get(ctx context.Context, userID, applicationID string) (*domain.Assignment, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+columns+" FROM user_applications WHERE user_id = $1 AND application_id = $2",
		userID, applicationID)
	return scanAssignment(row)
}

// ListByUser returns every assignment the user holds.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Assignment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+columns+" FROM user_applications WHERE user_id = $1 ORDER BY assigned_at", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.UserID, &a.ApplicationID, &a.ApplicationRoleID, &a.AssignedAt, &a.Active); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// CountByRole reports how many assignments reference the role.
func (r *PostgresRepository) CountByRole(ctx context.Context, applicationID, roleID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_applications WHERE application_id = $1 AND application_role_id = $2",
		applicationID, roleID).Scan(&n)
	return n, err
}

// Create persists a new assignment. Duplicates fail Conflict.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Assignment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_applications (user_id, application_id, application_role_id, assigned_at, active)
		VALUES ($1, $2, $3, $4, $5)`,
		a.UserID, a.ApplicationID, a.ApplicationRoleID, a.AssignedAt, a.Active,
	)
	if db.IsUniqueViolation(err) {
		return fault.Conflictf("user %s is already assigned to application %s", a.UserID, a.ApplicationID)
	}
	if db.IsForeignKeyViolation(err) {
		return fault.NotFoundf("user %s or application %s", a.UserID, a.ApplicationID)
	}
	return err
}

// Save updates the assignment's role and activation state.
func (r *PostgresRepository) Save(ctx context.Context, a *domain.Assignment) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_applications
		SET application_role_id = $3, active = $4
		WHERE user_id = $1 AND application_id = $2`,
		a.UserID, a.ApplicationID, a.ApplicationRoleID, a.Active,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fault.NotFoundf("assignment for user %s in application %s", a.UserID, a.ApplicationID)
	}
	return nil
}

// Delete removes the assignment.
func (r *PostgresRepository) Delete(ctx context.Context, userID, applicationID string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM user_applications WHERE user_id = $1 AND application_id = $2", userID, applicationID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fault.NotFoundf("assignment for user %s in application %s", userID, applicationID)
	}
	return nil
}

func scanAssignment(row *sql.Row) (*domain.Assignment, error) {
	var a domain.Assignment
	err := row.Scan(&a.UserID, &a.ApplicationID, &a.ApplicationRoleID, &a.AssignedAt, &a.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}
