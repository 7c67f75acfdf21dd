package repository

import (
	"context"
	"database/sql"
	"errors"

	"authplane/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit repository backed by the given db.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const columns = "id, application_id, user_id, action, resource, ip, metadata, created_at"

// GetByID returns the entry for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+columns+" FROM audit_logs WHERE id = $1", id)
	e, err := scanEntry(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// ListByApplication returns entries for the tenant, newest first.
func (r *PostgresRepository) ListByApplication(ctx context.Context, applicationID string, limit, offset int32) ([]*domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+columns+" FROM audit_logs WHERE application_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		applicationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Create persists one entry.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Entry) error {
	uid := sql.NullString{String: e.UserID, Valid: e.UserID != ""}
	meta := sql.NullString{String: e.Metadata, Valid: e.Metadata != ""}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, application_id, user_id, action, resource, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.ApplicationID, uid, e.Action, e.Resource, e.IP, meta, e.CreatedAt,
	)
	return err
}

func scanEntry(scan func(...any) error) (*domain.Entry, error) {
	var (
		e    domain.Entry
		uid  sql.NullString
		meta sql.NullString
	)
	if err := scan(&e.ID, &e.ApplicationID, &uid, &e.Action, &e.Resource, &e.IP, &meta, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.UserID = uid.String
	e.Metadata = meta.String
	return &e, nil
}
