package repository

import (
	"context"

	"authplane/internal/audit/domain"
)

// Repository defines persistence for audit entries.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	ListByApplication(ctx context.Context, applicationID string, limit, offset int32) ([]*domain.Entry, error)
	Create(ctx context.Context, e *domain.Entry) error
}
