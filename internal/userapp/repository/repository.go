package repository

import (
	"context"

	"authplane/internal/userapp/domain"
)

// Repository defines persistence for user-application assignments.
type Repository interface {
	Get(ctx context.Context, userID, applicationID string) (*domain.Assignment, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Assignment, error)
	CountByRole(ctx context.Context, applicationID, roleID string) (int, error)
	Create(ctx context.Context, a *domain.Assignment) error
	Save(ctx context.Context, a *domain.Assignment) error
	Delete(ctx context.Context, userID, applicationID string) error
}
