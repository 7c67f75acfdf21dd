package repository

import (
	"context"

	"authplane/internal/systemrole/domain"
)

// Repository defines persistence for system roles. Get and List load the
// permission associations needed for pending mutations.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.SystemRole, error)
	GetByName(ctx context.Context, name string) (*domain.SystemRole, error)
	ListByIDs(ctx context.Context, ids []string) ([]*domain.SystemRole, error)
	List(ctx context.Context) ([]*domain.SystemRole, error)
	Create(ctx context.Context, r *domain.SystemRole) error
	Save(ctx context.Context, r *domain.SystemRole) error
}
