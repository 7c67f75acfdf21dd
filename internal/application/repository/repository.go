package repository

import (
	"context"

	"authplane/internal/application/domain"
)

// Repository defines persistence for applications. Loads include the role
// catalog and role permission associations needed for pending mutations; Save
// persists the aggregate atomically (all-or-nothing).
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	GetByCode(ctx context.Context, code domain.Code) (*domain.Application, error)
	ExistsByCode(ctx context.Context, code domain.Code) (bool, error)
	Create(ctx context.Context, a *domain.Application) error
	Save(ctx context.Context, a *domain.Application) error
}
