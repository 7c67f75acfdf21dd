package repository

import (
	"context"

	"authplane/internal/permission/domain"
)

// Repository defines persistence for the permission catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Permission, error)
	GetByName(ctx context.Context, name string) (*domain.Permission, error)
	ListByIDs(ctx context.Context, ids []string) ([]*domain.Permission, error)
	List(ctx context.Context) ([]*domain.Permission, error)
	Create(ctx context.Context, p *domain.Permission) error
	SetActive(ctx context.Context, id string, active bool) error
}
