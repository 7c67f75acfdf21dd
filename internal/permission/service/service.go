// Package service exposes the permission catalog commands.
package service

import (
	"context"

	"authplane/internal/clock"
	"authplane/internal/fault"
	"authplane/internal/permission/domain"
	"authplane/internal/permission/repository"
)

// Service manages the global permission catalog.
type Service struct {
	repo repository.Repository
	clk  clock.Clock
}

// NewService returns a permission catalog service.
func NewService(repo repository.Repository, clk clock.Clock) *Service {
	return &Service{repo: repo, clk: clk}
}

// Create adds a permission to the catalog. Duplicate names fail Conflict.
func (s *Service) Create(ctx context.Context, name, resource, action, description string) (*domain.Permission, error) {
	p, err := domain.New(name, resource, action, description, s.clk.Now())
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByName(ctx, p.Name)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "lookup permission %s", p.Name)
	}
	if existing != nil {
		return nil, fault.Conflictf("permission %s already exists", p.Name)
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if fault.IsKind(err, fault.KindConflict) {
			return nil, err
		}
		return nil, fault.Wrap(fault.KindInternal, err, "create permission %s", p.Name)
	}
	return p, nil
}

// Get returns the permission for id. Fails NotFound when absent.
func (s *Service) Get(ctx context.Context, id string) (*domain.Permission, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "get permission %s", id)
	}
	if p == nil {
		return nil, fault.NotFoundf("permission %s", id)
	}
	return p, nil
}

// List returns the whole catalog.
func (s *Service) List(ctx context.Context) ([]*domain.Permission, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "list permissions")
	}
	return list, nil
}

// SetActive toggles a permission's activation flag through the aggregate so the
// double-toggle Conflict holds.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (*domain.Permission, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if active {
		err = p.Activate()
	} else {
		err = p.Deactivate()
	}
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if fault.IsKind(err, fault.KindNotFound) {
			return nil, err
		}
		return nil, fault.Wrap(fault.KindInternal, err, "update permission %s", id)
	}
	return p, nil
}
