// Package service exposes system role commands for the admin surface.
package service

import (
	"context"

	"authplane/internal/clock"
	"authplane/internal/fault"
	permissionrepo "authplane/internal/permission/repository"
	"authplane/internal/systemrole/domain"
	"authplane/internal/systemrole/repository"
)

// Service manages the global system role catalog.
type Service struct {
	roles       repository.Repository
	permissions permissionrepo.Repository
	clk         clock.Clock
}

// NewService returns a system role service.
func NewService(roles repository.Repository, permissions permissionrepo.Repository, clk clock.Clock) *Service {
	return &Service{roles: roles, permissions: permissions, clk: clk}
}

// Create adds a system role. Names are unique globally; duplicates fail Conflict.
func (s *Service) Create(ctx context.Context, name, description string) (*domain.SystemRole, error) {
	role, err := domain.New(name, description, s.clk.Now())
	if err != nil {
		return nil, err
	}
	existing, err := s.roles.GetByName(ctx, role.Name)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "lookup system role %s", role.Name)
	}
	if existing != nil {
		return nil, fault.Conflictf("system role %s already exists", role.Name)
	}
	if err := s.roles.Create(ctx, role); err != nil {
		if fault.IsKind(err, fault.KindConflict) {
			return nil, err
		}
		return nil, fault.Wrap(fault.KindInternal, err, "create system role %s", role.Name)
	}
	return role, nil
}

// Get returns the role for id. Fails NotFound when absent.
func (s *Service) Get(ctx context.Context, id string) (*domain.SystemRole, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "get system role %s", id)
	}
	if role == nil {
		return nil, fault.NotFoundf("system role %s", id)
	}
	return role, nil
}

// List returns all system roles.
func (s *Service) List(ctx context.Context) ([]*domain.SystemRole, error) {
	list, err := s.roles.List(ctx)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "list system roles")
	}
	return list, nil
}

// AddPermission associates an existing, active permission with the role.
func (s *Service) AddPermission(ctx context.Context, roleID, permissionID string) error {
	role, err := s.Get(ctx, roleID)
	if err != nil {
		return err
	}
	perm, err := s.permissions.GetByID(ctx, permissionID)
	if err != nil {
		return fault.Wrap(fault.KindInternal, err, "get permission %s", permissionID)
	}
	if perm == nil {
		return fault.NotFoundf("permission %s", permissionID)
	}
	if !perm.Active {
		return fault.Conflictf("permission %s is inactive", perm.Name)
	}
	if err := role.AddPermission(permissionID, s.clk.Now()); err != nil {
		return err
	}
	return s.save(ctx, role)
}

// RemovePermission drops a permission association from the role.
func (s *Service) RemovePermission(ctx context.Context, roleID, permissionID string) error {
	role, err := s.Get(ctx, roleID)
	if err != nil {
		return err
	}
	if err := role.RemovePermission(permissionID, s.clk.Now()); err != nil {
		return err
	}
	return s.save(ctx, role)
}

// SetActive toggles the role's activation flag.
func (s *Service) SetActive(ctx context.Context, roleID string, active bool) error {
	role, err := s.Get(ctx, roleID)
	if err != nil {
		return err
	}
	if active {
		err = role.Activate(s.clk.Now())
	} else {
		err = role.Deactivate(s.clk.Now())
	}
	if err != nil {
		return err
	}
	return s.save(ctx, role)
}

func (s *Service) save(ctx context.Context, role *domain.SystemRole) error {
	if err := s.roles.Save(ctx, role); err != nil {
		if fault.KindOf(err) != fault.KindInternal {
			return err
		}
		return fault.Wrap(fault.KindInternal, err, "save system role %s", role.ID)
	}
	return nil
}
