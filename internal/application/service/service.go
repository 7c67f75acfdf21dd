// Package service exposes the application (tenant) commands.
package service

import (
	"context"
	"log"

	"authplane/internal/application/domain"
	"authplane/internal/application/repository"
	"authplane/internal/clock"
	"authplane/internal/events"
	"authplane/internal/fault"
	permissionrepo "authplane/internal/permission/repository"
)

// AssignmentCounter is the minimal assignment lookup needed for role deletion guards.
type AssignmentCounter interface {
	CountByRole(ctx context.Context, applicationID, roleID string) (int, error)
}

// CreateResult holds a newly created application and its plaintext API key.
// The key is returned exactly once and never recoverable afterwards.
type CreateResult struct {
	Application *domain.Application
	APIKey      string
}

// Service manages application aggregates. Each command runs as one unit of
// work: load, mutate in memory, save atomically, then dispatch drained events.
type Service struct {
	apps        repository.Repository
	permissions permissionrepo.Repository
	assignments AssignmentCounter
	dispatcher  events.Dispatcher
	clk         clock.Clock
}

// NewService returns an application service.
func NewService(
	apps repository.Repository,
	permissions permissionrepo.Repository,
	assignments AssignmentCounter,
	dispatcher events.Dispatcher,
	clk clock.Clock,
) *Service {
	if dispatcher == nil {
		dispatcher = events.Nop{}
	}
	return &Service{apps: apps, permissions: permissions, assignments: assignments, dispatcher: dispatcher, clk: clk}
}

// Create registers a new tenant with its initial role catalog. Returns the
// aggregate plus the one-time plaintext API key. Duplicate codes fail Conflict.
func (s *Service) Create(ctx context.Context, rawCode, name string, initialRoles []domain.RoleSpec, actorID string) (*CreateResult, error) {
	code, err := domain.ParseCode(rawCode)
	if err != nil {
		return nil, err
	}
	exists, err := s.apps.ExistsByCode(ctx, code)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "check application code %s", code)
	}
	if exists {
		return nil, fault.Conflictf("application %s already exists", code)
	}
	app, plainKey, err := domain.New(code, name, initialRoles, actorID, s.clk.Now())
	if err != nil {
		return nil, err
	}
	if err := s.apps.Create(ctx, app); err != nil {
		if fault.IsKind(err, fault.KindConflict) {
			return nil, err
		}
		return nil, fault.Wrap(fault.KindInternal, err, "create application %s", code)
	}
	s.dispatch(ctx, app)
	return &CreateResult{Application: app, APIKey: plainKey}, nil
}

// GetByCode returns the application for the raw code. Fails NotFound when absent.
func (s *Service) GetByCode(ctx context.Context, rawCode string) (*domain.Application, error) {
	code, err := domain.ParseCode(rawCode)
	if err != nil {
		return nil, err
	}
	app, err := s.apps.GetByCode(ctx, code)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "get application %s", code)
	}
	if app == nil {
		return nil, fault.NotFoundf("application %s", code)
	}
	return app, nil
}

// Get returns the application for id. Fails NotFound when absent.
func (s *Service) Get(ctx context.Context, id string) (*domain.Application, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "get application %s", id)
	}
	if app == nil {
		return nil, fault.NotFoundf("application %s", id)
	}
	return app, nil
}

// CreateRole adds a role to the application's catalog.
func (s *Service) CreateRole(ctx context.Context, appID, name, description string, isDefault bool, actorID string) (*domain.Role, error) {
	app, err := s.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	role, err := app.CreateRole(name, description, isDefault, actorID, s.clk.Now())
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, app); err != nil {
		return nil, err
	}
	return role, nil
}

// SetDefaultRole transfers default status to the given role.
func (s *Service) SetDefaultRole(ctx context.Context, appID, roleID, actorID string) error {
	app, err := s.Get(ctx, appID)
	if err != nil {
		return err
	}
	if err := app.SetDefaultRole(roleID, actorID, s.clk.Now()); err != nil {
		return err
	}
	return s.save(ctx, app)
}

// SetRoleActive toggles a role's activation flag.
func (s *Service) SetRoleActive(ctx context.Context, appID, roleID string, active bool) error {
	app, err := s.Get(ctx, appID)
	if err != nil {
		return err
	}
	if err := app.SetRoleActive(roleID, active, s.clk.Now()); err != nil {
		return err
	}
	return s.save(ctx, app)
}

// DeleteRole removes a role. Default roles and roles still referenced by user
// assignments fail Conflict.
func (s *Service) DeleteRole(ctx context.Context, appID, roleID string) error {
	app, err := s.Get(ctx, appID)
	if err != nil {
		return err
	}
	count, err := s.assignments.CountByRole(ctx, appID, roleID)
	if err != nil {
		return fault.Wrap(fault.KindInternal, err, "count assignments for role %s", roleID)
	}
	if err := app.RemoveRole(roleID, count, s.clk.Now()); err != nil {
		return err
	}
	return s.save(ctx, app)
}

// AddRolePermission associates an existing, active catalog permission with a role.
func (s *Service) AddRolePermission(ctx context.Context, appID, roleID, permissionID string) error {
	app, err := s.Get(ctx, appID)
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
	if err := app.AddRolePermission(roleID, permissionID, s.clk.Now()); err != nil {
		return err
	}
	return s.save(ctx, app)
}

// RemoveRolePermission drops a role's permission association.
func (s *Service) RemoveRolePermission(ctx context.Context, appID, roleID, permissionID string) error {
	app, err := s.Get(ctx, appID)
	if err != nil {
		return err
	}
	if err := app.RemoveRolePermission(roleID, permissionID, s.clk.Now()); err != nil {
		return err
	}
	return s.save(ctx, app)
}

// RotateAPIKey replaces the application's API key and returns the new
// plaintext exactly once.
func (s *Service) RotateAPIKey(ctx context.Context, appID string) (string, error) {
	app, err := s.Get(ctx, appID)
	if err != nil {
		return "", err
	}
	plain, err := app.RotateAPIKey(s.clk.Now())
	if err != nil {
		return "", err
	}
	if err := s.save(ctx, app); err != nil {
		return "", err
	}
	return plain, nil
}

// VerifyAPIKey checks a presented plaintext key against the application's
// stored digest. Inactive applications and mismatches fail Forbidden.
func (s *Service) VerifyAPIKey(ctx context.Context, rawCode, plainKey string) (*domain.Application, error) {
	app, err := s.GetByCode(ctx, rawCode)
	if err != nil {
		return nil, err
	}
	if !app.Active || !app.ValidateAPIKey(plainKey) {
		return nil, fault.Forbiddenf("invalid api key for application %s", app.Code)
	}
	return app, nil
}

// Deactivate suspends the tenant.
func (s *Service) Deactivate(ctx context.Context, appID string) error {
	app, err := s.Get(ctx, appID)
	if err != nil {
		return err
	}
	if err := app.Deactivate(s.clk.Now()); err != nil {
		return err
	}
	return s.save(ctx, app)
}

func (s *Service) save(ctx context.Context, app *domain.Application) error {
	if err := s.apps.Save(ctx, app); err != nil {
		if fault.KindOf(err) != fault.KindInternal {
			return err
		}
		return fault.Wrap(fault.KindInternal, err, "save application %s", app.ID)
	}
	s.dispatch(ctx, app)
	return nil
}

// dispatch drains aggregate events after the unit of work committed. Delivery
// is best-effort; failures must not undo a committed mutation.
func (s *Service) dispatch(ctx context.Context, app *domain.Application) {
	evs := app.DrainEvents()
	if len(evs) == 0 {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, evs); err != nil {
		log.Printf("application: event dispatch failed: %v", err)
	}
}
