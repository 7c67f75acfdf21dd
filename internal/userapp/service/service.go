// Package service exposes assignment commands: granting users access to
// applications and moving them between roles.
package service

import (
	"context"
	"log"

	applicationdomain "authplane/internal/application/domain"
	"authplane/internal/clock"
	"authplane/internal/events"
	"authplane/internal/fault"
	"authplane/internal/user/domain"
	assignmentdomain "authplane/internal/userapp/domain"
	"authplane/internal/userapp/repository"
)

// UserGetter is the slice of the user repository this service needs.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// ApplicationGetter is the slice of the application repository this service needs.
type ApplicationGetter interface {
	GetByCode(ctx context.Context, code applicationdomain.Code) (*applicationdomain.Application, error)
}

// Service manages user-application assignments.
type Service struct {
	assignments repository.Repository
	apps        ApplicationGetter
	users       UserGetter
	dispatcher  events.Dispatcher
	clk         clock.Clock
}

// NewService returns an assignment service.
func NewService(
	assignments repository.Repository,
	apps ApplicationGetter,
	users UserGetter,
	dispatcher events.Dispatcher,
	clk clock.Clock,
) *Service {
	if dispatcher == nil {
		dispatcher = events.Nop{}
	}
	return &Service{assignments: assignments, apps: apps, users: users, dispatcher: dispatcher, clk: clk}
}

// Assign grants the user access to the application. An empty roleID resolves
// to the application's default role; an explicit role must belong to this
// application and be active. Duplicate assignments fail Conflict.
func (s *Service) Assign(ctx context.Context, userID, rawCode, roleID string) (*assignmentdomain.Assignment, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, fault.Conflictf("user %s is inactive", u.Email)
	}
	app, err := s.application(ctx, rawCode)
	if err != nil {
		return nil, err
	}
	if !app.Active {
		return nil, fault.Conflictf("application %s is inactive", app.Code)
	}

	if roleID == "" {
		def := app.DefaultRole()
		if def == nil {
			return nil, fault.Internalf("application %s has no default role", app.Code)
		}
		roleID = def.ID
	} else {
		role, err := app.Role(roleID)
		if err != nil {
			return nil, fault.Invalidf("role %s does not belong to application %s", roleID, app.Code)
		}
		if !role.Active {
			return nil, fault.Conflictf("role %s is inactive", role.Name)
		}
	}

	existing, err := s.assignments.Get(ctx, userID, app.ID)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "get assignment")
	}
	if existing != nil {
		return nil, fault.Conflictf("user %s is already assigned to application %s", u.Email, app.Code)
	}

	a, err := assignmentdomain.New(userID, app.ID, roleID, s.clk.Now())
	if err != nil {
		return nil, err
	}
	if err := s.assignments.Create(ctx, a); err != nil {
		if fault.KindOf(err) != fault.KindInternal {
			return nil, err
		}
		return nil, fault.Wrap(fault.KindInternal, err, "create assignment")
	}
	s.dispatch(ctx, a)
	return a, nil
}

// ChangeRole moves the user's assignment to another role of the same application.
func (s *Service) ChangeRole(ctx context.Context, userID, rawCode, roleID string) error {
	app, err := s.application(ctx, rawCode)
	if err != nil {
		return err
	}
	role, err := app.Role(roleID)
	if err != nil {
		return fault.Invalidf("role %s does not belong to application %s", roleID, app.Code)
	}
	if !role.Active {
		return fault.Conflictf("role %s is inactive", role.Name)
	}
	a, err := s.assignment(ctx, userID, app.ID)
	if err != nil {
		return err
	}
	if err := a.ChangeRole(roleID, s.clk.Now()); err != nil {
		return err
	}
	return s.save(ctx, a)
}

// SetActive toggles the user's assignment in the application.
func (s *Service) SetActive(ctx context.Context, userID, rawCode string, active bool) error {
	app, err := s.application(ctx, rawCode)
	if err != nil {
		return err
	}
	a, err := s.assignment(ctx, userID, app.ID)
	if err != nil {
		return err
	}
	if err := a.SetActive(active, s.clk.Now()); err != nil {
		return err
	}
	return s.save(ctx, a)
}

// Unassign removes the user's access to the application.
func (s *Service) Unassign(ctx context.Context, userID, rawCode string) error {
	app, err := s.application(ctx, rawCode)
	if err != nil {
		return err
	}
	a, err := s.assignment(ctx, userID, app.ID)
	if err != nil {
		return err
	}
	if err := s.assignments.Delete(ctx, userID, app.ID); err != nil {
		if fault.KindOf(err) != fault.KindInternal {
			return err
		}
		return fault.Wrap(fault.KindInternal, err, "delete assignment")
	}
	a.Record(events.AssignmentRemoved, userID, s.clk.Now(), map[string]string{"application_id": app.ID})
	s.dispatch(ctx, a)
	return nil
}

// ListByUser returns every assignment the user holds.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*assignmentdomain.Assignment, error) {
	list, err := s.assignments.ListByUser(ctx, userID)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "list assignments for user %s", userID)
	}
	return list, nil
}

func (s *Service) user(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "get user %s", userID)
	}
	if u == nil {
		return nil, fault.NotFoundf("user %s", userID)
	}
	return u, nil
}

func (s *Service) application(ctx context.Context, rawCode string) (*applicationdomain.Application, error) {
	code, err := applicationdomain.ParseCode(rawCode)
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

func (s *Service) assignment(ctx context.Context, userID, appID string) (*assignmentdomain.Assignment, error) {
	a, err := s.assignments.Get(ctx, userID, appID)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "get assignment")
	}
	if a == nil {
		return nil, fault.NotFoundf("assignment for user %s in application %s", userID, appID)
	}
	return a, nil
}

func (s *Service) save(ctx context.Context, a *assignmentdomain.Assignment) error {
	if err := s.assignments.Save(ctx, a); err != nil {
		if fault.KindOf(err) != fault.KindInternal {
			return err
		}
		return fault.Wrap(fault.KindInternal, err, "save assignment")
	}
	s.dispatch(ctx, a)
	return nil
}

func (s *Service) dispatch(ctx context.Context, a *assignmentdomain.Assignment) {
	evs := a.DrainEvents()
	if len(evs) == 0 {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, evs); err != nil {
		log.Printf("userapp: event dispatch failed: %v", err)
	}
}
