// Package service exposes user account commands.
package service

import (
	"context"
	"log"
	"time"

	"authplane/internal/clock"
	"authplane/internal/events"
	"authplane/internal/fault"
	"authplane/internal/security"
	systemrolerepo "authplane/internal/systemrole/repository"
	"authplane/internal/user/domain"
	"authplane/internal/user/repository"
)

// DefaultResetTTL bounds how long a password reset token stays redeemable.
const DefaultResetTTL = time.Hour

// Service manages user aggregates.
type Service struct {
	users       repository.Repository
	systemRoles systemrolerepo.Repository
	hasher      *security.Hasher
	dispatcher  events.Dispatcher
	clk         clock.Clock
	resetTTL    time.Duration
}

// NewService returns a user service.
func NewService(
	users repository.Repository,
	systemRoles systemrolerepo.Repository,
	hasher *security.Hasher,
	dispatcher events.Dispatcher,
	clk clock.Clock,
) *Service {
	if dispatcher == nil {
		dispatcher = events.Nop{}
	}
	return &Service{
		users:       users,
		systemRoles: systemRoles,
		hasher:      hasher,
		dispatcher:  dispatcher,
		clk:         clk,
		resetTTL:    DefaultResetTTL,
	}
}

// SetResetTTL overrides how long password reset tokens stay redeemable.
// Non-positive durations are ignored.
func (s *Service) SetResetTTL(d time.Duration) {
	if d > 0 {
		s.resetTTL = d
	}
}

// Register creates a regular user. Duplicate emails fail Conflict.
func (s *Service) Register(ctx context.Context, rawEmail, password, firstName, lastName string) (*domain.User, error) {
	return s.register(ctx, rawEmail, password, firstName, lastName, domain.TypeRegular)
}

// RegisterAuthAdmin creates a control-plane operator account.
func (s *Service) RegisterAuthAdmin(ctx context.Context, rawEmail, password, firstName, lastName string) (*domain.User, error) {
	return s.register(ctx, rawEmail, password, firstName, lastName, domain.TypeAuthAdmin)
}

func (s *Service) register(ctx context.Context, rawEmail, password, firstName, lastName string, typ domain.Type) (*domain.User, error) {
	email, err := domain.ParseEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fault.Invalidf("password is required")
	}
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "check email %s", email)
	}
	if exists {
		return nil, fault.Conflictf("user %s already exists", email)
	}
	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "hash password")
	}
	var u *domain.User
	if typ == domain.TypeAuthAdmin {
		u, err = domain.NewAuthAdmin(email, hash, firstName, lastName, s.clk.Now())
	} else {
		u, err = domain.NewRegular(email, hash, firstName, lastName, s.clk.Now())
	}
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		if fault.IsKind(err, fault.KindConflict) {
			return nil, err
		}
		return nil, fault.Wrap(fault.KindInternal, err, "create user %s", email)
	}
	s.dispatch(ctx, u)
	return u, nil
}

// Get returns the user for id. Fails NotFound when absent.
func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "get user %s", id)
	}
	if u == nil {
		return nil, fault.NotFoundf("user %s", id)
	}
	return u, nil
}

// GetByEmail returns the user for the address. Fails NotFound when absent.
func (s *Service) GetByEmail(ctx context.Context, rawEmail string) (*domain.User, error) {
	email, err := domain.ParseEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "get user %s", email)
	}
	if u == nil {
		return nil, fault.NotFoundf("user %s", email)
	}
	return u, nil
}

// UpdateProfile replaces the user's display names.
func (s *Service) UpdateProfile(ctx context.Context, userID, firstName, lastName string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	u.UpdateProfile(firstName, lastName, s.clk.Now())
	return s.save(ctx, u)
}

// ConfirmEmail marks the user's address verified.
func (s *Service) ConfirmEmail(ctx context.Context, userID string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := u.ConfirmEmail(s.clk.Now()); err != nil {
		return err
	}
	return s.save(ctx, u)
}

// Deactivate suspends the user and burns all sessions.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := u.Deactivate(s.clk.Now()); err != nil {
		return err
	}
	return s.save(ctx, u)
}

// AssignSystemRole grants a system role to an auth admin. The role must exist
// and be active.
func (s *Service) AssignSystemRole(ctx context.Context, userID, roleID string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	role, err := s.systemRoles.GetByID(ctx, roleID)
	if err != nil {
		return fault.Wrap(fault.KindInternal, err, "get system role %s", roleID)
	}
	if role == nil {
		return fault.NotFoundf("system role %s", roleID)
	}
	if !role.Active {
		return fault.Conflictf("system role %s is inactive", role.Name)
	}
	if err := u.AssignSystemRole(roleID, s.clk.Now()); err != nil {
		return err
	}
	return s.save(ctx, u)
}

// RemoveSystemRole revokes a system role grant.
func (s *Service) RemoveSystemRole(ctx context.Context, userID, roleID string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := u.RemoveSystemRole(roleID, s.clk.Now()); err != nil {
		return err
	}
	return s.save(ctx, u)
}

// RequestPasswordReset issues an opaque reset token for the address and
// returns its plaintext exactly once. Unknown addresses fail NotFound; the
// transport layer decides whether to surface that distinction.
func (s *Service) RequestPasswordReset(ctx context.Context, rawEmail string) (string, error) {
	u, err := s.GetByEmail(ctx, rawEmail)
	if err != nil {
		return "", err
	}
	plain, err := security.NewRefreshTokenValue()
	if err != nil {
		return "", fault.Wrap(fault.KindInternal, err, "generate reset token")
	}
	u.SetPasswordResetToken(security.HashRefreshToken(plain), s.clk.Now().Add(s.resetTTL))
	if err := s.save(ctx, u); err != nil {
		return "", err
	}
	return plain, nil
}

// ResetPassword redeems a reset token, installing the new password and
// revoking every refresh token.
func (s *Service) ResetPassword(ctx context.Context, rawEmail, plainToken, newPassword string) error {
	u, err := s.GetByEmail(ctx, rawEmail)
	if err != nil {
		return err
	}
	if newPassword == "" {
		return fault.Invalidf("password is required")
	}
	hash, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return fault.Wrap(fault.KindInternal, err, "hash password")
	}
	if err := u.ConsumeResetToken(security.HashRefreshToken(plainToken), hash, s.clk.Now()); err != nil {
		return err
	}
	return s.save(ctx, u)
}

func (s *Service) save(ctx context.Context, u *domain.User) error {
	if err := s.users.Save(ctx, u); err != nil {
		if fault.KindOf(err) != fault.KindInternal {
			return err
		}
		return fault.Wrap(fault.KindInternal, err, "save user %s", u.ID)
	}
	s.dispatch(ctx, u)
	return nil
}

func (s *Service) dispatch(ctx context.Context, u *domain.User) {
	evs := u.DrainEvents()
	if len(evs) == 0 {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, evs); err != nil {
		log.Printf("user: event dispatch failed: %v", err)
	}
}
