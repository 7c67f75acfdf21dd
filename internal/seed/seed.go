// Package seed bootstraps the first auth admin so a fresh deployment has a
// credential that can manage applications and roles.
package seed

import (
	"context"

	"authplane/internal/clock"
	"authplane/internal/fault"
	"authplane/internal/security"
	systemroledomain "authplane/internal/systemrole/domain"
	systemrolerepo "authplane/internal/systemrole/repository"
	"authplane/internal/user/domain"
	userrepo "authplane/internal/user/repository"
)

// PlatformAdminRole is the system role granted to the bootstrap admin.
const PlatformAdminRole = "platform-admin"

// EnsureAdmin creates an auth admin with the given credentials if no user with
// that email exists, grants it the platform-admin system role, and returns the
// user. Idempotent: an existing user is returned unchanged with created=false.
func EnsureAdmin(ctx context.Context, users userrepo.Repository, roles systemrolerepo.Repository, hasher *security.Hasher, clk clock.Clock, email, password string) (admin *domain.User, created bool, err error) {
	addr, err := domain.ParseEmail(email)
	if err != nil {
		return nil, false, err
	}
	if password == "" {
		return nil, false, fault.Invalidf("admin password must not be empty")
	}

	existing, err := users.GetByEmail(ctx, addr)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	role, err := ensureRole(ctx, roles, clk)
	if err != nil {
		return nil, false, err
	}

	hash, err := hasher.Hash([]byte(password))
	if err != nil {
		return nil, false, err
	}
	now := clk.Now()
	admin, err = domain.NewAuthAdmin(addr, hash, "Admin", "", now)
	if err != nil {
		return nil, false, err
	}
	if err := admin.ConfirmEmail(now); err != nil {
		return nil, false, err
	}
	if err := admin.AssignSystemRole(role.ID, now); err != nil {
		return nil, false, err
	}
	if err := users.Create(ctx, admin); err != nil {
		return nil, false, err
	}
	return admin, true, nil
}

func ensureRole(ctx context.Context, roles systemrolerepo.Repository, clk clock.Clock) (*systemroledomain.SystemRole, error) {
	role, err := roles.GetByName(ctx, PlatformAdminRole)
	if err != nil {
		return nil, err
	}
	if role != nil {
		return role, nil
	}
	role, err = systemroledomain.New(PlatformAdminRole, "full control over the control plane", clk.Now())
	if err != nil {
		return nil, err
	}
	if err := roles.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}
