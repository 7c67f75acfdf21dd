// Package domain holds the Application aggregate: a tenant owning its role
// catalog and API key. All mutation goes through aggregate methods so the
// single-default and name-uniqueness invariants hold after every transition.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"authplane/internal/events"
	"authplane/internal/fault"
	"authplane/internal/security"
)

// APIKey is the stored form of an application's key: salted digest plus
// generation time. The plaintext exists only in the creation/rotation result.
type APIKey struct {
	Digest      string
	GeneratedAt time.Time
}

// Application is a tenant of the auth service.
type Application struct {
	events.Recorder

	ID        string
	Code      Code
	Name      string
	APIKey    APIKey
	Active    bool
	Roles     []*Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an application with its initial role catalog. At least one
// initial role is required; exactly one becomes the default (the first, when
// none is explicitly marked). Returns the plaintext API key exactly once.
func New(code Code, name string, initialRoles []RoleSpec, actorID string, now time.Time) (*Application, string, error) {
	if code.IsZero() {
		return nil, "", fault.Invalidf("application code is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", fault.Invalidf("application name is required")
	}
	if len(initialRoles) == 0 {
		return nil, "", fault.Invalidf("application requires at least one initial role")
	}

	plainKey, digest, err := security.GenerateAPIKey()
	if err != nil {
		return nil, "", fault.Wrap(fault.KindInternal, err, "generate api key")
	}

	app := &Application{
		ID:        uuid.New().String(),
		Code:      code,
		Name:      name,
		APIKey:    APIKey{Digest: digest, GeneratedAt: now},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	defaultSeen := false
	for _, spec := range initialRoles {
		if spec.IsDefault {
			if defaultSeen {
				return nil, "", fault.Conflictf("more than one initial role marked default")
			}
			defaultSeen = true
		}
		if app.findRoleByName(spec.Name) != nil {
			return nil, "", fault.Conflictf("duplicate initial role name %s", spec.Name)
		}
		role, err := newRole(spec, now)
		if err != nil {
			return nil, "", err
		}
		app.Roles = append(app.Roles, role)
	}
	if !defaultSeen {
		app.Roles[0].IsDefault = true
	}

	app.Record(events.ApplicationCreated, app.ID, now, map[string]string{
		"code":     app.Code.String(),
		"actor_id": actorID,
	})
	return app, plainKey, nil
}

// Role returns the role with the given id. Fails NotFound when absent.
func (a *Application) Role(roleID string) (*Role, error) {
	for _, r := range a.Roles {
		if r.ID == roleID {
			return r, nil
		}
	}
	return nil, fault.NotFoundf("role %s in application %s", roleID, a.Code)
}

// DefaultRole returns the current default role. An application always has one
// after creation; a nil return indicates a corrupted aggregate.
func (a *Application) DefaultRole() *Role {
	for _, r := range a.Roles {
		if r.IsDefault {
			return r
		}
	}
	return nil
}

// RoleByName returns the role with the given name (case-insensitive) or nil.
func (a *Application) RoleByName(name string) *Role {
	return a.findRoleByName(name)
}

// CreateRole adds a role to the catalog. Name collisions (case-insensitive)
// fail Conflict. When isDefault is set, the prior default is demoted first so
// the single-default invariant holds within this one mutation.
func (a *Application) CreateRole(name, description string, isDefault bool, actorID string, now time.Time) (*Role, error) {
	if a.findRoleByName(name) != nil {
		return nil, fault.Conflictf("role %s already exists in application %s", name, a.Code)
	}
	role, err := newRole(RoleSpec{Name: name, Description: description, IsDefault: isDefault}, now)
	if err != nil {
		return nil, err
	}
	if isDefault {
		if prior := a.DefaultRole(); prior != nil {
			prior.IsDefault = false
			prior.UpdatedAt = now
		}
	}
	a.Roles = append(a.Roles, role)
	a.UpdatedAt = now
	a.Record(events.ApplicationRoleCreated, a.ID, now, map[string]string{
		"role_id":  role.ID,
		"role":     role.Name,
		"actor_id": actorID,
	})
	if isDefault {
		a.Record(events.DefaultRoleChanged, a.ID, now, map[string]string{"role_id": role.ID, "actor_id": actorID})
	}
	return role, nil
}

// SetDefaultRole transfers default status to the given role as one atomic
// aggregate mutation: the target is auto-activated if needed (a default role
// must be usable), the prior default demoted, the target promoted. Idempotent
// for the current default.
func (a *Application) SetDefaultRole(roleID, actorID string, now time.Time) error {
	target, err := a.Role(roleID)
	if err != nil {
		return err
	}
	if target.IsDefault {
		return nil
	}
	if !target.Active {
		target.Active = true
	}
	if prior := a.DefaultRole(); prior != nil {
		prior.IsDefault = false
		prior.UpdatedAt = now
	}
	target.IsDefault = true
	target.UpdatedAt = now
	a.UpdatedAt = now
	a.Record(events.DefaultRoleChanged, a.ID, now, map[string]string{"role_id": roleID, "actor_id": actorID})
	return nil
}

// SetRoleActive toggles a role's activation. Deactivating the current default
// fails Conflict; callers must transfer default status first.
func (a *Application) SetRoleActive(roleID string, active bool, now time.Time) error {
	role, err := a.Role(roleID)
	if err != nil {
		return err
	}
	if !active && role.IsDefault {
		return fault.Conflictf("cannot deactivate default role %s; assign a new default first", role.Name)
	}
	if role.Active == active {
		if active {
			return fault.Conflictf("role %s is already active", role.Name)
		}
		return fault.Conflictf("role %s is already inactive", role.Name)
	}
	role.Active = active
	role.UpdatedAt = now
	a.UpdatedAt = now
	return nil
}

// RemoveRole deletes a role from the catalog. Fails Conflict when the role is
// the default or still referenced by assignments (assignmentCount > 0).
func (a *Application) RemoveRole(roleID string, assignmentCount int, now time.Time) error {
	role, err := a.Role(roleID)
	if err != nil {
		return err
	}
	if role.IsDefault {
		return fault.Conflictf("cannot delete default role %s", role.Name)
	}
	if assignmentCount > 0 {
		return fault.Conflictf("role %s is assigned to %d user(s)", role.Name, assignmentCount)
	}
	for i, r := range a.Roles {
		if r.ID == roleID {
			a.Roles = append(a.Roles[:i], a.Roles[i+1:]...)
			break
		}
	}
	a.UpdatedAt = now
	return nil
}

// AddRolePermission associates a permission with a role. Duplicates fail Conflict.
func (a *Application) AddRolePermission(roleID, permissionID string, now time.Time) error {
	role, err := a.Role(roleID)
	if err != nil {
		return err
	}
	if err := role.Permissions.Add(permissionID); err != nil {
		return err
	}
	role.UpdatedAt = now
	a.UpdatedAt = now
	return nil
}

// RemoveRolePermission drops a role's permission association. Unassociated
// permissions fail NotFound.
func (a *Application) RemoveRolePermission(roleID, permissionID string, now time.Time) error {
	role, err := a.Role(roleID)
	if err != nil {
		return err
	}
	if err := role.Permissions.Remove(permissionID); err != nil {
		return err
	}
	role.UpdatedAt = now
	a.UpdatedAt = now
	return nil
}

// RotateAPIKey replaces the application's API key, returning the new plaintext
// exactly once. The old key stops validating immediately.
func (a *Application) RotateAPIKey(now time.Time) (string, error) {
	plain, digest, err := security.GenerateAPIKey()
	if err != nil {
		return "", fault.Wrap(fault.KindInternal, err, "generate api key")
	}
	a.APIKey = APIKey{Digest: digest, GeneratedAt: now}
	a.UpdatedAt = now
	return plain, nil
}

// ValidateAPIKey reports whether plain matches the stored digest.
func (a *Application) ValidateAPIKey(plain string) bool {
	return security.APIKeyEqual(plain, a.APIKey.Digest)
}

// Deactivate suspends the tenant. Fails Conflict when already inactive.
func (a *Application) Deactivate(now time.Time) error {
	if !a.Active {
		return fault.Conflictf("application %s is already inactive", a.Code)
	}
	a.Active = false
	a.UpdatedAt = now
	return nil
}

func (a *Application) findRoleByName(name string) *Role {
	name = strings.TrimSpace(name)
	for _, r := range a.Roles {
		if strings.EqualFold(r.Name, name) {
			return r
		}
	}
	return nil
}
