// Package domain holds the SystemRole aggregate: global roles assignable only
// to Auth Admin users. Name is unique across the whole system.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"authplane/internal/fault"
	"authplane/internal/rolekit"
)

// SystemRole is a global role with a permission association set.
type SystemRole struct {
	ID          string
	Name        string
	Description string
	Active      bool
	Permissions rolekit.PermissionSet
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New creates a system role through the factory.
func New(name, description string, now time.Time) (*SystemRole, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fault.Invalidf("system role name is required")
	}
	return &SystemRole{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Activate marks the role assignable again. Fails Conflict when already active.
func (r *SystemRole) Activate(now time.Time) error {
	if r.Active {
		return fault.Conflictf("system role %s is already active", r.Name)
	}
	r.Active = true
	r.UpdatedAt = now
	return nil
}

// Deactivate withdraws the role from future assignments. Fails Conflict when
// already inactive.
func (r *SystemRole) Deactivate(now time.Time) error {
	if !r.Active {
		return fault.Conflictf("system role %s is already inactive", r.Name)
	}
	r.Active = false
	r.UpdatedAt = now
	return nil
}

// AddPermission associates a permission. Duplicate associations fail Conflict.
func (r *SystemRole) AddPermission(permissionID string, now time.Time) error {
	if err := r.Permissions.Add(permissionID); err != nil {
		return err
	}
	r.UpdatedAt = now
	return nil
}

// RemovePermission drops an association. Unassociated permissions fail NotFound.
func (r *SystemRole) RemovePermission(permissionID string, now time.Time) error {
	if err := r.Permissions.Remove(permissionID); err != nil {
		return err
	}
	r.UpdatedAt = now
	return nil
}
