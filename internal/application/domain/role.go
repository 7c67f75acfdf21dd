package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"authplane/internal/fault"
	"authplane/internal/rolekit"
)

// Role is an application-scoped role. Name is unique within its application
// (case-insensitive); at most one role per application is the default.
type Role struct {
	ID          string
	Name        string
	Description string
	IsDefault   bool
	Active      bool
	Permissions rolekit.PermissionSet
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoleSpec describes a role to create, used for initial roles at application creation.
type RoleSpec struct {
	Name        string
	Description string
	IsDefault   bool
}

func newRole(spec RoleSpec, now time.Time) (*Role, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, fault.Invalidf("application role name is required")
	}
	return &Role{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(spec.Description),
		IsDefault:   spec.IsDefault,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
