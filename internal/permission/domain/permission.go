// Package domain holds the global permission catalog: a flat set of
// (resource, action) pairs, unique by name across all applications.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"authplane/internal/fault"
)

// Permission is a named capability. Immutable after creation except the
// activation toggle.
type Permission struct {
	ID          string
	Name        string
	Resource    string
	Action      string
	Description string
	Active      bool
	CreatedAt   time.Time
}

// New creates a permission through the factory so the identity invariants hold
// from the start. Name defaults to "resource:action" when empty.
func New(name, resource, action, description string, now time.Time) (*Permission, error) {
	resource = strings.TrimSpace(resource)
	action = strings.TrimSpace(action)
	name = strings.TrimSpace(name)
	if resource == "" {
		return nil, fault.Invalidf("permission resource is required")
	}
	if action == "" {
		return nil, fault.Invalidf("permission action is required")
	}
	if name == "" {
		name = resource + ":" + action
	}
	return &Permission{
		ID:          uuid.New().String(),
		Name:        name,
		Resource:    resource,
		Action:      action,
		Description: strings.TrimSpace(description),
		Active:      true,
		CreatedAt:   now,
	}, nil
}

// Activate marks the permission grantable again. Fails Conflict when already active.
func (p *Permission) Activate() error {
	if p.Active {
		return fault.Conflictf("permission %s is already active", p.Name)
	}
	p.Active = true
	return nil
}

// Deactivate withdraws the permission from future grants. Fails Conflict when
// already inactive.
func (p *Permission) Deactivate() error {
	if !p.Active {
		return fault.Conflictf("permission %s is already inactive", p.Name)
	}
	p.Active = false
	return nil
}
