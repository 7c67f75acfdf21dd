// Package domain holds the user-to-application assignment: which role a user
// carries inside one tenant. A user has at most one assignment per application.
package domain

import (
	"time"

	"authplane/internal/events"
	"authplane/internal/fault"
)

// Assignment links a user to an application with exactly one application role.
type Assignment struct {
	events.Recorder

	UserID            string
	ApplicationID     string
	ApplicationRoleID string
	AssignedAt        time.Time
	Active            bool
}

// New creates an assignment.
func New(userID, applicationID, roleID string, now time.Time) (*Assignment, error) {
	if userID == "" || applicationID == "" || roleID == "" {
		return nil, fault.Invalidf("assignment requires user, application and role")
	}
	a := &Assignment{
		UserID:            userID,
		ApplicationID:     applicationID,
		ApplicationRoleID: roleID,
		AssignedAt:        now,
		Active:            true,
	}
	a.Record(events.AssignmentCreated, userID, now, map[string]string{
		"application_id": applicationID,
		"role_id":        roleID,
	})
	return a, nil
}

// ChangeRole moves the assignment to another role of the same application.
// Fails Conflict when the role is unchanged.
func (a *Assignment) ChangeRole(roleID string, now time.Time) error {
	if roleID == a.ApplicationRoleID {
		return fault.Conflictf("user already holds role %s", roleID)
	}
	a.ApplicationRoleID = roleID
	a.Record(events.AssignmentRoleChanged, a.UserID, now, map[string]string{
		"application_id": a.ApplicationID,
		"role_id":        roleID,
	})
	return nil
}

// SetActive toggles the assignment. Fails Conflict when already in the target state.
func (a *Assignment) SetActive(active bool, now time.Time) error {
	if a.Active == active {
		if active {
			return fault.Conflictf("assignment is already active")
		}
		return fault.Conflictf("assignment is already inactive")
	}
	a.Active = active
	return nil
}
