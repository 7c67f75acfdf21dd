// Package events defines outbound domain event records. Aggregates append
// events after successful mutations; the owning service drains them once the
// transaction completes and hands them to a Dispatcher. No global bus: ordering
// and at-most-once delivery per transaction stay explicit.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is a single outbound domain event record.
type Event struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	AggregateID string            `json:"aggregate_id"`
	OccurredAt  time.Time         `json:"occurred_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Event names emitted by the aggregates.
const (
	UserRegistered         = "user.registered"
	UserDeactivated        = "user.deactivated"
	UserSystemRoleChanged  = "user.system_role_changed"
	ApplicationCreated     = "application.created"
	ApplicationRoleCreated = "application.role_created"
	DefaultRoleChanged     = "application.default_role_changed"
	AssignmentCreated      = "assignment.created"
	AssignmentRoleChanged  = "assignment.role_changed"
	AssignmentRemoved      = "assignment.removed"
	TokenReuseDetected     = "auth.token_reuse_detected"
	PasswordResetPerformed = "user.password_reset"
)

// Dispatcher delivers drained events. Callers use it best-effort after commit:
// log and ignore errors rather than failing the completed operation.
type Dispatcher interface {
	Dispatch(ctx context.Context, evs []Event) error
}

// Nop is a Dispatcher that drops all events. Used when no broker is configured.
type Nop struct{}

// Dispatch discards evs.
func (Nop) Dispatch(context.Context, []Event) error { return nil }

// Recorder collects events on an aggregate. Zero value is ready to use.
// Not safe for concurrent use; aggregates are mutated under a single unit of work.
type Recorder struct {
	pending []Event
}

// Record appends an event with a fresh ID.
func (r *Recorder) Record(name, aggregateID string, at time.Time, metadata map[string]string) {
	r.pending = append(r.pending, Event{
		ID:          uuid.New().String(),
		Name:        name,
		AggregateID: aggregateID,
		OccurredAt:  at,
		Metadata:    metadata,
	})
}

// DrainEvents returns and clears the pending events.
func (r *Recorder) DrainEvents() []Event {
	evs := r.pending
	r.pending = nil
	return evs
}
