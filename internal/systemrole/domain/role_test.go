package domain

import (
	"testing"
	"time"

	"authplane/internal/fault"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	r, err := New("SuperAdmin", "full access", now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.ID == "" || !r.Active || r.Name != "SuperAdmin" {
		t.Errorf("unexpected role: %+v", r)
	}
	if _, err := New("   ", "", now); !fault.IsKind(err, fault.KindInvalid) {
		t.Errorf("blank name: want Invalid, got %v", err)
	}
}

func TestActivationToggle(t *testing.T) {
	r, _ := New("SuperAdmin", "", now)
	if err := r.Activate(now); !fault.IsKind(err, fault.KindConflict) {
		t.Errorf("activating active role: want Conflict, got %v", err)
	}
	if err := r.Deactivate(now); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if err := r.Deactivate(now); !fault.IsKind(err, fault.KindConflict) {
		t.Errorf("double deactivate: want Conflict, got %v", err)
	}
}

func TestPermissionAssociations(t *testing.T) {
	r, _ := New("SuperAdmin", "", now)
	if err := r.AddPermission("p1", now); err != nil {
		t.Fatalf("AddPermission: %v", err)
	}
	if err := r.AddPermission("p1", now); !fault.IsKind(err, fault.KindConflict) {
		t.Errorf("duplicate association: want Conflict, got %v", err)
	}
	if err := r.RemovePermission("p2", now); !fault.IsKind(err, fault.KindNotFound) {
		t.Errorf("unassociated removal: want NotFound, got %v", err)
	}
	if err := r.RemovePermission("p1", now); err != nil {
		t.Fatalf("RemovePermission: %v", err)
	}
}
