package rolekit

import (
	"testing"

	"authplane/internal/fault"
)

func TestPermissionSet_AddRemove(t *testing.T) {
	var s PermissionSet

	if err := s.Add("p1"); err != nil {
		t.Fatalf("Add(p1): %v", err)
	}
	if err := s.Add("p2"); err != nil {
		t.Fatalf("Add(p2): %v", err)
	}
	if err := s.Add("p1"); !fault.IsKind(err, fault.KindConflict) {
		t.Errorf("re-adding p1: want Conflict, got %v", err)
	}
	if !s.Has("p1") || !s.Has("p2") || s.Len() != 2 {
		t.Errorf("set state wrong: %v", s.IDs())
	}

	if err := s.Remove("p1"); err != nil {
		t.Fatalf("Remove(p1): %v", err)
	}
	if err := s.Remove("p1"); !fault.IsKind(err, fault.KindNotFound) {
		t.Errorf("removing unassociated p1: want NotFound, got %v", err)
	}
	if s.Has("p1") || s.Len() != 1 {
		t.Errorf("set state after remove: %v", s.IDs())
	}
}

func TestPermissionSet_AddEmpty(t *testing.T) {
	var s PermissionSet
	if err := s.Add(""); !fault.IsKind(err, fault.KindInvalid) {
		t.Errorf("Add(\"\"): want Invalid, got %v", err)
	}
}

func TestNewPermissionSet_DropsDuplicates(t *testing.T) {
	s := NewPermissionSet("a", "b", "a")
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	ids := s.IDs()
	if ids[0] != "a" || ids[1] != "b" {
		t.Errorf("IDs = %v", ids)
	}
}
