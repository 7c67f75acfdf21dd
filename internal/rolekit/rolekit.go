// Package rolekit holds the permission-association shape shared by system roles
// and application roles. Both role kinds are distinct aggregate types; only this
// small value shape is common, so there is no base/derived hierarchy to maintain.
package rolekit

import (
	"authplane/internal/fault"
)

// PermissionSet is an ordered set of permission IDs with no duplicate pairs.
// The zero value is an empty set.
type PermissionSet struct {
	ids []string
}

// NewPermissionSet returns a set seeded with ids. Duplicates are dropped.
func NewPermissionSet(ids ...string) PermissionSet {
	var s PermissionSet
	for _, id := range ids {
		if !s.Has(id) {
			s.ids = append(s.ids, id)
		}
	}
	return s
}

// Has reports whether id is in the set.
func (s *PermissionSet) Has(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Add associates id. Re-adding an existing association fails Conflict rather
// than being silently ignored, surfacing caller bugs.
func (s *PermissionSet) Add(id string) error {
	if id == "" {
		return fault.Invalidf("permission id is required")
	}
	if s.Has(id) {
		return fault.Conflictf("permission %s already associated", id)
	}
	s.ids = append(s.ids, id)
	return nil
}

// Remove drops the association. Removing an unassociated permission fails NotFound.
func (s *PermissionSet) Remove(id string) error {
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return nil
		}
	}
	return fault.NotFoundf("permission %s not associated", id)
}

// IDs returns a copy of the associated permission IDs in insertion order.
func (s *PermissionSet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of associations.
func (s *PermissionSet) Len() int { return len(s.ids) }
