package service

import (
	"context"
	"testing"
	"time"

	"authplane/internal/clock"
	"authplane/internal/fault"
	permissiondomain "authplane/internal/permission/domain"
	"authplane/internal/systemrole/domain"
)

type memRoleRepo struct {
	m map[string]*domain.SystemRole
}

func (r *memRoleRepo) GetByID(ctx context.Context, id string) (*domain.SystemRole, error) {
	return r.m[id], nil
}

func (r *memRoleRepo) GetByName(ctx context.Context, name string) (*domain.SystemRole, error) {
	for _, role := range r.m {
		if role.Name == name {
			return role, nil
		}
	}
	return nil, nil
}

func (r *memRoleRepo) ListByIDs(ctx context.Context, ids []string) ([]*domain.SystemRole, error) {
	var out []*domain.SystemRole
	for _, id := range ids {
		if role, ok := r.m[id]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *memRoleRepo) List(ctx context.Context) ([]*domain.SystemRole, error) {
	var out []*domain.SystemRole
	for _, role := range r.m {
		out = append(out, role)
	}
	return out, nil
}

func (r *memRoleRepo) Create(ctx context.Context, role *domain.SystemRole) error {
	r.m[role.ID] = role
	return nil
}

func (r *memRoleRepo) Save(ctx context.Context, role *domain.SystemRole) error {
	r.m[role.ID] = role
	return nil
}

type memPermRepo struct {
	m map[string]*permissiondomain.Permission
}

func (r *memPermRepo) GetByID(ctx context.Context, id string) (*permissiondomain.Permission, error) {
	return r.m[id], nil
}

func (r *memPermRepo) GetByName(ctx context.Context, name string) (*permissiondomain.Permission, error) {
	for _, p := range r.m {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}

func (r *memPermRepo) ListByIDs(ctx context.Context, ids []string) ([]*permissiondomain.Permission, error) {
	var out []*permissiondomain.Permission
	for _, id := range ids {
		if p, ok := r.m[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPermRepo) List(ctx context.Context) ([]*permissiondomain.Permission, error) {
	return nil, nil
}

func (r *memPermRepo) Create(ctx context.Context, p *permissiondomain.Permission) error {
	r.m[p.ID] = p
	return nil
}

func (r *memPermRepo) SetActive(ctx context.Context, id string, active bool) error {
	if p, ok := r.m[id]; ok {
		p.Active = active
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *memRoleRepo, *memPermRepo, *clock.Fixed) {
	t.Helper()
	roles := &memRoleRepo{m: map[string]*domain.SystemRole{}}
	perms := &memPermRepo{m: map[string]*permissiondomain.Permission{}}
	clk := &clock.Fixed{T: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewService(roles, perms, clk), roles, perms, clk
}

func TestCreate(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "platform-admin", "full control")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !role.Active || role.Name != "platform-admin" {
		t.Errorf("unexpected role: %+v", role)
	}

	if _, err := svc.Create(ctx, "platform-admin", ""); !fault.IsKind(err, fault.KindConflict) {
		t.Errorf("duplicate name: want Conflict, got %v", err)
	}
	if _, err := svc.Create(ctx, "", ""); !fault.IsKind(err, fault.KindInvalid) {
		t.Errorf("empty name: want Invalid, got %v", err)
	}
}

func TestAddRemovePermission(t *testing.T) {
	svc, _, perms, clk := newTestService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "auditor", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	p, err := permissiondomain.New("audit:read", "audit", "read", "", clk.Now())
	if err != nil {
		t.Fatalf("permission.New: %v", err)
	}
	perms.m[p.ID] = p

	if err := svc.AddPermission(ctx, role.ID, p.ID); err != nil {
		t.Fatalf("AddPermission: %v", err)
	}
	if err := svc.AddPermission(ctx, role.ID, p.ID); !fault.IsKind(err, fault.KindConflict) {
		t.Errorf("duplicate grant: want Conflict, got %v", err)
	}
	if err := svc.AddPermission(ctx, role.ID, "missing"); !fault.IsKind(err, fault.KindNotFound) {
		t.Errorf("missing permission: want NotFound, got %v", err)
	}

	p.Active = false
	p2, _ := permissiondomain.New("audit:purge", "audit", "purge", "", clk.Now())
	p2.Active = false
	perms.m[p2.ID] = p2
	if err := svc.AddPermission(ctx, role.ID, p2.ID); !fault.IsKind(err, fault.KindConflict) {
		t.Errorf("inactive permission: want Conflict, got %v", err)
	}

	if err := svc.RemovePermission(ctx, role.ID, p.ID); err != nil {
		t.Fatalf("RemovePermission: %v", err)
	}
	if err := svc.RemovePermission(ctx, role.ID, p.ID); !fault.IsKind(err, fault.KindNotFound) {
		t.Errorf("remove twice: want NotFound, got %v", err)
	}
}

func TestSetActive(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "auditor", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.SetActive(ctx, role.ID, false); err != nil {
		t.Fatalf("SetActive(false): %v", err)
	}
	if err := svc.SetActive(ctx, role.ID, false); !fault.IsKind(err, fault.KindConflict) {
		t.Errorf("deactivate twice: want Conflict, got %v", err)
	}
	if err := svc.SetActive(ctx, role.ID, true); err != nil {
		t.Fatalf("SetActive(true): %v", err)
	}
	if err := svc.SetActive(ctx, "missing", true); !fault.IsKind(err, fault.KindNotFound) {
		t.Errorf("missing role: want NotFound, got %v", err)
	}
}
