package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"authplane/internal/clock"
	"authplane/internal/fault"
	"authplane/internal/permission/domain"
)

type memPermissionRepo struct {
	mu sync.Mutex
	m  map[string]*domain.Permission
}

func newMemPermissionRepo() *memPermissionRepo {
	return &memPermissionRepo{m: map[string]*domain.Permission{}}
}

func (r *memPermissionRepo) GetByID(ctx context.Context, id string) (*domain.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[id], nil
}

func (r *memPermissionRepo) GetByName(ctx context.Context, name string) (*domain.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.m {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}

func (r *memPermissionRepo) ListByIDs(ctx context.Context, ids []string) ([]*domain.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Permission
	for _, id := range ids {
		if p, ok := r.m[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPermissionRepo) List(ctx context.Context) ([]*domain.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Permission
	for _, p := range r.m {
		out = append(out, p)
	}
	return out, nil
}

func (r *memPermissionRepo) Create(ctx context.Context, p *domain.Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[p.ID] = p
	return nil
}

func (r *memPermissionRepo) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.m[id]
	if !ok {
		return fault.NotFoundf("permission %s", id)
	}
	p.Active = active
	return nil
}

func newTestService() (*Service, *memPermissionRepo) {
	repo := newMemPermissionRepo()
	clk := &clock.Fixed{T: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewService(repo, clk), repo
}

func TestCreate_DuplicateName(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, "", "invoices", "read", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := svc.Create(ctx, "", "invoices", "read", "again")
	if !fault.IsKind(err, fault.KindConflict) {
		t.Errorf("duplicate name: want Conflict, got %v", err)
	}
}

func TestSetActive(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, "", "invoices", "read", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.SetActive(ctx, p.ID, false); err != nil {
		t.Fatalf("SetActive(false): %v", err)
	}
	if _, err := svc.SetActive(ctx, p.ID, false); !fault.IsKind(err, fault.KindConflict) {
		t.Errorf("double deactivate: want Conflict, got %v", err)
	}
	if _, err := svc.SetActive(ctx, "missing", true); !fault.IsKind(err, fault.KindNotFound) {
		t.Errorf("missing id: want NotFound, got %v", err)
	}
}
