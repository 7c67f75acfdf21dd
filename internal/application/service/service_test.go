package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"authplane/internal/application/domain"
	"authplane/internal/clock"
	"authplane/internal/fault"
	permissiondomain "authplane/internal/permission/domain"
)

type memAppRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.Application
	byCode map[string]*domain.Application
}

func newMemAppRepo() *memAppRepo {
	return &memAppRepo{byID: map[string]*domain.Application{}, byCode: map[string]*domain.Application{}}
}

func (r *memAppRepo) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memAppRepo) GetByCode(ctx context.Context, code domain.Code) (*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byCode[code.String()], nil
}

func (r *memAppRepo) ExistsByCode(ctx context.Context, code domain.Code) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byCode[code.String()]
	return ok, nil
}

func (r *memAppRepo) Create(ctx context.Context, a *domain.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCode[a.Code.String()]; ok {
		return fault.Conflictf("application %s already exists", a.Code)
	}
	r.byID[a.ID] = a
	r.byCode[a.Code.String()] = a
	return nil
}

func (r *memAppRepo) Save(ctx context.Context, a *domain.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID]; !ok {
		return fault.NotFoundf("application %s", a.ID)
	}
	r.byID[a.ID] = a
	r.byCode[a.Code.String()] = a
	return nil
}

type memPermissionLookup struct {
	m map[string]*permissiondomain.Permission
}

func (r *memPermissionLookup) GetByID(ctx context.Context, id string) (*permissiondomain.Permission, error) {
	return r.m[id], nil
}

func (r *memPermissionLookup) GetByName(ctx context.Context, name string) (*permissiondomain.Permission, error) {
	for _, p := range r.m {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}

func (r *memPermissionLookup) ListByIDs(ctx context.Context, ids []string) ([]*permissiondomain.Permission, error) {
	var out []*permissiondomain.Permission
	for _, id := range ids {
		if p, ok := r.m[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPermissionLookup) List(ctx context.Context) ([]*permissiondomain.Permission, error) {
	return nil, nil
}

func (r *memPermissionLookup) Create(ctx context.Context, p *permissiondomain.Permission) error {
	r.m[p.ID] = p
	return nil
}

func (r *memPermissionLookup) SetActive(ctx context.Context, id string, active bool) error {
	if p, ok := r.m[id]; ok {
		p.Active = active
		return nil
	}
	return fault.NotFoundf("permission %s", id)
}

type stubAssignmentCounter struct {
	counts map[string]int
}

func (c *stubAssignmentCounter) CountByRole(ctx context.Context, appID, roleID string) (int, error) {
	return c.counts[roleID], nil
}

func newTestService() (*Service, *stubAssignmentCounter, *memPermissionLookup) {
	apps := newMemAppRepo()
	perms := &memPermissionLookup{m: map[string]*permissiondomain.Permission{}}
	counter := &stubAssignmentCounter{counts: map[string]int{}}
	clk := &clock.Fixed{T: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewService(apps, perms, counter, nil, clk), counter, perms
}

func createBilling(t *testing.T, svc *Service) *domain.Application {
	t.Helper()
	res, err := svc.Create(context.Background(), "billing", "Billing", []domain.RoleSpec{
		{Name: "Viewer", IsDefault: true},
		{Name: "Admin"},
	}, "actor-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return res.Application
}

func TestCreate_ReturnsKeyOnceAndRejectsDuplicates(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	res, err := svc.Create(ctx, "billing", "Billing", []domain.RoleSpec{{Name: "Viewer"}}, "actor-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.APIKey == "" {
		t.Error("plaintext api key missing from creation result")
	}
	if !res.Application.ValidateAPIKey(res.APIKey) {
		t.Error("returned key does not validate against stored digest")
	}

	_, err = svc.Create(ctx, "BILLING", "Billing 2", []domain.RoleSpec{{Name: "Viewer"}}, "actor-1")
	if !fault.IsKind(err, fault.KindConflict) {
		t.Errorf("duplicate code (case-insensitive): want Conflict, got %v", err)
	}
}

func TestGetByCode_NormalizesAndFindsDefault(t *testing.T) {
	svc, _, _ := newTestService()
	createBilling(t, svc)

	app, err := svc.GetByCode(context.Background(), "billing")
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	def := app.DefaultRole()
	if def == nil || def.Name != "Viewer" {
		t.Errorf("default role = %v, want Viewer", def)
	}

	if _, err := svc.GetByCode(context.Background(), "missing-app"); !fault.IsKind(err, fault.KindNotFound) {
		t.Errorf("missing code: want NotFound, got %v", err)
	}
}

func TestDeleteRole_GuardsAndTransfer(t *testing.T) {
	svc, counter, _ := newTestService()
	app := createBilling(t, svc)
	ctx := context.Background()
	viewer := app.RoleByName("Viewer")
	admin := app.RoleByName("Admin")

	if err := svc.DeleteRole(ctx, app.ID, viewer.ID); !fault.IsKind(err, fault.KindConflict) {
		t.Errorf("deleting default role: want Conflict, got %v", err)
	}

	counter.counts[admin.ID] = 2
	if err := svc.DeleteRole(ctx, app.ID, admin.ID); !fault.IsKind(err, fault.KindConflict) {
		t.Errorf("deleting referenced role: want Conflict, got %v", err)
	}
	counter.counts[admin.ID] = 0

	// Transfer default to Admin, then Viewer deletes cleanly.
	if err := svc.SetDefaultRole(ctx, app.ID, admin.ID, "actor-1"); err != nil {
		t.Fatalf("SetDefaultRole: %v", err)
	}
	if err := svc.DeleteRole(ctx, app.ID, viewer.ID); err != nil {
		t.Fatalf("DeleteRole(Viewer): %v", err)
	}

	got, err := svc.Get(ctx, app.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Roles) != 1 || !got.Roles[0].IsDefault || got.Roles[0].Name != "Admin" {
		t.Errorf("final catalog wrong: %+v", got.Roles)
	}
}

func TestAddRolePermission_RequiresActiveCatalogEntry(t *testing.T) {
	svc, _, perms := newTestService()
	app := createBilling(t, svc)
	ctx := context.Background()
	viewer := app.RoleByName("Viewer")

	if err := svc.AddRolePermission(ctx, app.ID, viewer.ID, "nope"); !fault.IsKind(err, fault.KindNotFound) {
		t.Errorf("unknown permission: want NotFound, got %v", err)
	}

	p, _ := permissiondomain.New("", "invoices", "read", "", time.Now())
	perms.m[p.ID] = p

	if err := svc.AddRolePermission(ctx, app.ID, viewer.ID, p.ID); err != nil {
		t.Fatalf("AddRolePermission: %v", err)
	}
	if err := svc.AddRolePermission(ctx, app.ID, viewer.ID, p.ID); !fault.IsKind(err, fault.KindConflict) {
		t.Errorf("duplicate association: want Conflict, got %v", err)
	}

	p.Active = false
	p2, _ := permissiondomain.New("", "invoices", "write", "", time.Now())
	p2.Active = false
	perms.m[p2.ID] = p2
	if err := svc.AddRolePermission(ctx, app.ID, viewer.ID, p2.ID); !fault.IsKind(err, fault.KindConflict) {
		t.Errorf("inactive permission: want Conflict, got %v", err)
	}
}

func TestVerifyAPIKey(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	res, err := svc.Create(ctx, "billing", "Billing", []domain.RoleSpec{{Name: "Viewer"}}, "actor-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.VerifyAPIKey(ctx, "billing", res.APIKey); err != nil {
		t.Errorf("VerifyAPIKey with correct key: %v", err)
	}
	if _, err := svc.VerifyAPIKey(ctx, "billing", "wrong"); !fault.IsKind(err, fault.KindForbidden) {
		t.Errorf("wrong key: want Forbidden, got %v", err)
	}

	if err := svc.Deactivate(ctx, res.Application.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := svc.VerifyAPIKey(ctx, "billing", res.APIKey); !fault.IsKind(err, fault.KindForbidden) {
		t.Errorf("inactive application: want Forbidden, got %v", err)
	}
}

func TestRotateAPIKey_InvalidatesOldKey(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	res, err := svc.Create(ctx, "billing", "Billing", []domain.RoleSpec{{Name: "Viewer"}}, "actor-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	newKey, err := svc.RotateAPIKey(ctx, res.Application.ID)
	if err != nil {
		t.Fatalf("RotateAPIKey: %v", err)
	}
	if _, err := svc.VerifyAPIKey(ctx, "billing", res.APIKey); !fault.IsKind(err, fault.KindForbidden) {
		t.Errorf("old key after rotation: want Forbidden, got %v", err)
	}
	if _, err := svc.VerifyAPIKey(ctx, "billing", newKey); err != nil {
		t.Errorf("new key after rotation: %v", err)
	}
}
