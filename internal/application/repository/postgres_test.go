package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"authplane/internal/application/domain"
)

// rawValues passes arguments through unconverted so slice parameters reach
// the expectations as-is.
type rawValues struct{}

func (rawValues) ConvertValue(v any) (driver.Value, error) { return driver.Value(v), nil }

func newMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.ValueConverterOption(rawValues{}))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewPostgresRepository(conn), mock
}

func TestSave_WritesDefaultRoleLast(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	code, _ := domain.ParseCode("BILLING")
	app, _, err := domain.New(code, "Billing", []domain.RoleSpec{
		{Name: "viewer"},
		{Name: "admin", IsDefault: true},
	}, "actor-1", now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	viewer := app.RoleByName("viewer")
	admin := app.RoleByName("admin")
	if err := app.SetDefaultRole(viewer.ID, "actor-1", now); err != nil {
		t.Fatalf("SetDefaultRole: %v", err)
	}

	// Viewer sits before admin in the role slice but is now the default. The
	// demoted admin row must reach the database first: the one-default partial
	// index is checked per row and would reject a default row written while
	// admin still holds is_default.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE applications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM application_roles WHERE application_id").
		WithArgs(app.ID, []string{viewer.ID, admin.ID}).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO application_roles").
		WithArgs(admin.ID, app.ID, "admin", "", false, true, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM application_role_permissions").
		WithArgs(admin.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO application_roles").
		WithArgs(viewer.ID, app.ID, "viewer", "", true, true, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM application_role_permissions").
		WithArgs(viewer.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.Save(context.Background(), app); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestCreate_WritesDefaultRoleLast(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	code, _ := domain.ParseCode("BILLING")
	app, _, err := domain.New(code, "Billing", []domain.RoleSpec{
		{Name: "admin", IsDefault: true},
		{Name: "viewer"},
	}, "actor-1", now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	viewer := app.RoleByName("viewer")
	admin := app.RoleByName("admin")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO application_roles").
		WithArgs(viewer.ID, app.ID, "viewer", "", false, true, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM application_role_permissions").
		WithArgs(viewer.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO application_roles").
		WithArgs(admin.ID, app.ID, "admin", "", true, true, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM application_role_permissions").
		WithArgs(admin.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.Create(context.Background(), app); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
