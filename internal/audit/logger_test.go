package audit

import (
	"context"
	"errors"
	"testing"

	"authplane/internal/audit/domain"
)

type mockAuditRepo struct {
	entries   []*domain.Entry
	createErr error
}

func (m *mockAuditRepo) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	return nil, nil
}

func (m *mockAuditRepo) ListByApplication(ctx context.Context, appID string, limit, offset int32) ([]*domain.Entry, error) {
	return nil, nil
}

func (m *mockAuditRepo) Create(ctx context.Context, e *domain.Entry) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func TestLogEvent(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, func(ctx context.Context) string { return "192.168.1.1" })

	logger.LogEvent(context.Background(), "app-1", "user-1", "login", "auth", "mode=tenant")

	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.ApplicationID != "app-1" || e.UserID != "user-1" || e.Action != "login" || e.Resource != "auth" {
		t.Errorf("entry = %+v", e)
	}
	if e.IP != "192.168.1.1" {
		t.Errorf("ip = %q", e.IP)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Error("id and created_at must be set")
	}
}

func TestLogEvent_SentinelApplication(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, nil)

	logger.LogEvent(context.Background(), "", "user-1", "login_failure", "auth", "")

	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	if repo.entries[0].ApplicationID != SentinelApplicationID {
		t.Errorf("application_id = %q, want %q", repo.entries[0].ApplicationID, SentinelApplicationID)
	}
	if repo.entries[0].IP != "unknown" {
		t.Errorf("ip = %q, want unknown", repo.entries[0].IP)
	}
}

func TestLogEvent_BestEffort(t *testing.T) {
	logger := NewLogger(&mockAuditRepo{createErr: errors.New("db down")}, nil)
	logger.LogEvent(context.Background(), "app-1", "user-1", "login", "auth", "")

	NewLogger(nil, nil).LogEvent(context.Background(), "app-1", "user-1", "login", "auth", "")
}
