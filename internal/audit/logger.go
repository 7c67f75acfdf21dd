// Package audit records who did what, best-effort. Failures to write an audit
// entry never fail the operation being audited.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"authplane/internal/audit/domain"
	auditrepo "authplane/internal/audit/repository"
)

// SentinelApplicationID scopes audit events that have no tenant, such as
// failed logins and admin-surface operations.
const SentinelApplicationID = "_system"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource. Used
// by the auth code paths and the server interceptor.
type AuditLogger interface {
	LogEvent(ctx context.Context, applicationID, userID, action, resource, metadata string)
}

// Logger implements AuditLogger on top of the audit repository.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns a Logger. ipExtractor may be nil; the IP is then recorded
// as "unknown". A nil repo makes every LogEvent a no-op.
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogEvent writes one entry. Errors are logged, never returned.
func (l *Logger) LogEvent(ctx context.Context, applicationID, userID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if applicationID == "" {
		applicationID = SentinelApplicationID
	}
	entry := &domain.Entry{
		ID:            uuid.New().String(),
		ApplicationID: applicationID,
		UserID:        userID,
		Action:        action,
		Resource:      resource,
		IP:            ip,
		Metadata:      metadata,
		CreatedAt:     time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}

// Nop discards all events. Used in tests and when auditing is disabled.
type Nop struct{}

func (Nop) LogEvent(context.Context, string, string, string, string, string) {}
