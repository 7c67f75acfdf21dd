// Package service implements credential issuance: login, refresh rotation with
// reuse detection, and logout. Authorization scope is baked into the access
// token at issuance and never re-read from storage on verification.
package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	applicationdomain "authplane/internal/application/domain"
	"authplane/internal/audit"
	"authplane/internal/clock"
	"authplane/internal/events"
	"authplane/internal/fault"
	permissiondomain "authplane/internal/permission/domain"
	"authplane/internal/security"
	systemroledomain "authplane/internal/systemrole/domain"
	userdomain "authplane/internal/user/domain"
	userrepo "authplane/internal/user/repository"
	assignmentdomain "authplane/internal/userapp/domain"
)

// ApplicationRepo is the slice of the application repository the auth service needs.
type ApplicationRepo interface {
	GetByID(ctx context.Context, id string) (*applicationdomain.Application, error)
	GetByCode(ctx context.Context, code applicationdomain.Code) (*applicationdomain.Application, error)
}

// AssignmentRepo resolves a user's role inside one application.
type AssignmentRepo interface {
	Get(ctx context.Context, userID, applicationID string) (*assignmentdomain.Assignment, error)
}

// SystemRoleRepo resolves system role grants for admin tokens.
type SystemRoleRepo interface {
	ListByIDs(ctx context.Context, ids []string) ([]*systemroledomain.SystemRole, error)
}

// PermissionRepo resolves permission names for tenant tokens.
type PermissionRepo interface {
	ListByIDs(ctx context.Context, ids []string) ([]*permissiondomain.Permission, error)
}

// AuthResult holds the outcome of Login or Refresh.
type AuthResult struct {
	AccessToken   string
	RefreshToken  string
	ExpiresAt     time.Time
	UserID        string
	ApplicationID string
}

// AccessClaims is the normalized identity extracted from a verified access
// token, consumed by the auth interceptor. ApplicationID is empty for
// admin-scoped tokens.
type AccessClaims struct {
	UserID          string
	Email           string
	TokenID         string
	UserType        string
	ApplicationID   string
	ApplicationCode string
	ApplicationRole string
	Roles           []string
	Permissions     []string
}

// AuthService issues and redeems credentials.
type AuthService struct {
	users       userrepo.Repository
	apps        ApplicationRepo
	assignments AssignmentRepo
	systemRoles SystemRoleRepo
	permissions PermissionRepo
	hasher      *security.Hasher
	tokens      *security.TokenProvider
	clk         clock.Clock
	refreshTTL  time.Duration
	auditLog    audit.AuditLogger
	dispatcher  events.Dispatcher
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	users userrepo.Repository,
	apps ApplicationRepo,
	assignments AssignmentRepo,
	systemRoles SystemRoleRepo,
	permissions PermissionRepo,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	clk clock.Clock,
	refreshTTL time.Duration,
	auditLog audit.AuditLogger,
	dispatcher events.Dispatcher,
) *AuthService {
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	if dispatcher == nil {
		dispatcher = events.Nop{}
	}
	return &AuthService{
		users:       users,
		apps:        apps,
		assignments: assignments,
		systemRoles: systemRoles,
		permissions: permissions,
		hasher:      hasher,
		tokens:      tokens,
		clk:         clk,
		refreshTTL:  refreshTTL,
		auditLog:    auditLog,
		dispatcher:  dispatcher,
	}
}

// Login authenticates with email and password. An empty appCode requests an
// admin-scoped token (Auth Admins only); otherwise the token is scoped to the
// application: the user's assigned role and its active permission names are
// bound into the claims. Bad credentials and inactive users are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, rawEmail, password, appCode string) (*AuthResult, error) {
	email, err := userdomain.ParseEmail(rawEmail)
	if err != nil {
		return nil, fault.Invalidf("invalid credentials")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "get user by email")
	}
	if u == nil || !u.Active || !s.hasher.Verify([]byte(password), u.PasswordHash) {
		s.auditLog.LogEvent(ctx, "", "", "login_failure", "auth", "email="+email.String())
		return nil, fault.Invalidf("invalid credentials")
	}

	var (
		access    string
		expiresAt time.Time
		appID     string
	)
	if appCode == "" {
		if !u.IsAuthAdmin() {
			s.auditLog.LogEvent(ctx, "", u.ID, "login_failure", "auth", "reason=admin_scope_denied")
			return nil, fault.Forbiddenf("admin scope requires an auth admin account")
		}
		roleNames, err := s.systemRoleNames(ctx, u)
		if err != nil {
			return nil, err
		}
		access, _, expiresAt, err = s.tokens.IssueAdmin(u.ID, u.Email.String(), displayName(u), roleNames)
		if err != nil {
			return nil, fault.Wrap(fault.KindInternal, err, "issue admin token")
		}
	} else {
		scope, err := s.resolveTenantScope(ctx, u, appCode)
		if err != nil {
			return nil, err
		}
		appID = scope.app.ID
		access, _, expiresAt, err = s.tokens.IssueTenant(
			u.ID, u.Email.String(), displayName(u), string(u.Type),
			scope.app.ID, scope.app.Code.String(), scope.role.Name, scope.permissions,
		)
		if err != nil {
			return nil, fault.Wrap(fault.KindInternal, err, "issue tenant token")
		}
	}

	refresh, err := s.issueRefresh(ctx, u.ID, appID)
	if err != nil {
		return nil, err
	}
	s.auditLog.LogEvent(ctx, appID, u.ID, "login", "auth", "")
	return &AuthResult{
		AccessToken:   access,
		RefreshToken:  refresh,
		ExpiresAt:     expiresAt,
		UserID:        u.ID,
		ApplicationID: appID,
	}, nil
}

// Refresh redeems a refresh token, rotating it. A revoked token is treated as
// reuse: the descendant chain and every other active session of the user are
// revoked, and ErrTokenReuse is returned. Concurrent redemption of the same
// token lets exactly one caller through; the others get Conflict.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, fault.Invalidf("refresh token is required")
	}
	hash := security.HashRefreshToken(refreshToken)
	u, err := s.users.GetByRefreshTokenHash(ctx, hash)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "get user by refresh token")
	}
	if u == nil {
		return nil, fault.Invalidf("invalid refresh token")
	}
	rt, err := u.RefreshTokenByHash(hash)
	if err != nil {
		return nil, fault.Invalidf("invalid refresh token")
	}
	now := s.clk.Now()

	if rt.IsRevoked() {
		return nil, s.handleReuse(ctx, u, hash, now)
	}
	if rt.IsExpired(now) {
		return nil, fault.Conflictf("refresh token expired")
	}
	if !u.Active {
		return nil, fault.Forbiddenf("user %s is inactive", u.Email)
	}

	var (
		access    string
		expiresAt time.Time
	)
	if rt.ApplicationID == "" {
		if !u.IsAuthAdmin() {
			return nil, fault.Forbiddenf("admin scope requires an auth admin account")
		}
		roleNames, err := s.systemRoleNames(ctx, u)
		if err != nil {
			return nil, err
		}
		access, _, expiresAt, err = s.tokens.IssueAdmin(u.ID, u.Email.String(), displayName(u), roleNames)
		if err != nil {
			return nil, fault.Wrap(fault.KindInternal, err, "issue admin token")
		}
	} else {
		app, err := s.apps.GetByID(ctx, rt.ApplicationID)
		if err != nil {
			return nil, fault.Wrap(fault.KindInternal, err, "get application %s", rt.ApplicationID)
		}
		if app == nil || !app.Active {
			return nil, fault.Forbiddenf("application scope is no longer available")
		}
		scope, err := s.resolveAssignment(ctx, u, app)
		if err != nil {
			return nil, err
		}
		access, _, expiresAt, err = s.tokens.IssueTenant(
			u.ID, u.Email.String(), displayName(u), string(u.Type),
			app.ID, app.Code.String(), scope.role.Name, scope.permissions,
		)
		if err != nil {
			return nil, fault.Wrap(fault.KindInternal, err, "issue tenant token")
		}
	}

	plain, err := security.NewRefreshTokenValue()
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "generate refresh token")
	}
	replacement := &userdomain.RefreshToken{
		TokenHash:     security.HashRefreshToken(plain),
		ApplicationID: rt.ApplicationID,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.refreshTTL),
	}
	if err := s.users.RotateRefreshToken(ctx, u.ID, hash, replacement, now); err != nil {
		if fault.KindOf(err) != fault.KindInternal {
			return nil, err
		}
		return nil, fault.Wrap(fault.KindInternal, err, "rotate refresh token")
	}

	s.auditLog.LogEvent(ctx, rt.ApplicationID, u.ID, "token_refresh", "auth", "")
	return &AuthResult{
		AccessToken:   access,
		RefreshToken:  plain,
		ExpiresAt:     expiresAt,
		UserID:        u.ID,
		ApplicationID: rt.ApplicationID,
	}, nil
}

// Logout revokes the presented refresh token. NotFound for unknown tokens,
// Conflict when it was already revoked.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	hash := security.HashRefreshToken(refreshToken)
	u, err := s.users.GetByRefreshTokenHash(ctx, hash)
	if err != nil {
		return fault.Wrap(fault.KindInternal, err, "get user by refresh token")
	}
	if u == nil {
		return fault.NotFoundf("refresh token not found")
	}
	rt, err := u.RefreshTokenByHash(hash)
	if err != nil {
		return err
	}
	if rt.IsRevoked() {
		return fault.Conflictf("refresh token already revoked")
	}
	if err := s.users.RevokeChain(ctx, u.ID, hash, s.clk.Now()); err != nil {
		return fault.Wrap(fault.KindInternal, err, "revoke refresh token")
	}
	s.auditLog.LogEvent(ctx, rt.ApplicationID, u.ID, "logout", "auth", "")
	return nil
}

// LogoutAll revokes every active refresh token the user holds.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fault.Wrap(fault.KindInternal, err, "get user %s", userID)
	}
	if u == nil {
		return fault.NotFoundf("user %s", userID)
	}
	if err := s.users.RevokeAll(ctx, userID, s.clk.Now()); err != nil {
		return fault.Wrap(fault.KindInternal, err, "revoke sessions")
	}
	s.auditLog.LogEvent(ctx, "", userID, "logout_all", "auth", "")
	return nil
}

// VerifyAccess validates an access token statelessly and returns its claims.
// No storage is consulted: revoking reach happens at refresh time.
func (s *AuthService) VerifyAccess(tokenString string) (*AccessClaims, error) {
	if tc, err := s.tokens.VerifyTenant(tokenString); err == nil {
		return &AccessClaims{
			UserID:          tc.Subject,
			Email:           tc.Email,
			TokenID:         tc.ID,
			UserType:        tc.UserType,
			ApplicationID:   tc.ApplicationID,
			ApplicationCode: tc.ApplicationCode,
			ApplicationRole: tc.ApplicationRole,
			Permissions:     tc.Permissions,
		}, nil
	}
	ac, err := s.tokens.VerifyAdmin(tokenString)
	if err != nil {
		return nil, fault.Forbiddenf("invalid access token")
	}
	return &AccessClaims{
		UserID:   ac.Subject,
		Email:    ac.Email,
		TokenID:  ac.ID,
		UserType: string(userdomain.TypeAuthAdmin),
		Roles:    ac.Roles,
	}, nil
}

// handleReuse is the response to a revoked token being presented again:
// revoke the descendant chain, burn every other active session, record the
// event, and surface the distinguished reuse error.
func (s *AuthService) handleReuse(ctx context.Context, u *userdomain.User, hash string, now time.Time) error {
	if err := s.users.RevokeChain(ctx, u.ID, hash, now); err != nil {
		log.Printf("identity: revoke chain after reuse: %v", err)
	}
	if err := s.users.RevokeAll(ctx, u.ID, now); err != nil {
		log.Printf("identity: revoke sessions after reuse: %v", err)
	}
	s.auditLog.LogEvent(ctx, "", u.ID, "token_reuse", "auth", "")
	ev := events.Event{
		ID:          uuid.New().String(),
		Name:        events.TokenReuseDetected,
		AggregateID: u.ID,
		OccurredAt:  now,
	}
	if err := s.dispatcher.Dispatch(ctx, []events.Event{ev}); err != nil {
		log.Printf("identity: event dispatch failed: %v", err)
	}
	return fault.ErrTokenReuse
}

func (s *AuthService) issueRefresh(ctx context.Context, userID, appID string) (string, error) {
	plain, err := security.NewRefreshTokenValue()
	if err != nil {
		return "", fault.Wrap(fault.KindInternal, err, "generate refresh token")
	}
	now := s.clk.Now()
	rt := &userdomain.RefreshToken{
		TokenHash:     security.HashRefreshToken(plain),
		ApplicationID: appID,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.refreshTTL),
	}
	if err := s.users.AddRefreshToken(ctx, userID, rt); err != nil {
		return "", fault.Wrap(fault.KindInternal, err, "store refresh token")
	}
	return plain, nil
}

type tenantScope struct {
	app         *applicationdomain.Application
	role        *applicationdomain.Role
	permissions []string
}

func (s *AuthService) resolveTenantScope(ctx context.Context, u *userdomain.User, rawCode string) (*tenantScope, error) {
	code, err := applicationdomain.ParseCode(rawCode)
	if err != nil {
		return nil, err
	}
	app, err := s.apps.GetByCode(ctx, code)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "get application %s", code)
	}
	if app == nil {
		return nil, fault.NotFoundf("application %s", code)
	}
	if !app.Active {
		return nil, fault.Forbiddenf("application %s is inactive", code)
	}
	return s.resolveAssignment(ctx, u, app)
}

func (s *AuthService) resolveAssignment(ctx context.Context, u *userdomain.User, app *applicationdomain.Application) (*tenantScope, error) {
	a, err := s.assignments.Get(ctx, u.ID, app.ID)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "get assignment")
	}
	if a == nil || !a.Active {
		return nil, fault.Forbiddenf("user %s has no access to application %s", u.Email, app.Code)
	}
	role, err := app.Role(a.ApplicationRoleID)
	if err != nil {
		return nil, fault.Forbiddenf("assigned role no longer exists in application %s", app.Code)
	}
	if !role.Active {
		return nil, fault.Forbiddenf("assigned role %s is inactive", role.Name)
	}
	perms, err := s.permissionNames(ctx, role.Permissions.IDs())
	if err != nil {
		return nil, err
	}
	return &tenantScope{app: app, role: role, permissions: perms}, nil
}

func (s *AuthService) systemRoleNames(ctx context.Context, u *userdomain.User) ([]string, error) {
	ids := u.SystemRoleIDs.IDs()
	if len(ids) == 0 {
		return nil, nil
	}
	roles, err := s.systemRoles.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "list system roles")
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		if r.Active {
			names = append(names, r.Name)
		}
	}
	return names, nil
}

func (s *AuthService) permissionNames(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	perms, err := s.permissions.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "list permissions")
	}
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		if p.Active {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

func displayName(u *userdomain.User) string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
