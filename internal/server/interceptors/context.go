package interceptors

import "context"

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// Identity is the caller identity set by the auth interceptor after access
// token verification. ApplicationID and ApplicationRole are empty for
// admin-scoped tokens.
type Identity struct {
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

// WithIdentity returns a context carrying the verified caller identity.
// Handlers and the rbac guards read it via GetIdentity and the field getters.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the caller identity from context and true if set.
func GetIdentity(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	if id, ok := GetIdentity(ctx); ok && id.UserID != "" {
		return id.UserID, true
	}
	return "", false
}

// GetApplicationID returns the application_id from context and true if set.
// Admin-scoped callers have no application_id.
func GetApplicationID(ctx context.Context) (string, bool) {
	if id, ok := GetIdentity(ctx); ok && id.ApplicationID != "" {
		return id.ApplicationID, true
	}
	return "", false
}

// GetTokenID returns the access token jti from context and true if set.
func GetTokenID(ctx context.Context) (string, bool) {
	if id, ok := GetIdentity(ctx); ok && id.TokenID != "" {
		return id.TokenID, true
	}
	return "", false
}

// HasPermission reports whether the caller's token carries the named permission.
func HasPermission(ctx context.Context, name string) bool {
	id, ok := GetIdentity(ctx)
	if !ok {
		return false
	}
	for _, p := range id.Permissions {
		if p == name {
			return true
		}
	}
	return false
}
