// Package rbac provides handler-level authorization guards over the identity
// the auth interceptor sets in context.
package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"authplane/internal/server/interceptors"
	userdomain "authplane/internal/user/domain"
)

// RequireAuthAdmin ensures the caller is authenticated with an admin-scoped
// token belonging to an auth admin. Returns (userID, nil) on success; returns
// a gRPC error (Unauthenticated or PermissionDenied) on failure.
func RequireAuthAdmin(ctx context.Context) (userID string, err error) {
	id, ok := interceptors.GetIdentity(ctx)
	if !ok || id.UserID == "" {
		return "", status.Error(codes.Unauthenticated, "authentication required")
	}
	if id.UserType != string(userdomain.TypeAuthAdmin) {
		return "", status.Error(codes.PermissionDenied, "auth admin required")
	}
	if id.ApplicationID != "" {
		return "", status.Error(codes.PermissionDenied, "admin-scoped token required")
	}
	return id.UserID, nil
}
