package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"authplane/internal/server/interceptors"
)

// RequireApplication ensures the caller holds a tenant-scoped token for the
// given application. Returns (userID, nil) on success; returns a gRPC error
// (Unauthenticated or PermissionDenied) on failure. Tokens scoped to a
// different application are rejected, never silently rescoped.
func RequireApplication(ctx context.Context, applicationID string) (userID string, err error) {
	id, ok := interceptors.GetIdentity(ctx)
	if !ok || id.UserID == "" {
		return "", status.Error(codes.Unauthenticated, "authentication required")
	}
	if id.ApplicationID == "" {
		return "", status.Error(codes.PermissionDenied, "tenant-scoped token required")
	}
	if applicationID == "" || id.ApplicationID != applicationID {
		return "", status.Error(codes.PermissionDenied, "token is scoped to a different application")
	}
	return id.UserID, nil
}

// RequirePermission ensures the caller's tenant-scoped token for applicationID
// carries the named permission.
func RequirePermission(ctx context.Context, applicationID, permission string) (userID string, err error) {
	userID, err = RequireApplication(ctx, applicationID)
	if err != nil {
		return "", err
	}
	if !interceptors.HasPermission(ctx, permission) {
		return "", status.Error(codes.PermissionDenied, "permission "+permission+" required")
	}
	return userID, nil
}
