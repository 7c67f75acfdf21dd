package interceptors

import (
	"context"
	"testing"
)

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := GetIdentity(ctx); ok {
		t.Error("GetIdentity on empty context must report false")
	}
	if _, ok := GetUserID(ctx); ok {
		t.Error("GetUserID on empty context must report false")
	}

	ctx = WithIdentity(ctx, &Identity{
		UserID:        "user-1",
		TokenID:       "jti-1",
		ApplicationID: "app-1",
		Permissions:   []string{"invoices:read"},
	})

	if userID, ok := GetUserID(ctx); !ok || userID != "user-1" {
		t.Errorf("user_id = %q, ok = %v", userID, ok)
	}
	if appID, ok := GetApplicationID(ctx); !ok || appID != "app-1" {
		t.Errorf("application_id = %q, ok = %v", appID, ok)
	}
	if tokenID, ok := GetTokenID(ctx); !ok || tokenID != "jti-1" {
		t.Errorf("token_id = %q, ok = %v", tokenID, ok)
	}
	if !HasPermission(ctx, "invoices:read") {
		t.Error("expected invoices:read permission")
	}
}

func TestIdentityContext_AdminScope(t *testing.T) {
	ctx := WithIdentity(context.Background(), &Identity{UserID: "admin-1", UserType: "auth_admin"})
	if _, ok := GetApplicationID(ctx); ok {
		t.Error("admin identity must not expose an application_id")
	}
	if HasPermission(ctx, "anything") {
		t.Error("admin identity carries no tenant permissions")
	}
}
