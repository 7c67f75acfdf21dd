package interceptors

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"authplane/internal/fault"
	identityservice "authplane/internal/identity/service"
)

// stubVerifier resolves tokens from a fixed map.
type stubVerifier struct {
	claims map[string]*identityservice.AccessClaims
}

func (v *stubVerifier) VerifyAccess(tokenString string) (*identityservice.AccessClaims, error) {
	if c, ok := v.claims[tokenString]; ok {
		return c, nil
	}
	return nil, fault.Forbiddenf("invalid access token")
}

func newStubVerifier() *stubVerifier {
	return &stubVerifier{claims: map[string]*identityservice.AccessClaims{
		"tenant-token": {
			UserID:          "user-1",
			Email:           "ada@example.com",
			TokenID:         "jti-1",
			UserType:        "regular",
			ApplicationID:   "app-1",
			ApplicationCode: "BILLING",
			ApplicationRole: "Viewer",
			Permissions:     []string{"invoices:read"},
		},
		"admin-token": {
			UserID:   "admin-1",
			Email:    "root@example.com",
			TokenID:  "jti-2",
			UserType: "auth_admin",
			Roles:    []string{"platform-admin"},
		},
	}}
}

func bearerCtx(token string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.New(map[string]string{
		"authorization": "Bearer " + token,
	}))
}

func TestAuthUnary_PublicMethod(t *testing.T) {
	interceptor := AuthUnary(newStubVerifier(), map[string]bool{
		"/test.Service/PublicMethod": true,
	})

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "success", nil
	}
	resp, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/PublicMethod",
	}, handler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if resp != "success" {
		t.Errorf("response = %v, want %q", resp, "success")
	}
}

func TestAuthUnary_ProtectedMethod_NoToken(t *testing.T) {
	interceptor := AuthUnary(newStubVerifier(), map[string]bool{})

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "success", nil
	}
	_, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/ProtectedMethod",
	}, handler)
	if err == nil {
		t.Fatal("expected error for missing token")
	}
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("error is not a gRPC status: %v", err)
	}
	if st.Code() != codes.Unauthenticated {
		t.Errorf("status code = %v, want %v", st.Code(), codes.Unauthenticated)
	}
}

func TestAuthUnary_ProtectedMethod_TenantToken(t *testing.T) {
	interceptor := AuthUnary(newStubVerifier(), map[string]bool{})

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		id, ok := GetIdentity(ctx)
		if !ok {
			t.Fatal("identity not set in handler context")
		}
		if id.UserID != "user-1" || id.ApplicationID != "app-1" || id.TokenID != "jti-1" {
			t.Errorf("identity = %+v", id)
		}
		if id.ApplicationRole != "Viewer" || id.UserType != "regular" {
			t.Errorf("identity scope = %+v", id)
		}
		if !HasPermission(ctx, "invoices:read") {
			t.Error("expected invoices:read permission")
		}
		if HasPermission(ctx, "invoices:write") {
			t.Error("unexpected invoices:write permission")
		}
		return "success", nil
	}
	resp, err := interceptor(bearerCtx("tenant-token"), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/ProtectedMethod",
	}, handler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if resp != "success" {
		t.Errorf("response = %v, want %q", resp, "success")
	}
}

func TestAuthUnary_ProtectedMethod_AdminToken(t *testing.T) {
	interceptor := AuthUnary(newStubVerifier(), map[string]bool{})

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		userID, ok := GetUserID(ctx)
		if !ok || userID != "admin-1" {
			t.Errorf("user_id = %q, ok = %v, want %q", userID, ok, "admin-1")
		}
		if appID, ok := GetApplicationID(ctx); ok {
			t.Errorf("admin token must carry no application_id, got %q", appID)
		}
		return "success", nil
	}
	if _, err := interceptor(bearerCtx("admin-token"), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/ProtectedMethod",
	}, handler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
}

func TestAuthUnary_ProtectedMethod_InvalidToken(t *testing.T) {
	interceptor := AuthUnary(newStubVerifier(), map[string]bool{})

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "success", nil
	}
	_, err := interceptor(bearerCtx("garbage"), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/ProtectedMethod",
	}, handler)
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("error is not a gRPC status: %v", err)
	}
	if st.Code() != codes.Unauthenticated {
		t.Errorf("status code = %v, want %v", st.Code(), codes.Unauthenticated)
	}
}

func TestAuthUnary_PublicMethod_BadTokenStillServed(t *testing.T) {
	interceptor := AuthUnary(newStubVerifier(), map[string]bool{
		"/test.Service/PublicMethod": true,
	})

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		if _, ok := GetIdentity(ctx); ok {
			t.Error("identity must not be set for an unverified token")
		}
		return "success", nil
	}
	if _, err := interceptor(bearerCtx("garbage"), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/PublicMethod",
	}, handler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  string
	}{
		{"standard", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"padded", "  Bearer   abc123  ", "abc123"},
		{"wrong scheme", "Basic abc123", ""},
		{"scheme only", "Bearer", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := metadata.NewIncomingContext(context.Background(), metadata.New(map[string]string{
				"authorization": tc.value,
			}))
			if got := extractBearer(ctx); got != tc.want {
				t.Errorf("extractBearer(%q) = %q, want %q", tc.value, got, tc.want)
			}
		})
	}
	if got := extractBearer(context.Background()); got != "" {
		t.Errorf("extractBearer(no metadata) = %q, want empty", got)
	}
}
