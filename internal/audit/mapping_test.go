package audit

import "testing"

func TestParseFullMethod(t *testing.T) {
	tests := []struct {
		fullMethod string
		action     string
		resource   string
	}{
		{"/authplane.user.v1.UserService/GetUser", "get", "user"},
		{"/authplane.user.v1.UserService/ListUsers", "list", "user"},
		{"/authplane.application.v1.ApplicationService/CreateApplication", "create", "application"},
		{"/authplane.application.v1.ApplicationService/DeleteRole", "delete", "application"},
		{"/authplane.application.v1.ApplicationService/SetDefaultRole", "set", "application"},
		{"/authplane.application.v1.ApplicationService/RotateApiKey", "rotate", "application"},
		{"/authplane.permission.v1.PermissionService/DeactivatePermission", "deactivate", "permission"},
		{"/authplane.userapp.v1.AssignmentService/AssignUser", "user_assigned", "assignment"},
		{"/authplane.userapp.v1.AssignmentService/UnassignUser", "user_unassigned", "assignment"},
		{"/authplane.userapp.v1.AssignmentService/ChangeRole", "role_changed", "assignment"},
		{"/authplane.identity.v1.AuthService/Login", "login", "auth"},
		{"invalid-format", "unknown", "unknown"},
		{"SomeService/SomeMethod", "somemethod", "unknown"},
	}
	for _, tt := range tests {
		ar := ParseFullMethod(tt.fullMethod)
		if ar.Action != tt.action || ar.Resource != tt.resource {
			t.Errorf("ParseFullMethod(%q) = %s/%s, want %s/%s",
				tt.fullMethod, ar.Action, ar.Resource, tt.action, tt.resource)
		}
	}
}
