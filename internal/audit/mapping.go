package audit

import "strings"

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

// Assignment method overrides: audit as user_assigned, user_unassigned,
// role_changed on resource "assignment".
const (
	assignmentAssign     = "/authplane.userapp.v1.AssignmentService/AssignUser"
	assignmentUnassign   = "/authplane.userapp.v1.AssignmentService/UnassignUser"
	assignmentChangeRole = "/authplane.userapp.v1.AssignmentService/ChangeRole"
)

// ParseFullMethod derives action and resource from a gRPC full method
// (e.g. /authplane.user.v1.UserService/GetUser). Action is a verb: get, list,
// create, update, delete, or the lowercase method name for anything else.
// Resource comes from the service name (UserService -> user).
func ParseFullMethod(fullMethod string) ActionResource {
	switch fullMethod {
	case assignmentAssign:
		return ActionResource{Action: "user_assigned", Resource: "assignment"}
	case assignmentUnassign:
		return ActionResource{Action: "user_unassigned", Resource: "assignment"}
	case assignmentChangeRole:
		return ActionResource{Action: "role_changed", Resource: "assignment"}
	}
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	beforeSlash := fullMethod[:slash]
	dot := strings.LastIndex(beforeSlash, ".")
	if dot < 0 {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	return ActionResource{
		Action:   methodToAction(method),
		Resource: serviceToResource(beforeSlash[dot+1:]),
	}
}

func serviceToResource(serviceName string) string {
	s := strings.TrimSuffix(serviceName, "Service")
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s[0:1]) + s[1:]
}

func methodToAction(method string) string {
	switch {
	case strings.HasPrefix(method, "Get") && method != "Get":
		return "get"
	case strings.HasPrefix(method, "List"):
		return "list"
	case strings.HasPrefix(method, "Create"):
		return "create"
	case strings.HasPrefix(method, "Update"):
		return "update"
	case strings.HasPrefix(method, "Delete"):
		return "delete"
	case strings.HasPrefix(method, "Add"):
		return "add"
	case strings.HasPrefix(method, "Remove"):
		return "remove"
	case strings.HasPrefix(method, "Register"):
		return "register"
	case strings.HasPrefix(method, "Revoke"):
		return "revoke"
	case strings.HasPrefix(method, "Rotate"):
		return "rotate"
	case strings.HasPrefix(method, "Set"):
		return "set"
	case strings.HasPrefix(method, "Deactivate"):
		return "deactivate"
	default:
		return strings.ToLower(method)
	}
}
