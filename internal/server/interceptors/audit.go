package interceptors

import (
	"context"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"

	"authplane/internal/audit"
)

// AuditUnary returns a unary server interceptor that records an audit log entry
// after each authenticated RPC. skipMethods is the set of full method names to
// not audit (e.g. health checks, optionally audit log reads themselves).
// Writes are best-effort and never fail the RPC. Unauthenticated RPCs are not
// audited here; the auth service records login and token events itself.
func AuditUnary(auditLog audit.AuditLogger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if auditLog == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		id, ok := GetIdentity(ctx)
		if !ok || id.UserID == "" {
			return resp, err
		}
		ar := audit.ParseFullMethod(info.FullMethod)
		auditLog.LogEvent(ctx, id.ApplicationID, id.UserID, ar.Action, ar.Resource, "")
		return resp, err
	}
}

// ClientIP returns the client IP from gRPC metadata (x-forwarded-for, x-real-ip)
// or peer, or "unknown". Wired into the audit logger as its IP extractor.
func ClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-forwarded-for"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				if i := strings.Index(s, ","); i > 0 {
					s = strings.TrimSpace(s[:i])
				}
				return s
			}
		}
		if vals := md.Get("x-real-ip"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
