// Package server builds the gRPC server: interceptor chain, OpenTelemetry
// stats handler, and the standard gRPC health service.
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"authplane/internal/audit"
	"authplane/internal/server/interceptors"
)

// Full method names of RPCs callable without a Bearer token.
const (
	MethodLogin         = "/authplane.identity.v1.AuthService/Login"
	MethodRefresh       = "/authplane.identity.v1.AuthService/Refresh"
	MethodLogout        = "/authplane.identity.v1.AuthService/Logout"
	MethodRegister      = "/authplane.user.v1.UserService/RegisterUser"
	MethodRequestReset  = "/authplane.user.v1.UserService/RequestPasswordReset"
	MethodResetPassword = "/authplane.user.v1.UserService/ResetPassword"
	MethodHealthCheck   = "/grpc.health.v1.Health/Check"
	MethodHealthWatch   = "/grpc.health.v1.Health/Watch"
)

// Options holds the server dependencies.
type Options struct {
	// Verifier validates Bearer access tokens for the auth interceptor.
	Verifier interceptors.AccessVerifier
	// AuditLog records an audit entry per authenticated RPC. Nil disables the
	// audit interceptor.
	AuditLog audit.AuditLogger
	// PublicMethods overrides the default unauthenticated method set when non-nil.
	PublicMethods map[string]bool
	// AuditSkipMethods overrides the default audit skip set when non-nil.
	AuditSkipMethods map[string]bool
}

// DefaultPublicMethods returns the full method names that do not require a
// Bearer token: credential issuance, self registration, password reset, and
// health checks.
func DefaultPublicMethods() map[string]bool {
	return map[string]bool{
		MethodLogin:         true,
		MethodRefresh:       true,
		MethodLogout:        true,
		MethodRegister:      true,
		MethodRequestReset:  true,
		MethodResetPassword: true,
		MethodHealthCheck:   true,
		MethodHealthWatch:   true,
	}
}

// DefaultAuditSkipMethods returns the full method names the audit interceptor
// ignores. Health probes would otherwise flood the audit log.
func DefaultAuditSkipMethods() map[string]bool {
	return map[string]bool{
		MethodHealthCheck: true,
		MethodHealthWatch: true,
	}
}

// New builds the gRPC server with auth and audit interceptors and the
// otelgrpc stats handler, and registers the standard gRPC health service.
// The returned health server starts in NOT_SERVING; the caller flips it to
// SERVING once dependencies are ready.
func New(opts Options) (*grpc.Server, *health.Server) {
	public := opts.PublicMethods
	if public == nil {
		public = DefaultPublicMethods()
	}
	auditSkip := opts.AuditSkipMethods
	if auditSkip == nil {
		auditSkip = DefaultAuditSkipMethods()
	}

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.AuthUnary(opts.Verifier, public),
			interceptors.AuditUnary(opts.AuditLog, auditSkip),
		),
	)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, healthSrv)
	return s, healthSrv
}
