// server runs the authplane gRPC server.
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	applicationrepo "authplane/internal/application/repository"
	"authplane/internal/audit"
	auditrepo "authplane/internal/audit/repository"
	"authplane/internal/clock"
	"authplane/internal/config"
	"authplane/internal/db"
	"authplane/internal/events"
	"authplane/internal/events/producer"
	identityservice "authplane/internal/identity/service"
	permissionrepo "authplane/internal/permission/repository"
	"authplane/internal/security"
	"authplane/internal/server"
	"authplane/internal/server/interceptors"
	systemrolerepo "authplane/internal/systemrole/repository"
	"authplane/internal/telemetry"
	userrepo "authplane/internal/user/repository"
	userapprepo "authplane/internal/userapp/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()

	providers, err := telemetry.NewProviders(ctx, cfg.OTLPEndpoint, "authplane", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	var dispatcher events.Dispatcher
	kafkaDispatcher, err := producer.NewKafkaDispatcher(cfg.KafkaBrokersList(), cfg.EventsKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	if kafkaDispatcher != nil {
		dispatcher = kafkaDispatcher
		defer kafkaDispatcher.Close()
	}

	clk := clock.System{}
	hasher := security.NewHasher(cfg.BcryptCost)
	tokens := security.NewTokenProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), clk)

	users := userrepo.NewPostgresRepository(conn)
	apps := applicationrepo.NewPostgresRepository(conn)
	assignments := userapprepo.NewPostgresRepository(conn)
	systemRoles := systemrolerepo.NewPostgresRepository(conn)
	permissions := permissionrepo.NewPostgresRepository(conn)
	audits := auditrepo.NewPostgresRepository(conn)

	auditLog := audit.NewLogger(audits, interceptors.ClientIP)
	auth := identityservice.NewAuthService(
		users, apps, assignments, systemRoles, permissions,
		hasher, tokens, clk, cfg.RefreshTTL(), auditLog, dispatcher,
	)

	s, healthSrv := server.New(server.Options{
		Verifier: auth,
		AuditLog: auditLog,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := s.Serve(lis); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down gRPC server...")
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.GracefulStop()
	log.Println("gRPC server stopped")
}
