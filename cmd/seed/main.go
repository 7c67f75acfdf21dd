// seed bootstraps the first auth admin from SEED_ADMIN_EMAIL and
// SEED_ADMIN_PASSWORD. Idempotent: an existing user with that email is left
// untouched.
package main

import (
	"context"
	"log"

	"authplane/internal/clock"
	"authplane/internal/config"
	"authplane/internal/db"
	"authplane/internal/security"
	"authplane/internal/seed"
	systemrolerepo "authplane/internal/systemrole/repository"
	userrepo "authplane/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		log.Fatal("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	admin, created, err := seed.EnsureAdmin(
		context.Background(),
		userrepo.NewPostgresRepository(conn),
		systemrolerepo.NewPostgresRepository(conn),
		security.NewHasher(cfg.BcryptCost),
		clock.System{},
		cfg.SeedAdminEmail,
		cfg.SeedAdminPassword,
	)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if created {
		log.Printf("created auth admin %s (%s)", admin.Email, admin.ID)
	} else {
		log.Printf("auth admin %s already exists, nothing to do", admin.Email)
	}
}
