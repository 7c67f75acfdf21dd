// Package migrate moves the authplane schema between versions using the SQL
// files embedded in internal/db.
package migrate

import (
	"errors"
	"fmt"

	"authplane/internal/db"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ErrNoChange reports that the schema already sits at the requested version.
var ErrNoChange = migrate.ErrNoChange

// Run moves the schema in the given direction, "up" or "down". Returns nil
// both on success and when there is nothing to apply.
func Run(dsn string, direction string) error {
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}
	apply, err := stepFor(direction)
	if err != nil {
		return err
	}

	src, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("authplane", src, dsn)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := apply(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func stepFor(direction string) (func(*migrate.Migrate) error, error) {
	switch direction {
	case "up":
		return (*migrate.Migrate).Up, nil
	case "down":
		return (*migrate.Migrate).Down, nil
	default:
		return nil, fmt.Errorf("direction must be up or down, got %q", direction)
	}
}
