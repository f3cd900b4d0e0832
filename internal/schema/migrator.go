// Package schema applies the SQL migrations under migrations/ to the
// storefront database.
package schema

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var ErrInvalidSteps = errors.New("steps must be positive")

type Migrator struct {
	m      *migrate.Migrate
	logger *slog.Logger
}

// Version is the schema state recorded by the last migration run. Applied is
// false on a database that has never been migrated.
type Version struct {
	Number  uint
	Dirty   bool
	Applied bool
}

func Open(sourceURL, databaseURL string, logger *slog.Logger) (*Migrator, error) {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open migrations %s: %w", sourceURL, err)
	}
	return &Migrator{m: m, logger: logger}, nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	err := m.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("no pending migrations")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	m.logger.Info("migrations applied")
	return nil
}

func (m *Migrator) Down(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidSteps, steps)
	}
	err := m.m.Steps(-steps)
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("no migrations to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate down %d: %w", steps, err)
	}
	m.logger.Info("migrations rolled back", "steps", steps)
	return nil
}

func (m *Migrator) Version() (Version, error) {
	n, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Version{}, nil
	}
	if err != nil {
		return Version{}, fmt.Errorf("read schema version: %w", err)
	}
	return Version{Number: n, Dirty: dirty, Applied: true}, nil
}

// Force records version as applied and clears the dirty flag without running
// any migration. It is how a failed migration is recovered by hand.
func (m *Migrator) Force(version int) error {
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	m.logger.Warn("schema version forced", "version", version)
	return nil
}
