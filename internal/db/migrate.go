package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Direction selects which way Migrate moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts "up" or "down".
func ParseDirection(value string) (Direction, error) {
	switch Direction(value) {
	case Up, Down:
		return Direction(value), nil
	default:
		return "", fmt.Errorf("unknown migration direction %q", value)
	}
}

// Migrate applies the embedded results schema to the database described by
// config. Running it against an up-to-date schema is not an error.
func Migrate(config Config, direction Direction, logger logrus.FieldLogger) error {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "db")

	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, config.URL("pgx5"))
	if err != nil {
		return fmt.Errorf("failed to initialise migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.WithFields(logrus.Fields{"source_error": srcErr, "database_error": dbErr}).Warn("failed to close migrator")
		}
	}()

	switch direction {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.WithField("direction", direction).Info("schema already current")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to migrate %s: %w", direction, err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.WithField("direction", direction).Info("schema migrated to empty")
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	default:
		logger.WithFields(logrus.Fields{"direction": direction, "version": version, "dirty": dirty}).Info("schema migrated")
	}
	return nil
}
