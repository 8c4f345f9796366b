// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package migration provides a thin wrapper around golang-migrate for
// running document store migrations.
//
// # Architecture
//
// This package belongs to the Infrastructure layer. MongoDB has no table
// schema, but the uniqueness rules of the credential store (one account per
// email, per username and per provider identity) live in indexes. Those are
// declared as versioned JSON command migrations and applied at startup, so
// the database is always in the correct state before traffic is served.
package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// mongodb driver registers the "mongodb" and "mongodb+srv" schemes.
	_ "github.com/golang-migrate/migrate/v4/database/mongodb"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// RunUp applies all pending UP migrations.
//
// # Parameters
//   - uri: A mongodb:// or mongodb+srv:// connection string.
//   - databaseName: Name of the application database.
//   - migrations: Filesystem holding NNNNNN_name.up.json / .down.json files.
//   - dir: Directory of the migrations inside the filesystem.
//   - logger: Structured logger for migration events.
func RunUp(uri, databaseName string, migrations fs.FS, dir string, logger *slog.Logger) error {
	databaseURL, err := DatabaseURL(uri, databaseName)
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations, dir)
	if err != nil {
		return fmt.Errorf("migration: failed to open source: %w", err)
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("migration: failed to initialize: %w", err)
	}
	defer func() {
		sourceError, dbError := migrator.Close()
		if sourceError != nil {
			logger.Error("migration_source_close_failed", slog.Any("error", sourceError))
		}
		if dbError != nil {
			logger.Error("migration_db_close_failed", slog.Any("error", dbError))
		}
	}()

	migrator.Log = &migrateLogger{logger: logger}

	currentVersion, isDirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration: failed to get current version: %w", err)
	}

	if isDirty {
		return fmt.Errorf("migration: database is in a dirty state at version %d (manual intervention required)", currentVersion)
	}

	logger.Info("migration_started",
		slog.String("database", databaseName),
		slog.Int("current_version", int(currentVersion)),
	)

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migration_already_up_to_date")
			return nil
		}
		return fmt.Errorf("migration: up failed: %w", err)
	}

	newVersion, _, _ := migrator.Version()
	logger.Info("migration_successful",
		slog.Int("from_version", int(currentVersion)),
		slog.Int("to_version", int(newVersion)),
	)

	return nil
}

// DatabaseURL places databaseName in the path of uri, where the migrate
// driver reads it. Query options such as replicaSet or authSource are kept.
func DatabaseURL(uri, databaseName string) (string, error) {
	if databaseName == "" {
		return "", errors.New("migration: database name is required")
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("migration: invalid mongo uri: %w", err)
	}
	if parsed.Scheme != "mongodb" && parsed.Scheme != "mongodb+srv" {
		return "", fmt.Errorf("migration: unsupported scheme %q", parsed.Scheme)
	}

	parsed.Path = "/" + strings.TrimPrefix(databaseName, "/")
	parsed.RawPath = ""
	return parsed.String(), nil
}

// migrateLogger adapts golang-migrate's logger interface to slog.
type migrateLogger struct {
	logger  *slog.Logger
	verbose bool
}

// Printf implements migrate.Logger.
func (l *migrateLogger) Printf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Verbose implements migrate.Logger.
func (l *migrateLogger) Verbose() bool {
	return l.verbose
}
