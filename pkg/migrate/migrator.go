// Package migrate applies MeetScribe's schema to a PostgreSQL database.
// It deliberately does not use a migration-file runner: the schema is an
// append-only Go slice of statements, and a single _schema_version row
// tracks how far a given database has progressed.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// Migrate brings db up to the latest schema version. On a fresh database
// the base schema is created, the version row is seeded at 0, and every
// migration in Migrations is applied in order. On an existing database
// only migrations past the recorded version run.
//
// Applying an already-applied statement is not an error: ALTER TABLE ADD
// COLUMN failures reporting a duplicate column are swallowed, since the
// base schema and the migration list can both describe the same column
// for a table that shipped after that column already existed.
func Migrate(ctx context.Context, db *sql.DB) error {
	if err := ensureBaseSchema(ctx, db); err != nil {
		return fmt.Errorf("failed to ensure base schema: %w", err)
	}

	current, err := ensureVersionRow(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to ensure schema version row: %w", err)
	}

	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}
		slog.Info("applied migration", "version", m.Version, "description", m.Description)
	}

	return nil
}

func ensureBaseSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range baseSchema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ensureVersionRow returns the database's current schema version,
// inserting a row seeded at 0 if none exists yet.
func ensureVersionRow(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT version FROM _schema_version WHERE id = 1`).Scan(&version)
	if err == nil {
		return version, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO _schema_version (id, version) VALUES (1, 0)`); err != nil {
		return 0, err
	}
	return 0, nil
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Each statement runs inside its own savepoint so a swallowed
	// duplicate-column error doesn't abort the rest of the migration's
	// transaction, which is how PostgreSQL reacts to any failed statement.
	for i, stmt := range m.Statements {
		savepoint := fmt.Sprintf("migration_stmt_%d", i)
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if !isDuplicateColumn(err) {
				return err
			}
			slog.Debug("skipping already-applied statement", "version", m.Version, "error", err)
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
				return rbErr
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE _schema_version SET version = $1 WHERE id = 1`, m.Version); err != nil {
		return err
	}

	return tx.Commit()
}

// isDuplicateColumn reports whether err is PostgreSQL's "column already
// exists" error (SQLSTATE 42701), matched on message text since the
// swallow behavior must hold across drivers.
func isDuplicateColumn(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}
