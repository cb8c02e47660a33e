package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// migrations contains all database migrations
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_employees_table",
		Up: `
			CREATE TABLE IF NOT EXISTS employees (
				id VARCHAR(32) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				department VARCHAR(255),
				email VARCHAR(255),
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_employees_department ON employees(department);
			CREATE INDEX IF NOT EXISTS idx_employees_deleted_at ON employees(deleted_at);
		`,
		Down: `DROP TABLE IF EXISTS employees;`,
	},
	{
		Version: 2,
		Name:    "create_log_entries_table",
		Up: `
			CREATE TABLE IF NOT EXISTS log_entries (
				id UUID PRIMARY KEY,
				timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
				employee_id VARCHAR(32) NOT NULL REFERENCES employees(id),
				action VARCHAR(16) NOT NULL CHECK (action IN ('entry', 'exit')),
				device_id VARCHAR(32) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_log_entries_timestamp ON log_entries(timestamp);
			CREATE INDEX IF NOT EXISTS idx_log_entries_employee_id ON log_entries(employee_id);
			CREATE INDEX IF NOT EXISTS idx_log_entries_device_id ON log_entries(device_id);
		`,
		Down: `DROP TABLE IF EXISTS log_entries;`,
	},
	{
		Version: 3,
		Name:    "create_users_table",
		Up: `
			CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY,
				email VARCHAR(255) UNIQUE NOT NULL,
				password_hash VARCHAR(255) NOT NULL,
				role VARCHAR(16) NOT NULL DEFAULT 'user',
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				last_login_at TIMESTAMP WITH TIME ZONE
			);
		`,
		Down: `DROP TABLE IF EXISTS users;`,
	},
}

// RunMigrations runs all pending database migrations
func RunMigrations(ctx context.Context, conn *Connection, logger *logrus.Logger) error {
	// Ensure schema_migrations table exists
	if err := createMigrationsTable(ctx, conn.DB); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := getCurrentVersion(ctx, conn.DB)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		log := logger.WithFields(logrus.Fields{
			"version": migration.Version,
			"name":    migration.Name,
		})
		log.Info("Running migration")

		tx, err := conn.DB.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx, migration.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
			migration.Version, migration.Name,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		log.Info("Migration completed")
	}

	return nil
}

func createMigrationsTable(ctx context.Context, db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	_, err := db.ExecContext(ctx, query)
	return err
}

func getCurrentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}
