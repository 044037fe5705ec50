package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS receipts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					store_name TEXT NOT NULL DEFAULT '',
					receipt_date TEXT,
					scanned_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					subtotal REAL,
					tax REAL NOT NULL DEFAULT 0,
					discounts REAL NOT NULL DEFAULT 0,
					total REAL,
					total_verified INTEGER NOT NULL DEFAULT 0,
					verification_message TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL DEFAULT 'pending'
				)`,
				`CREATE INDEX idx_receipts_date ON receipts(receipt_date)`,
				`CREATE INDEX idx_receipts_status ON receipts(status)`,

				`CREATE TABLE IF NOT EXISTS line_items (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					receipt_id INTEGER NOT NULL,
					raw_name TEXT NOT NULL,
					clean_name TEXT,
					price REAL NOT NULL,
					quantity REAL NOT NULL DEFAULT 1,
					category TEXT NOT NULL DEFAULT 'Other',
					category_source TEXT NOT NULL DEFAULT 'ai',
					ai_confidence REAL,
					corrected INTEGER NOT NULL DEFAULT 0,
					FOREIGN KEY (receipt_id) REFERENCES receipts(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_line_items_receipt ON line_items(receipt_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add category index for reporting queries",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_line_items_category ON line_items(category)`)
			return err
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
