package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mdwhitten/tabulate/internal/storage"
	"github.com/spf13/viper"
)

// openStorage opens the configured database, falling back to the default
// path under the user's data directory.
func openStorage() (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "tabulate", "tabulate.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// parseReceiptID parses a positional receipt ID argument.
func parseReceiptID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid receipt id %q", arg)
	}
	return id, nil
}

// formatTotal renders an optional total for display.
func formatTotal(total *float64) string {
	if total == nil {
		return "—"
	}
	return fmt.Sprintf("$%.2f", *total)
}
