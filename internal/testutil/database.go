// Package testutil provides test helpers for setting up isolated in-memory
// databases and seeding them with receipts.
package testutil

import (
	"context"
	"testing"

	"github.com/mdwhitten/tabulate/internal/model"
	"github.com/mdwhitten/tabulate/internal/service"
	"github.com/mdwhitten/tabulate/internal/storage"
)

// TestDB wraps an in-memory migrated storage for one test.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database with migrations applied
// and cleanup registered.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// SeedReceipt persists a receipt and returns it re-fetched, so line items
// carry their database IDs.
func (db *TestDB) SeedReceipt(receipt *model.Receipt) *model.Receipt {
	db.t.Helper()

	ctx := context.Background()
	id, err := db.Storage.CreateReceipt(ctx, receipt)
	if err != nil {
		db.t.Fatalf("failed to seed receipt: %v", err)
	}

	seeded, err := db.Storage.GetReceipt(ctx, id)
	if err != nil {
		db.t.Fatalf("failed to reload seeded receipt: %v", err)
	}
	return seeded
}
