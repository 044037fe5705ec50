// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/mdwhitten/tabulate/internal/model"
	"github.com/mdwhitten/tabulate/internal/review"
)

// ReceiptFilter defines filtering options for receipt list queries.
type ReceiptFilter struct {
	Status model.ReceiptStatus
	Limit  int
	Offset int
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Receipt operations
	CreateReceipt(ctx context.Context, receipt *model.Receipt) (int64, error)
	GetReceipt(ctx context.Context, id int64) (*model.Receipt, error)
	ListReceipts(ctx context.Context, filter ReceiptFilter) ([]model.ReceiptSummary, error)
	DeleteReceipt(ctx context.Context, id int64) error

	// SaveReceipt applies a review diff to a persisted receipt in a single
	// transaction.
	SaveReceipt(ctx context.Context, id int64, payload *review.SavePayload) error

	DuplicateChecker

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// DuplicateChecker is the duplicate-lookup collaborator consulted before a
// save is allowed to proceed. The matching algorithm behind it is not part
// of the review engine; only the gating contract is.
type DuplicateChecker interface {
	// FindDuplicates returns receipts on the given date whose total matches
	// within a cent, excluding excludeID (pass 0 to exclude nothing).
	FindDuplicates(ctx context.Context, total float64, receiptDate string, excludeID int64) ([]model.DuplicateMatch, error)
}
