// Package model defines the domain types shared across the application.
package model

import "time"

// ReceiptStatus tracks where a receipt is in the review lifecycle.
type ReceiptStatus string

const (
	// StatusPending marks a freshly scanned receipt that has not been reviewed.
	StatusPending ReceiptStatus = "pending"
	// StatusReview marks a receipt with a draft save but no approval yet.
	StatusReview ReceiptStatus = "review"
	// StatusVerified marks an approved receipt. Financial fields are frozen;
	// only category reclassification and header fixes remain editable.
	StatusVerified ReceiptStatus = "verified"
)

// CategorySource records how a line item got its category.
type CategorySource string

const (
	// SourceLearned means the category came from a previously learned mapping.
	SourceLearned CategorySource = "learned"
	// SourceManual means the user set the category during review.
	SourceManual CategorySource = "manual"
	// SourceAI means the category came from automated classification.
	SourceAI CategorySource = "ai"
)

// LineItem is a single purchased item extracted from a receipt.
// RawName is the immutable OCR text; CleanName is the display name and the
// only name field a correction may change.
type LineItem struct {
	RawName        string
	CleanName      string
	Category       string
	CategorySource CategorySource
	ID             int64
	ReceiptID      int64
	Price          float64
	Quantity       float64
	AIConfidence   float64
	Corrected      bool
}

// Amount returns the item's contribution to the receipt subtotal.
func (li LineItem) Amount() float64 {
	return li.Price * li.Quantity
}

// DisplayName returns the cleaned name, falling back to the raw OCR text.
func (li LineItem) DisplayName() string {
	if li.CleanName != "" {
		return li.CleanName
	}
	return li.RawName
}

// LocalItem is an item added during a review session that has not been
// persisted yet. Its ID is a temporary negative identifier from the local
// item allocator; it becomes a real LineItem only after a successful save.
type LocalItem struct {
	Name     string
	Category string
	ID       int64
	Price    float64
}

// Receipt is the persisted baseline a review session works against.
type Receipt struct {
	ScannedAt           time.Time
	StoreName           string
	ReceiptDate         string // YYYY-MM-DD, empty when the scan found none
	Status              ReceiptStatus
	VerificationMessage string
	Items               []LineItem
	Total               *float64
	ID                  int64
	Tax                 float64
	Discounts           float64
	TotalVerified       bool
}

// ReceiptSummary is the list-view projection of a receipt.
type ReceiptSummary struct {
	StoreName     string
	ReceiptDate   string
	ScannedAt     time.Time
	Status        ReceiptStatus
	Total         *float64
	ID            int64
	ItemCount     int
	TotalVerified bool
}

// DuplicateMatch is one hit from the duplicate-lookup collaborator.
type DuplicateMatch struct {
	StoreName   string
	ReceiptDate string
	Status      ReceiptStatus
	Total       *float64
	ID          int64
}
