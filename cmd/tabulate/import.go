package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/mdwhitten/tabulate/internal/model"
	"github.com/spf13/cobra"
)

// scanResult is the JSON shape produced by the external scanner for one
// receipt: extracted header fields, the backend's total verification, and
// the categorized line items.
type scanResult struct {
	StoreName           string     `json:"store_name"`
	ReceiptDate         string     `json:"receipt_date"`
	VerificationMessage string     `json:"verification_message"`
	Items               []scanItem `json:"items"`
	Total               *float64   `json:"total"`
	Tax                 float64    `json:"tax"`
	Discounts           float64    `json:"discounts"`
	TotalVerified       bool       `json:"total_verified"`
}

type scanItem struct {
	RawName        string  `json:"raw_name"`
	CleanName      string  `json:"clean_name"`
	Category       string  `json:"category"`
	CategorySource string  `json:"category_source"`
	Price          float64 `json:"price"`
	Quantity       float64 `json:"quantity"`
	AIConfidence   float64 `json:"ai_confidence"`
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <scan.json>",
		Short: "Import a scanner-produced receipt as a pending record",
		Long: `Import the JSON output of the receipt scanner and create a pending
receipt for review. With --review, the review session opens immediately
and the receipt is treated as a fresh upload: canceling a duplicate-gated
save discards it again.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().Bool("review", false, "Open the review session after importing")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	openReview, _ := cmd.Flags().GetBool("review")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read scan file: %w", err)
	}

	var scan scanResult
	if err := json.Unmarshal(data, &scan); err != nil {
		return fmt.Errorf("failed to parse scan file: %w", err)
	}
	if len(scan.Items) == 0 {
		return fmt.Errorf("scan file contains no line items")
	}

	receipt := &model.Receipt{
		StoreName:           scan.StoreName,
		ReceiptDate:         scan.ReceiptDate,
		Status:              model.StatusPending,
		Total:               scan.Total,
		Tax:                 scan.Tax,
		Discounts:           scan.Discounts,
		TotalVerified:       scan.TotalVerified,
		VerificationMessage: scan.VerificationMessage,
	}
	for _, item := range scan.Items {
		quantity := item.Quantity
		if quantity == 0 {
			quantity = 1
		}
		receipt.Items = append(receipt.Items, model.LineItem{
			RawName:        item.RawName,
			CleanName:      item.CleanName,
			Category:       item.Category,
			CategorySource: model.CategorySource(item.CategorySource),
			Price:          item.Price,
			Quantity:       quantity,
			AIConfidence:   item.AIConfidence,
		})
	}

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	id, err := store.CreateReceipt(cmd.Context(), receipt)
	if err != nil {
		return fmt.Errorf("failed to import receipt: %w", err)
	}
	slog.Info("Receipt imported", "receipt_id", id, "store", scan.StoreName, "items", len(scan.Items))

	if !openReview {
		fmt.Printf("Imported receipt #%d. Run 'tabulate review %d' to review it.\n", id, id)
		return nil
	}

	return runReviewSession(cmd, store, id, true)
}
