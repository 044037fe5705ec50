package main

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/mdwhitten/tabulate/internal/model"
	"github.com/mdwhitten/tabulate/internal/service"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export line items to CSV",
		Long: `Export every line item across all receipts to a CSV file, one row per
item with its receipt's store, date, and status.`,
		RunE: runExport,
	}

	cmd.Flags().StringP("output", "o", "tabulate-export.csv", "Output CSV path")
	cmd.Flags().String("status", "", "Only export receipts with this status")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	output, _ := cmd.Flags().GetString("output")
	status, _ := cmd.Flags().GetString("status")

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summaries, err := store.ListReceipts(cmd.Context(), service.ReceiptFilter{
		Status: model.ReceiptStatus(status),
		Limit:  1_000_000,
	})
	if err != nil {
		return fmt.Errorf("failed to list receipts: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Println("Nothing to export.")
		return nil
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"receipt_id", "store_name", "receipt_date", "status", "item", "category", "price", "quantity"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	bar := progressbar.NewOptions(len(summaries),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Exporting receipts..."),
	)

	rows := 0
	for _, sum := range summaries {
		receipt, err := store.GetReceipt(cmd.Context(), sum.ID)
		if err != nil {
			return err
		}
		for _, item := range receipt.Items {
			record := []string{
				strconv.FormatInt(receipt.ID, 10),
				receipt.StoreName,
				receipt.ReceiptDate,
				string(receipt.Status),
				item.DisplayName(),
				item.Category,
				strconv.FormatFloat(item.Price, 'f', 2, 64),
				strconv.FormatFloat(item.Quantity, 'f', -1, 64),
			}
			if err := w.Write(record); err != nil {
				return fmt.Errorf("failed to write csv row: %w", err)
			}
			rows++
		}
		_ = bar.Add(1)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	fmt.Println()
	slog.Info("Export complete", "receipts", len(summaries), "rows", rows, "output", output)
	return nil
}
