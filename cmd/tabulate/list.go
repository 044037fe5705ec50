package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mdwhitten/tabulate/internal/cli"
	"github.com/mdwhitten/tabulate/internal/model"
	"github.com/mdwhitten/tabulate/internal/service"
	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List receipts, newest first",
		RunE:  runList,
	}

	cmd.Flags().Int("limit", 50, "Maximum number of receipts to show")
	cmd.Flags().Int("offset", 0, "Number of receipts to skip")
	cmd.Flags().String("status", "", "Filter by status (pending, review, verified)")

	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	status, _ := cmd.Flags().GetString("status")

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summaries, err := store.ListReceipts(cmd.Context(), service.ReceiptFilter{
		Status: model.ReceiptStatus(status),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return fmt.Errorf("failed to list receipts: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Println("No receipts found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTORE\tDATE\tTOTAL\tITEMS\tSTATUS")
	for _, sum := range summaries {
		date := sum.ReceiptDate
		if date == "" {
			date = sum.ScannedAt.Format("2006-01-02")
		}
		statusLabel := string(sum.Status)
		if sum.Status == model.StatusVerified {
			statusLabel = cli.SuccessIcon + " " + statusLabel
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			sum.ID, sum.StoreName, date, formatTotal(sum.Total), sum.ItemCount, statusLabel)
	}
	return w.Flush()
}
