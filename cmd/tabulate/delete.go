package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mdwhitten/tabulate/internal/cli"
	"github.com/spf13/cobra"
)

func deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <receipt-id>",
		Short: "Delete a receipt and its line items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReceiptID(args[0])
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")

			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if !force {
				prompter := cli.NewPrompter(os.Stdin, os.Stdout)
				ok, err := prompter.Confirm(cmd.Context(), fmt.Sprintf("Delete receipt #%d permanently?", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Aborted.")
					return nil
				}
			}

			if err := store.DeleteReceipt(cmd.Context(), id); err != nil {
				return err
			}
			slog.Info("Receipt deleted", "receipt_id", id)
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Delete without confirmation")
	return cmd
}
