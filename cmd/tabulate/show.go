package main

import (
	"fmt"

	"github.com/mdwhitten/tabulate/internal/cli"
	"github.com/mdwhitten/tabulate/internal/review"
	"github.com/spf13/cobra"
)

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <receipt-id>",
		Short: "Show a receipt with its line items and balance verdict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReceiptID(args[0])
			if err != nil {
				return err
			}

			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			receipt, err := store.GetReceipt(cmd.Context(), id)
			if err != nil {
				return err
			}

			storeName := receipt.StoreName
			if storeName == "" {
				storeName = "Unknown Store"
			}
			fmt.Printf("%s  %s  %s  [%s]\n", cli.TitleStyle.Render(storeName),
				receipt.ReceiptDate, formatTotal(receipt.Total), receipt.Status)
			for _, item := range receipt.Items {
				fmt.Printf("  [%d] %-32s %-16s $%.2f ×%.0f\n",
					item.ID, item.DisplayName(), item.Category, item.Price, item.Quantity)
			}

			state := review.NewState(receipt)
			result := review.Verify(state, nil, receipt)
			prompter := cli.NewPrompter(nil, cmd.OutOrStdout())
			prompter.ShowBalance(result)
			return nil
		},
	}
}
