package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mdwhitten/tabulate/internal/cli"
	"github.com/mdwhitten/tabulate/internal/common"
	"github.com/mdwhitten/tabulate/internal/model"
	"github.com/mdwhitten/tabulate/internal/review"
	"github.com/mdwhitten/tabulate/internal/service"
	"github.com/mdwhitten/tabulate/internal/session"
	"github.com/spf13/cobra"
)

func reviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review <receipt-id>",
		Short: "Interactively review and correct a receipt",
		Long: `Open an interactive review session for a receipt: correct categories,
prices, and names, add or delete items, fix the store and date, override
the total, and save (optionally approving the receipt as verified).

An approved receipt is frozen: only category and header edits remain.`,
		Args: cobra.ExactArgs(1),
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

			return runReviewSession(cmd, store, id, false)
		},
	}
}

// runReviewSession drives the interactive loop for one open receipt.
func runReviewSession(cmd *cobra.Command, store service.Storage, id int64, freshUpload bool) error {
	ctx := cmd.Context()

	baseline, err := store.GetReceipt(ctx, id)
	if err != nil {
		return err
	}

	prompter := cli.NewPrompter(os.Stdin, cmd.OutOrStdout())

	// The upload-time duplicate check only ran when both total and date were
	// extracted; a receipt that has been saved before was checked then.
	dupChecked := baseline.Status != model.StatusPending ||
		(!freshUpload && baseline.Total != nil && baseline.ReceiptDate != "")

	sess := session.New(store, store, baseline, session.Options{
		ConfirmDuplicates: prompter.ConfirmDuplicates,
		FreshUpload:       freshUpload,
		DuplicateChecked:  dupChecked,
	})

	prompter.ShowSession(sess)
	prompter.ShowMessage(cli.SubtleStyle.Render("Type 'help' for commands."))

	for {
		fmt.Fprint(cmd.OutOrStdout(), cli.FormatPrompt("review"))
		line, err := prompter.ReadLine(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, cli.ErrInputCancelled) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read command: %w", err)
		}
		if line == "" {
			continue
		}

		done, err := dispatchReviewCommand(ctx, sess, prompter, line)
		if err != nil {
			prompter.ShowError(common.GetUserMessage(err))
			continue
		}
		if done {
			return nil
		}
	}
}

// dispatchReviewCommand executes one review-loop command. It returns true
// when the session should close.
func dispatchReviewCommand(ctx context.Context, sess *session.Session, prompter *cli.Prompter, line string) (bool, error) {
	fields := strings.Fields(line)
	command, args := fields[0], fields[1:]

	switch command {
	case "help", "?":
		printReviewHelp(prompter)

	case "show", "ls":
		prompter.ShowSession(sess)

	case "cat":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: cat <item-id> <category>")
		}
		itemID, err := parseItemArg(args[0])
		if err != nil {
			return false, err
		}
		category := strings.Join(args[1:], " ")
		if !sess.Dispatch(review.SetCategory{ItemID: itemID, Category: category}) {
			return false, fmt.Errorf("no item with id %d", itemID)
		}

	case "price":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: price <item-id> <amount>")
		}
		itemID, err := parseItemArg(args[0])
		if err != nil {
			return false, err
		}
		price, err := parseAmount(args[1])
		if err != nil {
			return false, err
		}
		if !sess.Dispatch(review.SetUnitPrice{ItemID: itemID, UnitPrice: price}) {
			return false, fmt.Errorf("no item with id %d", itemID)
		}
		prompter.ShowBalance(sess.Balance())

	case "name":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: name <item-id> <new name>")
		}
		itemID, err := parseItemArg(args[0])
		if err != nil {
			return false, err
		}
		if !sess.Dispatch(review.SetName{ItemID: itemID, Name: strings.Join(args[1:], " ")}) {
			return false, fmt.Errorf("no item with id %d", itemID)
		}

	case "del":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: del <item-id>")
		}
		itemID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return false, fmt.Errorf("invalid item id %q", args[0])
		}
		if !sess.RemoveItem(itemID) {
			return false, fmt.Errorf("no item with id %d", itemID)
		}
		prompter.ShowBalance(sess.Balance())

	case "add":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: add <name> <price> [category]")
		}
		price, err := parseAmount(args[len(args)-1])
		category := "Other"
		nameEnd := len(args) - 1
		if err != nil && len(args) >= 3 {
			// Last token wasn't a price, treat it as the category.
			price, err = parseAmount(args[len(args)-2])
			category = args[len(args)-1]
			nameEnd = len(args) - 2
		}
		if err != nil {
			return false, fmt.Errorf("usage: add <name> <price> [category]")
		}
		item := sess.AddItem(strings.Join(args[:nameEnd], " "), price, category)
		prompter.ShowMessage(cli.FormatSuccess(fmt.Sprintf("Added %q at $%.2f", item.Name, item.Price)))
		prompter.ShowBalance(sess.Balance())

	case "total":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: total <amount|clear>")
		}
		if args[0] == "clear" {
			sess.Dispatch(review.SetManualTotal{})
		} else {
			total, err := parseAmount(args[0])
			if err != nil {
				return false, err
			}
			sess.Dispatch(review.SetManualTotal{Total: &total})
		}
		prompter.ShowBalance(sess.Balance())

	case "store":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: store <name>")
		}
		sess.SetStoreName(strings.Join(args, " "))

	case "date":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: date <YYYY-MM-DD>")
		}
		if _, err := time.Parse("2006-01-02", args[0]); err != nil {
			return false, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", args[0])
		}
		sess.SetReceiptDate(args[0])

	case "adjust":
		item, ok := sess.AddAdjustment()
		if !ok {
			return false, fmt.Errorf("receipt is not out of balance")
		}
		prompter.ShowMessage(cli.FormatSuccess(fmt.Sprintf("Added adjustment item at $%.2f", item.Price)))
		prompter.ShowBalance(sess.Balance())

	case "save", "approve":
		if err := sess.Save(ctx, command == "approve"); err != nil {
			if errors.Is(err, common.ErrUploadDiscarded) {
				prompter.ShowMessage("Save canceled; the imported receipt was discarded.")
				return true, nil
			}
			if errors.Is(err, common.ErrSaveCanceled) {
				prompter.ShowMessage("Save canceled.")
				return false, nil
			}
			return false, err
		}
		prompter.ShowMessage(cli.FormatSuccess("Receipt saved."))
		prompter.ShowSession(sess)

	case "quit", "q", "exit":
		if sess.Dirty() {
			ok, err := prompter.Confirm(ctx, "You have unsaved changes. Discard them?")
			if err != nil || !ok {
				return false, nil
			}
		}
		return true, nil

	default:
		return false, fmt.Errorf("unknown command %q (type 'help')", command)
	}

	return false, nil
}

func printReviewHelp(prompter *cli.Prompter) {
	prompter.ShowMessage(strings.TrimSpace(`
  show                     redisplay the receipt
  cat <id> <category>      correct an item's category
  price <id> <amount>      correct an item's unit price
  name <id> <new name>     correct an item's display name
  del <id>                 delete an item
  add <name> <price> [cat] add an item missed by the scan
  total <amount|clear>     override the receipt total
  store <name>             fix the store name
  date <YYYY-MM-DD>        fix the receipt date
  adjust                   add an adjustment item for the imbalance
  save                     save corrections (draft)
  approve                  save corrections and mark verified
  quit                     close the session`))
}

func parseItemArg(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid item id %q", arg)
	}
	return id, nil
}

func parseAmount(arg string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimPrefix(arg, "$"), 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid amount %q", arg)
	}
	return v, nil
}
