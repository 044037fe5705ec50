package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mdwhitten/tabulate/internal/common"
	"github.com/mdwhitten/tabulate/internal/model"
	"github.com/mdwhitten/tabulate/internal/review"
)

// SaveReceipt applies a review diff in a single transaction.
//
// Deletions are scoped to the receipt; user-added items land with quantity 1
// and a manual category source; name corrections touch clean_name only —
// raw_name is the immutable OCR text other subsystems key on and must never
// be overwritten; category corrections flip category_source to manual;
// price corrections are rounded to cents and applied only when positive.
// Approving sets status to verified, otherwise the status is unchanged. A
// manual total also marks the receipt total as verified.
func (s *SQLiteStorage) SaveReceipt(ctx context.Context, id int64, payload *review.SavePayload) error {
	if payload == nil {
		return fmt.Errorf("payload cannot be nil")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM receipts WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: id %d", common.ErrReceiptNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to look up receipt %d: %w", id, err)
		}

		for _, itemID := range payload.DeletedItemIDs {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM line_items WHERE id = ? AND receipt_id = ?`, itemID, id); err != nil {
				return fmt.Errorf("failed to delete item %d: %w", itemID, err)
			}
		}

		for _, item := range payload.NewItems {
			name := strings.TrimSpace(item.Name)
			if name == "" {
				name = "Item"
			}
			category := item.Category
			if category == "" {
				category = "Other"
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO line_items
				   (receipt_id, raw_name, clean_name, price, quantity, category, category_source, corrected)
				 VALUES (?, ?, ?, ?, 1, ?, 'manual', 1)`,
				id, name, name, model.RoundCents(item.Price), category); err != nil {
				return fmt.Errorf("failed to insert new item %q: %w", name, err)
			}
		}

		for itemKey, newName := range payload.NameCorrections {
			itemID, err := parseItemID(itemKey)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(newName)
			if name == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE line_items SET clean_name = ? WHERE id = ? AND receipt_id = ?`,
				name, itemID, id); err != nil {
				return fmt.Errorf("failed to apply name correction for item %d: %w", itemID, err)
			}
		}

		for itemKey, category := range payload.Corrections {
			itemID, err := parseItemID(itemKey)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE line_items SET category = ?, category_source = 'manual', corrected = 1
				 WHERE id = ? AND receipt_id = ?`,
				category, itemID, id); err != nil {
				return fmt.Errorf("failed to apply category correction for item %d: %w", itemID, err)
			}
		}

		for itemKey, price := range payload.PriceCorrections {
			itemID, err := parseItemID(itemKey)
			if err != nil {
				return err
			}
			rounded := model.RoundCents(price)
			if rounded <= 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE line_items SET price = ? WHERE id = ? AND receipt_id = ?`,
				rounded, itemID, id); err != nil {
				return fmt.Errorf("failed to apply price correction for item %d: %w", itemID, err)
			}
		}

		if payload.ManualTotal != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE receipts
				 SET total = ?, total_verified = 1,
				     receipt_date = COALESCE(?, receipt_date),
				     store_name = COALESCE(?, store_name)
				 WHERE id = ?`,
				model.RoundCents(*payload.ManualTotal),
				nullString(payload.ReceiptDate), nullString(payload.StoreName), id); err != nil {
				return fmt.Errorf("failed to update receipt %d: %w", id, err)
			}
		} else {
			if _, err := tx.ExecContext(ctx,
				`UPDATE receipts
				 SET receipt_date = COALESCE(?, receipt_date),
				     store_name = COALESCE(?, store_name)
				 WHERE id = ?`,
				nullString(payload.ReceiptDate), nullString(payload.StoreName), id); err != nil {
				return fmt.Errorf("failed to update receipt %d: %w", id, err)
			}
		}

		if payload.Approve {
			if _, err := tx.ExecContext(ctx,
				`UPDATE receipts SET status = 'verified' WHERE id = ?`, id); err != nil {
				return fmt.Errorf("failed to approve receipt %d: %w", id, err)
			}
		}

		return nil
	})
}

func parseItemID(key string) (int64, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid item id %q: %w", key, err)
	}
	return id, nil
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
