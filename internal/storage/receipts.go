package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mdwhitten/tabulate/internal/common"
	"github.com/mdwhitten/tabulate/internal/model"
	"github.com/mdwhitten/tabulate/internal/service"
)

// CreateReceipt persists a receipt and its line items, returning the new
// receipt ID. Used when ingesting scan results; the receipt starts in
// whatever status the caller set (normally pending).
func (s *SQLiteStorage) CreateReceipt(ctx context.Context, receipt *model.Receipt) (int64, error) {
	if receipt == nil {
		return 0, fmt.Errorf("receipt cannot be nil")
	}

	status := receipt.Status
	if status == "" {
		status = model.StatusPending
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO receipts
			   (store_name, receipt_date, tax, discounts, total, total_verified, verification_message, status)
			 VALUES (?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?)`,
			receipt.StoreName, receipt.ReceiptDate, receipt.Tax, receipt.Discounts,
			nullFloat(receipt.Total), boolToInt(receipt.TotalVerified),
			receipt.VerificationMessage, string(status))
		if err != nil {
			return fmt.Errorf("failed to insert receipt: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get receipt id: %w", err)
		}

		for _, item := range receipt.Items {
			source := item.CategorySource
			if source == "" {
				source = model.SourceAI
			}
			quantity := item.Quantity
			if quantity == 0 {
				quantity = 1
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO line_items
				   (receipt_id, raw_name, clean_name, price, quantity, category, category_source, ai_confidence, corrected)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				id, item.RawName, item.CleanName, item.Price, quantity,
				item.Category, string(source), item.AIConfidence, boolToInt(item.Corrected)); err != nil {
				return fmt.Errorf("failed to insert line item %q: %w", item.RawName, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetReceipt loads a receipt with its line items.
func (s *SQLiteStorage) GetReceipt(ctx context.Context, id int64) (*model.Receipt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, store_name, COALESCE(receipt_date, ''), scanned_at,
		        tax, discounts, total, total_verified, verification_message, status
		 FROM receipts WHERE id = ?`, id)

	var r model.Receipt
	var total sql.NullFloat64
	var verified int
	var status string
	err := row.Scan(&r.ID, &r.StoreName, &r.ReceiptDate, &r.ScannedAt,
		&r.Tax, &r.Discounts, &total, &verified, &r.VerificationMessage, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", common.ErrReceiptNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt %d: %w", id, err)
	}
	if total.Valid {
		r.Total = &total.Float64
	}
	r.TotalVerified = verified != 0
	r.Status = model.ReceiptStatus(status)

	items, err := s.getLineItems(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Items = items
	return &r, nil
}

func (s *SQLiteStorage) getLineItems(ctx context.Context, receiptID int64) ([]model.LineItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, receipt_id, raw_name, COALESCE(clean_name, ''), price, quantity,
		        category, category_source, COALESCE(ai_confidence, 0), corrected
		 FROM line_items WHERE receipt_id = ? ORDER BY id`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load line items for receipt %d: %w", receiptID, err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.LineItem
	for rows.Next() {
		var item model.LineItem
		var source string
		var corrected int
		if err := rows.Scan(&item.ID, &item.ReceiptID, &item.RawName, &item.CleanName,
			&item.Price, &item.Quantity, &item.Category, &source, &item.AIConfidence, &corrected); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		item.CategorySource = model.CategorySource(source)
		item.Corrected = corrected != 0
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListReceipts returns receipt summaries, newest first by receipt date
// falling back to scan time.
func (s *SQLiteStorage) ListReceipts(ctx context.Context, filter service.ReceiptFilter) ([]model.ReceiptSummary, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, fmt.Errorf("%w: negative limit or offset", ErrInvalidFilter)
	}
	limit := filter.Limit
	if limit == 0 {
		limit = 50
	}

	query := `
		SELECT r.id, r.store_name, COALESCE(r.receipt_date, ''), r.scanned_at,
		       r.total, r.total_verified, r.status, COUNT(li.id) AS item_count
		FROM receipts r
		LEFT JOIN line_items li ON li.receipt_id = r.id`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE r.status = ?`
		args = append(args, string(filter.Status))
	}
	query += `
		GROUP BY r.id
		ORDER BY COALESCE(r.receipt_date, r.scanned_at) DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []model.ReceiptSummary
	for rows.Next() {
		var sum model.ReceiptSummary
		var total sql.NullFloat64
		var verified int
		var status string
		if err := rows.Scan(&sum.ID, &sum.StoreName, &sum.ReceiptDate, &sum.ScannedAt,
			&total, &verified, &status, &sum.ItemCount); err != nil {
			return nil, fmt.Errorf("failed to scan receipt summary: %w", err)
		}
		if total.Valid {
			sum.Total = &total.Float64
		}
		sum.TotalVerified = verified != 0
		sum.Status = model.ReceiptStatus(status)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// DeleteReceipt removes a receipt and its line items.
func (s *SQLiteStorage) DeleteReceipt(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM line_items WHERE receipt_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete line items for receipt %d: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM receipts WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete receipt %d: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check delete result: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: id %d", common.ErrReceiptNotFound, id)
		}
		return nil
	})
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
