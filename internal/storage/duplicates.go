package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mdwhitten/tabulate/internal/model"
)

// FindDuplicates returns receipts on the given date whose stored total is
// within a cent of the supplied one, excluding excludeID. An empty date
// short-circuits to no matches without touching the database.
func (s *SQLiteStorage) FindDuplicates(ctx context.Context, total float64, receiptDate string, excludeID int64) ([]model.DuplicateMatch, error) {
	if receiptDate == "" {
		return nil, nil
	}

	query := `
		SELECT id, store_name, COALESCE(receipt_date, ''), total, status
		FROM receipts
		WHERE receipt_date = ?
		  AND total IS NOT NULL
		  AND ABS(total - ?) < 0.01`
	args := []any{receiptDate, total}
	if excludeID != 0 {
		query += ` AND id != ?`
		args = append(args, excludeID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []model.DuplicateMatch
	for rows.Next() {
		var m model.DuplicateMatch
		var matchTotal sql.NullFloat64
		var status string
		if err := rows.Scan(&m.ID, &m.StoreName, &m.ReceiptDate, &matchTotal, &status); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate match: %w", err)
		}
		if matchTotal.Valid {
			m.Total = &matchTotal.Float64
		}
		if status == "" {
			status = string(model.StatusPending)
		}
		m.Status = model.ReceiptStatus(status)
		if m.StoreName == "" {
			m.StoreName = "Unknown Store"
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
