package review

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/mdwhitten/tabulate/internal/common"
	"github.com/mdwhitten/tabulate/internal/model"
)

// ErrDateRequired is returned when a first-time review is saved without a
// receipt date. It is a local validation failure: no payload is produced
// and no network call is attempted.
var ErrDateRequired = common.NewUserError("receipt date is required before saving", nil)

// NewItem is a user-added item in the save payload, stripped of its
// temporary identifier.
type NewItem struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

// SavePayload is the minimal persistence diff: only the fields the user
// actually touched, never full item snapshots.
type SavePayload struct {
	Corrections      map[string]string  `json:"corrections"`
	PriceCorrections map[string]float64 `json:"price_corrections"`
	NameCorrections  map[string]string  `json:"name_corrections"`
	ManualTotal      *float64           `json:"manual_total"`
	ReceiptDate      *string            `json:"receipt_date"`
	StoreName        *string            `json:"store_name"`
	NewItems         []NewItem          `json:"new_items"`
	DeletedItemIDs   []int64            `json:"deleted_item_ids"`
	Approve          bool               `json:"approve,omitempty"`
}

// BuildSaveDiff assembles the persistence payload from the accumulated
// edits, header fields, local items, and the approve flag.
//
// Building twice from identical inputs yields byte-identical payloads
// (deleted IDs are emitted sorted), so a failed save can be retried without
// re-deriving edits.
//
// The manual total is submitted only for an unverified receipt and only
// when the user actually overrode it: a manual total still equal to the
// baseline total is emitted as absent.
func BuildSaveDiff(s *State, locals []model.LocalItem, storeName, receiptDate string, baseline *model.Receipt, approve, approvedMode bool) (*SavePayload, error) {
	if !approvedMode && strings.TrimSpace(receiptDate) == "" {
		return nil, ErrDateRequired
	}

	deleted := slices.Sorted(maps.Keys(s.Deleted))
	if deleted == nil {
		deleted = []int64{}
	}

	p := &SavePayload{
		Corrections:      make(map[string]string, len(s.Corrections)),
		PriceCorrections: make(map[string]float64, len(s.PriceCorrections)),
		NameCorrections:  make(map[string]string, len(s.NameCorrections)),
		NewItems:         make([]NewItem, 0, len(locals)),
		DeletedItemIDs:   deleted,
		Approve:          approve,
	}

	for id, category := range s.Corrections {
		p.Corrections[formatItemID(id)] = category
	}
	for id, price := range s.PriceCorrections {
		p.PriceCorrections[formatItemID(id)] = price
	}
	for id, name := range s.NameCorrections {
		p.NameCorrections[formatItemID(id)] = name
	}

	if !approvedMode && s.ManualTotal != nil && !totalsEqual(s.ManualTotal, baseline.Total) {
		t := *s.ManualTotal
		p.ManualTotal = &t
	}

	if v := strings.TrimSpace(receiptDate); v != "" {
		p.ReceiptDate = &v
	}
	if v := strings.TrimSpace(storeName); v != "" {
		p.StoreName = &v
	}

	for _, item := range locals {
		p.NewItems = append(p.NewItems, NewItem{
			Name:     item.Name,
			Category: item.Category,
			Price:    item.Price,
		})
	}

	return p, nil
}

func formatItemID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func totalsEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
