// Package review implements the receipt review state and reconciliation
// engine: the transition function over pending edits, the dirtiness and
// balance derivations, and the builder that turns accumulated edits into a
// minimal persistence diff.
package review

import (
	"maps"

	"github.com/mdwhitten/tabulate/internal/model"
)

// State holds the pending, not-yet-persisted edits of one review session
// over a baseline receipt. The correction maps record only what the user
// explicitly touched; Items is the live view with corrections applied and
// deletions removed.
//
// State is only ever modified through Apply, which returns a fresh value
// for every effective transition and the identical pointer for no-ops, so
// callers can use reference equality for change detection.
type State struct {
	Corrections      map[int64]string
	PriceCorrections map[int64]float64
	NameCorrections  map[int64]string
	Deleted          map[int64]struct{}
	ManualTotal      *float64
	Items            []model.LineItem
}

// NewState seeds a fresh state from a baseline receipt. The manual total
// starts from the baseline total so the review screen always shows the
// effective total the save would reconcile against.
func NewState(r *model.Receipt) *State {
	s := &State{
		Corrections:      make(map[int64]string),
		PriceCorrections: make(map[int64]float64),
		NameCorrections:  make(map[int64]string),
		Deleted:          make(map[int64]struct{}),
		Items:            append([]model.LineItem(nil), r.Items...),
	}
	if r.Total != nil {
		t := *r.Total
		s.ManualTotal = &t
	}
	return s
}

// Action is one review-screen edit. The concrete types below form a closed
// tagged union; Apply treats anything else as a no-op.
type Action interface {
	isAction()
}

// SetCategory records a category correction for a live item.
type SetCategory struct {
	Category string
	ItemID   int64
}

// SetUnitPrice records a unit-price correction for a live item.
type SetUnitPrice struct {
	ItemID    int64
	UnitPrice float64
}

// SetName records a display-name correction for a live item.
type SetName struct {
	Name   string
	ItemID int64
}

// DeleteItem marks a persisted item for deletion and removes it from the
// live list. Deleting an item twice is a no-op on the second call.
type DeleteItem struct {
	ItemID int64
}

// SetManualTotal overwrites the manual total override. A nil total clears it.
type SetManualTotal struct {
	Total *float64
}

// Reset discards all pending edits and reseeds from a new baseline,
// typically after a successful save re-fetch.
type Reset struct {
	Receipt *model.Receipt
}

func (SetCategory) isAction()    {}
func (SetUnitPrice) isAction()   {}
func (SetName) isAction()        {}
func (DeleteItem) isAction()     {}
func (SetManualTotal) isAction() {}
func (Reset) isAction()          {}

// Apply is the pure transition function. Effective transitions return a new
// state; unrecognized actions, corrections addressed to items absent from
// the live list, and repeated deletions all return s itself unchanged.
func Apply(s *State, action Action) *State {
	switch a := action.(type) {
	case SetCategory:
		idx := itemIndex(s.Items, a.ItemID)
		if idx < 0 {
			return s
		}
		next := s.clone()
		next.Corrections[a.ItemID] = a.Category
		next.Items[idx].Category = a.Category
		next.Items[idx].CategorySource = model.SourceManual
		return next

	case SetUnitPrice:
		idx := itemIndex(s.Items, a.ItemID)
		if idx < 0 {
			return s
		}
		next := s.clone()
		next.PriceCorrections[a.ItemID] = a.UnitPrice
		next.Items[idx].Price = a.UnitPrice
		return next

	case SetName:
		idx := itemIndex(s.Items, a.ItemID)
		if idx < 0 {
			return s
		}
		next := s.clone()
		next.NameCorrections[a.ItemID] = a.Name
		next.Items[idx].CleanName = a.Name
		return next

	case DeleteItem:
		if _, done := s.Deleted[a.ItemID]; done {
			return s
		}
		idx := itemIndex(s.Items, a.ItemID)
		if idx < 0 {
			return s
		}
		next := s.clone()
		next.Deleted[a.ItemID] = struct{}{}
		next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
		return next

	case SetManualTotal:
		next := s.clone()
		if a.Total != nil {
			t := *a.Total
			next.ManualTotal = &t
		} else {
			next.ManualTotal = nil
		}
		return next

	case Reset:
		return NewState(a.Receipt)

	default:
		return s
	}
}

func (s *State) clone() *State {
	next := &State{
		Corrections:      maps.Clone(s.Corrections),
		PriceCorrections: maps.Clone(s.PriceCorrections),
		NameCorrections:  maps.Clone(s.NameCorrections),
		Deleted:          maps.Clone(s.Deleted),
		Items:            append([]model.LineItem(nil), s.Items...),
	}
	if s.ManualTotal != nil {
		t := *s.ManualTotal
		next.ManualTotal = &t
	}
	return next
}

// Item returns the live item with the given ID, if present.
func (s *State) Item(id int64) (model.LineItem, bool) {
	idx := itemIndex(s.Items, id)
	if idx < 0 {
		return model.LineItem{}, false
	}
	return s.Items[idx], true
}

func itemIndex(items []model.LineItem, id int64) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
