// Package session orchestrates one receipt review session: it owns the
// review state for a single open receipt, derives dirtiness and balance,
// and runs the save workflow including duplicate gating.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mdwhitten/tabulate/internal/common"
	"github.com/mdwhitten/tabulate/internal/model"
	"github.com/mdwhitten/tabulate/internal/review"
	"github.com/mdwhitten/tabulate/internal/service"
)

// ConfirmDuplicatesFunc asks the user whether to proceed with a save after
// the duplicate lookup returned matches. Returning false cancels the save.
type ConfirmDuplicatesFunc func(ctx context.Context, matches []model.DuplicateMatch) (bool, error)

// Options configure a new review session.
type Options struct {
	// ConfirmDuplicates is consulted when the duplicate guard finds matches.
	// When nil, matches are logged and the save proceeds.
	ConfirmDuplicates ConfirmDuplicatesFunc
	// FreshUpload marks a receipt created by the scan that opened this
	// session. A canceled duplicate-gated save discards such a receipt.
	FreshUpload bool
	// DuplicateChecked marks that the upload-time duplicate check already
	// ran, so the first save does not need to repeat it.
	DuplicateChecked bool
}

// Session is the single editing session for one open receipt. Execution is
// single-threaded and cooperative: transitions are synchronous, and the
// only asynchronous boundaries are the save, duplicate-lookup, and
// delete-on-cancel calls, which never run concurrently for the same
// receipt.
type Session struct {
	storage  service.Storage
	dupes    service.DuplicateChecker
	confirm  ConfirmDuplicatesFunc
	baseline *model.Receipt
	state    *review.State
	log      *slog.Logger

	locals      []model.LocalItem
	storeName   string
	receiptDate string

	freshUpload bool
	dupChecked  bool
	saving      bool
	discarded   bool
}

// New seeds a session from a baseline receipt.
func New(storage service.Storage, dupes service.DuplicateChecker, baseline *model.Receipt, opts Options) *Session {
	return &Session{
		storage:     storage,
		dupes:       dupes,
		confirm:     opts.ConfirmDuplicates,
		baseline:    baseline,
		state:       review.NewState(baseline),
		log:         slog.With("session_id", uuid.NewString(), "receipt_id", baseline.ID),
		storeName:   baseline.StoreName,
		receiptDate: baseline.ReceiptDate,
		freshUpload: opts.FreshUpload,
		dupChecked:  opts.DuplicateChecked,
	}
}

// Baseline returns the last persisted version of the receipt.
func (s *Session) Baseline() *model.Receipt { return s.baseline }

// State returns the current review state.
func (s *Session) State() *review.State { return s.state }

// Locals returns the items added during this session.
func (s *Session) Locals() []model.LocalItem { return s.locals }

// StoreName returns the current store-name header value.
func (s *Session) StoreName() string { return s.storeName }

// ReceiptDate returns the current date header value.
func (s *Session) ReceiptDate() string { return s.receiptDate }

// ApprovedMode reports whether the baseline is already verified, which
// freezes the financial record and narrows both editing and dirtiness.
func (s *Session) ApprovedMode() bool {
	return s.baseline.Status == model.StatusVerified
}

// Dispatch applies a review action and reports whether it changed state.
func (s *Session) Dispatch(action review.Action) bool {
	next := review.Apply(s.state, action)
	changed := next != s.state
	s.state = next
	return changed
}

// SetStoreName updates the store-name header.
func (s *Session) SetStoreName(name string) {
	s.storeName = strings.TrimSpace(name)
}

// SetReceiptDate updates the date header (YYYY-MM-DD, empty to clear).
func (s *Session) SetReceiptDate(date string) {
	s.receiptDate = strings.TrimSpace(date)
}

// AddItem creates a local item with a fresh temporary identifier.
func (s *Session) AddItem(name string, price float64, category string) model.LocalItem {
	item := model.LocalItem{
		ID:       review.NextLocalID(),
		Name:     strings.TrimSpace(name),
		Category: category,
		Price:    model.RoundCents(price),
	}
	s.locals = append(s.locals, item)
	return item
}

// AddAdjustment inserts the balance remediation item when the current
// verdict warrants one.
func (s *Session) AddAdjustment() (model.LocalItem, bool) {
	result := s.Balance()
	if !result.NeedsAdjustment() {
		return model.LocalItem{}, false
	}
	item := result.NewAdjustmentItem()
	s.locals = append(s.locals, item)
	return item, true
}

// RemoveItem deletes an item from the session: local items are dropped
// outright, persisted items go through the deletion transition.
func (s *Session) RemoveItem(id int64) bool {
	if id < 0 {
		for i := range s.locals {
			if s.locals[i].ID == id {
				s.locals = append(s.locals[:i], s.locals[i+1:]...)
				return true
			}
		}
		return false
	}
	return s.Dispatch(review.DeleteItem{ItemID: id})
}

// Dirty reports whether anything meaningful changed under the
// mode-appropriate policy.
func (s *Session) Dirty() bool {
	return review.IsDirty(s.state, s.locals, s.storeName, s.receiptDate, s.baseline, s.ApprovedMode())
}

// Balance reconciles line-item math against the stated total.
func (s *Session) Balance() review.Result {
	return review.Verify(s.state, s.locals, s.baseline)
}

// Saving reports whether a save is currently in flight.
func (s *Session) Saving() bool { return s.saving }

// Discarded reports whether the underlying receipt was discarded after the
// user rejected a duplicate-gated save of a fresh upload. A discarded
// session has nothing left to edit or save; the caller must close it.
func (s *Session) Discarded() bool { return s.discarded }

// Save validates, gates on the duplicate guard, submits the diff, and on
// success replaces the baseline with the re-fetched receipt and resets all
// pending edits.
//
// On failure the pending edits are retained so the user can retry without
// re-entering them; only a confirmed successful save clears them. A save
// already in flight fails immediately with ErrSaveInFlight. Rejecting a
// duplicate-gated save of a fresh upload discards the receipt and returns
// ErrUploadDiscarded; the session is dead from that point on.
func (s *Session) Save(ctx context.Context, approve bool) error {
	if s.saving {
		return common.ErrSaveInFlight
	}
	if s.discarded {
		return common.ErrUploadDiscarded
	}

	// The busy flag spans the whole workflow: the duplicate confirmation
	// blocks on user input, and nothing may start a second save under it.
	s.saving = true
	defer func() { s.saving = false }()

	payload, err := review.BuildSaveDiff(s.state, s.locals, s.storeName, s.receiptDate, s.baseline, approve, s.ApprovedMode())
	if err != nil {
		return err
	}

	if s.needsDuplicateCheck() {
		if proceed := s.runDuplicateGuard(ctx); !proceed {
			if s.discarded {
				return common.ErrUploadDiscarded
			}
			return common.ErrSaveCanceled
		}
	}

	if err := s.storage.SaveReceipt(ctx, s.baseline.ID, payload); err != nil {
		return fmt.Errorf("failed to save receipt %d: %w", s.baseline.ID, err)
	}

	fresh, err := s.storage.GetReceipt(ctx, s.baseline.ID)
	if err != nil {
		return fmt.Errorf("saved receipt %d but failed to reload it: %w", s.baseline.ID, err)
	}

	s.baseline = fresh
	s.state = review.Apply(s.state, review.Reset{Receipt: fresh})
	s.locals = nil
	s.storeName = fresh.StoreName
	s.receiptDate = fresh.ReceiptDate
	s.freshUpload = false
	s.log.Info("Receipt saved", "approve", approve, "status", fresh.Status)
	return nil
}

// Delete discards the open receipt entirely.
func (s *Session) Delete(ctx context.Context) error {
	if err := s.storage.DeleteReceipt(ctx, s.baseline.ID); err != nil {
		return fmt.Errorf("failed to delete receipt %d: %w", s.baseline.ID, err)
	}
	return nil
}

// needsDuplicateCheck gates the save on the duplicate lookup for a fresh
// upload, or for a first save where the upload-time check could not run and
// the user has since supplied both total and date.
func (s *Session) needsDuplicateCheck() bool {
	if s.freshUpload {
		return true
	}
	return !s.dupChecked && s.effectiveTotal() != nil && s.receiptDate != ""
}

// runDuplicateGuard consults the duplicate-lookup collaborator and, when
// matches exist, holds the save for explicit user confirmation. It reports
// whether the save may proceed. Lookup failures are deliberately fail-open:
// an advisory check must never block the primary workflow.
func (s *Session) runDuplicateGuard(ctx context.Context) bool {
	matches := s.lookupDuplicates(ctx)
	s.dupChecked = true

	if len(matches) == 0 {
		return true
	}
	if s.confirm == nil {
		s.log.Warn("Possible duplicate receipts found, proceeding without confirmation", "matches", len(matches))
		return true
	}

	proceed, err := s.confirm(ctx, matches)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Warn("Duplicate confirmation failed, treating as cancel", "error", err)
		}
		proceed = false
	}
	if !proceed && s.freshUpload {
		// The rejected upload is discarded best-effort; the session is dead
		// either way and the user returns to the upload prompt.
		s.discarded = true
		if err := s.storage.DeleteReceipt(ctx, s.baseline.ID); err != nil {
			s.log.Warn("Failed to discard rejected upload", "error", err)
		}
	}
	return proceed
}

// lookupDuplicates short-circuits to no matches when total or date is
// missing, and swallows collaborator errors.
func (s *Session) lookupDuplicates(ctx context.Context) []model.DuplicateMatch {
	total := s.effectiveTotal()
	if total == nil || s.receiptDate == "" {
		return nil
	}
	matches, err := s.dupes.FindDuplicates(ctx, *total, s.receiptDate, s.baseline.ID)
	if err != nil {
		s.log.Warn("Duplicate lookup failed, proceeding without it", "error", err)
		return nil
	}
	return matches
}

func (s *Session) effectiveTotal() *float64 {
	if s.state.ManualTotal != nil {
		return s.state.ManualTotal
	}
	return s.baseline.Total
}
