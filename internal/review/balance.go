package review

import (
	"fmt"
	"math"

	"github.com/mdwhitten/tabulate/internal/model"
)

// BalanceTolerance is the threshold below which the computed item sum and
// the stated total are considered equal, allowing for per-line cent
// rounding on the printed receipt.
const BalanceTolerance = 0.02

// adjustmentThreshold is the smallest imbalance worth materializing as an
// adjustment line item.
const adjustmentThreshold = 0.01

// Verdict classifies the outcome of balance verification.
type Verdict int

const (
	// VerdictBalanced means items plus tax reconcile with the stated total.
	VerdictBalanced Verdict = iota
	// VerdictWarning means a total exists but the line-item math misses it.
	VerdictWarning
	// VerdictFailed means there is no total to verify against at all.
	VerdictFailed
)

// Result is the outcome of reconciling line-item math against the stated
// total. Difference is only meaningful for VerdictWarning and is signed:
// total minus subtotal minus tax.
type Result struct {
	Title      string
	Detail     string
	Verdict    Verdict
	Subtotal   float64
	Tax        float64
	Difference float64
}

// Verify reconciles the current line items (live items plus local additions)
// against the effective total: the manual override when present, otherwise
// the baseline total.
//
// Verification always works from the ground up — sum(items) + tax vs.
// total — never from a printed subtotal, which can read correctly even when
// items are missing or mispriced. The one exception is the fast path: when
// the backend already verified the total and nothing financial changed in
// this session, the prior verdict is trusted verbatim.
func Verify(s *State, locals []model.LocalItem, baseline *model.Receipt) Result {
	subtotal := 0.0
	for _, item := range s.Items {
		subtotal += item.Amount()
	}
	for _, item := range locals {
		subtotal += item.Price
	}
	tax := baseline.Tax

	financiallyTouched := len(s.PriceCorrections) > 0 || len(s.Deleted) > 0 || len(locals) > 0
	if baseline.TotalVerified && !financiallyTouched {
		return Result{
			Verdict:  VerdictBalanced,
			Title:    "Total verified",
			Detail:   baseline.VerificationMessage,
			Subtotal: subtotal,
			Tax:      tax,
		}
	}

	total := s.ManualTotal
	if total == nil {
		total = baseline.Total
	}
	if total == nil {
		return Result{
			Verdict:  VerdictFailed,
			Title:    "No total found",
			Detail:   "Could not find a total on the receipt. Enter one manually to verify.",
			Subtotal: subtotal,
			Tax:      tax,
		}
	}

	// Tolerance applies to the raw values; rounding first could push a
	// sub-cent imbalance across the threshold. Cents only matter for display
	// and for the adjustment-item price.
	computed := subtotal + tax
	stated := *total

	if math.Abs(computed-stated) < BalanceTolerance {
		return Result{
			Verdict:  VerdictBalanced,
			Title:    "Total verified",
			Detail:   fmt.Sprintf("Items $%.2f + Tax $%.2f = $%.2f", subtotal, tax, computed),
			Subtotal: subtotal,
			Tax:      tax,
		}
	}

	diff := model.RoundCents(stated - subtotal - tax)
	return Result{
		Verdict: VerdictWarning,
		Title:   "Total mismatch",
		Detail: fmt.Sprintf("Items $%.2f + Tax $%.2f = $%.2f, but the receipt states $%.2f (diff $%.2f). Check for missing items or discounts.",
			subtotal, tax, computed, stated, math.Abs(diff)),
		Subtotal:   subtotal,
		Tax:        tax,
		Difference: diff,
	}
}

// NeedsAdjustment reports whether the imbalance is large enough to offer
// the one-step adjustment-item remediation.
func (r Result) NeedsAdjustment() bool {
	return r.Verdict == VerdictWarning && math.Abs(r.Difference) >= adjustmentThreshold
}

// NewAdjustmentItem returns a local item priced at the current imbalance.
// Adding it changes the subtotal by exactly the difference, so the receipt
// necessarily re-balances on the next verification.
func (r Result) NewAdjustmentItem() model.LocalItem {
	return model.LocalItem{
		ID:       NextLocalID(),
		Name:     "Adjustment",
		Category: "Other",
		Price:    model.RoundCents(r.Difference),
	}
}
