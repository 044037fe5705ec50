package review

import "github.com/mdwhitten/tabulate/internal/model"

// IsDirty reports whether the session differs from its baseline under the
// mode-appropriate policy.
//
// For an approved (verified) receipt the financial record is frozen: only
// category corrections and header edits count. Pending price edits, name
// edits, deletions, and added items are deliberately ignored in that mode.
// For an unapproved receipt every kind of pending edit counts.
//
// A baseline header the scan never produced is stored as "", so an empty
// current header never reads as dirty against it.
func IsDirty(s *State, locals []model.LocalItem, storeName, receiptDate string, baseline *model.Receipt, approvedMode bool) bool {
	headerDirty := storeName != baseline.StoreName || receiptDate != baseline.ReceiptDate

	if approvedMode {
		return len(s.Corrections) > 0 || headerDirty
	}

	return len(s.Corrections) > 0 ||
		len(s.PriceCorrections) > 0 ||
		len(s.NameCorrections) > 0 ||
		len(s.Deleted) > 0 ||
		len(locals) > 0 ||
		headerDirty
}
