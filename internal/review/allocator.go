package review

import "sync/atomic"

// localItemIDs backs the process-wide temporary ID allocator. It is
// initialized once at process start and never reset, so identifiers stay
// unique across add/delete/re-add cycles and across sessions.
var localItemIDs atomic.Int64

// NextLocalID returns the next temporary identifier for a not-yet-persisted
// item. IDs are strictly negative and strictly decreasing, starting at -1.
func NextLocalID() int64 {
	return -localItemIDs.Add(1)
}
