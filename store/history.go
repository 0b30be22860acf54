package store

import (
	"time"

	"github.com/tailored-agentic-units/store/patch"
)

// DefaultHistoryLimit is the number of commits a store retains unless
// configured otherwise.
const DefaultHistoryLimit = 100

// Change records one commit. Inverse holds the patches that undo Patches
// when applied to the snapshot the commit produced.
type Change struct {
	Seq         uint64        `json:"seq"`
	Action      string        `json:"action"`
	DispatchID  string        `json:"dispatch_id"`
	Patches     []patch.Patch `json:"patches"`
	Inverse     []patch.Patch `json:"inverse"`
	Replaced    bool          `json:"replaced"`
	CommittedAt time.Time     `json:"committed_at"`
}

// appendBounded appends c and drops the oldest entries beyond limit. A limit
// of zero or less retains nothing.
func appendBounded(history []Change, c Change, limit int) []Change {
	if limit <= 0 {
		return nil
	}
	history = append(history, c)
	if over := len(history) - limit; over > 0 {
		history = append(history[:0:0], history[over:]...)
	}
	return history
}
