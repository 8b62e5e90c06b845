package reconcile

import (
	"fmt"

	"roster-sync/internal/domain"
)

// Warning records a principal the run could not act on and why, so a
// persistently failing principal is visible instead of silently skipped.
type Warning struct {
	Principal domain.Principal
	Reason    string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Principal, w.Reason)
}

// Summary is the per-entity outcome of one reconciliation pass. It is the
// only state that outlives the pass.
type Summary struct {
	Kind     string
	Added    int
	Removed  int
	Updated  int
	Warnings []Warning
}

// Line renders the status fragment for the course status field.
func (s Summary) Line() string {
	return fmt.Sprintf("%s: Added: %d, Removed: %d, Updated: %d.", s.Kind, s.Added, s.Removed, s.Updated)
}
