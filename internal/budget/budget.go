// Package budget implements the per-render inclusion-size budget: a ceiling on
// total byte growth from dynamic content expansion. The budget is an explicit
// mutable handle shared between the render pipeline and the rewrite core.
package budget

import (
	"fmt"
	"sync"
)

// LimitExceededError indicates a charge would push usage past the configured limit.
type LimitExceededError struct {
	Requested int64
	Used      int64
	Limit     int64
}

// Error implements the error interface
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("inclusion size budget exceeded: requested %d, used %d of %d", e.Requested, e.Used, e.Limit)
}

// IsLimitExceeded reports whether err is a budget limit error.
func IsLimitExceeded(err error) bool {
	_, ok := err.(*LimitExceededError)
	return ok
}

// IncludeSizeBudget tracks cumulative expansion bytes against a fixed limit.
//
// A zero or negative limit means unlimited. One instance is shared by all
// page workers of a render pass, so charging is mutex-guarded.
type IncludeSizeBudget struct {
	mu    sync.Mutex
	limit int64
	used  int64
}

// New creates a budget with the given byte limit.
func New(limit int64) *IncludeSizeBudget {
	return &IncludeSizeBudget{limit: limit}
}

// Charge consumes n bytes from the budget. Negative or zero charges are no-ops:
// shrinking substitutions never refund budget, matching inclusion accounting
// in the host renderer.
func (b *IncludeSizeBudget) Charge(n int64) error {
	if n <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit > 0 && b.used+n > b.limit {
		return &LimitExceededError{Requested: n, Used: b.used, Limit: b.limit}
	}
	b.used += n
	return nil
}

// Used returns the bytes consumed so far.
func (b *IncludeSizeBudget) Used() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Limit returns the configured limit (0 = unlimited).
func (b *IncludeSizeBudget) Limit() int64 { return b.limit }

// Remaining returns the bytes left, or -1 when unlimited.
func (b *IncludeSizeBudget) Remaining() int64 {
	if b.limit <= 0 {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limit - b.used
}
