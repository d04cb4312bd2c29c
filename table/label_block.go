package table

import "errors"

// ErrLabelBlockExhausted is returned by a LabelBlock when it has no
// more labels to hand out. The engine treats this as an out-of-capacity
// condition (spec §7 mode 3): the affected rebuild is rolled back and
// retried on the next drain.
var ErrLabelBlockExhausted = errors.New("table: label block exhausted")

// LabelBlock is the externally-owned label allocator advertised by a
// peer. Implementations must be safe for concurrent allocate/release
// from any db-table task, per spec §5; the engine itself never
// synchronizes access.
type LabelBlock interface {
	// Allocate returns a new, non-zero label, or
	// ErrLabelBlockExhausted if the block is out of capacity.
	Allocate() (uint32, error)

	// Release returns label to the block. Releasing label 0 is a
	// programmer error (spec §7 mode 1) and implementations may
	// assume it never happens; the engine never calls Release(0).
	Release(label uint32)
}
