// Package lockmgr implements the hash-bucketed, per-resource lock
// table described for the transaction subsystem: shared/exclusive
// modes, FIFO wait queues, condition-variable wake-ups, and
// deadlock-avoidance (not detection) via single-lock-at-a-time
// acquisition.
//
// It is adapted from the teacher's RID-keyed, deadlock-detecting
// transaction.LockManager down to a block-keyed design with no
// wait-for graph: every resource is identified by an integer
// BlockID, and a transaction that would wait simply waits — there is
// no cycle check.
package lockmgr

import (
	"go.uber.org/zap"
)

// BlockID names a storage block, the unit of locking. The core treats
// it as an opaque integer; the storage collaborator defines what it
// addresses.
type BlockID int64

// TxnID identifies the transaction acquiring or releasing locks. The
// executor uses the executing goroutine's task identity for this.
type TxnID uint64

// Mode is the lock mode requested or held: shared or exclusive.
type Mode int

const (
	// Shared is compatible with other Shared holders.
	Shared Mode = iota
	// Exclusive is compatible with nothing, except a re-entrant
	// acquire by the transaction that already holds it.
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// waiter is one entry in a resource's FIFO wait queue.
type waiter struct {
	txn     TxnID
	mode    Mode
	granted bool
}

// resourceLock is the per-block record: its FIFO waiter queue plus the
// bucket-membership links that make the bucket a circular
// doubly-linked list (spec.md §3, §4.1).
type resourceLock struct {
	block BlockID
	mode  Mode // mode of the current head waiter, once granted
	queue []*waiter

	prev, next *resourceLock
}

// Logger is the structured logger lock operations report through. A
// nil Logger is replaced with zap.NewNop() at construction time.
type Logger = *zap.Logger
