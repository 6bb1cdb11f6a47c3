// Package notify models the notification sink spec.md §6 names.
// Per spec.md §9, this is a direct callback struct rather than the
// generic observer/notifier indirection the C original builds from
// indirect function pointers — that generic machinery is out of
// spec.md's core scope.
package notify

import "github.com/Johniel/gorellycore/lockmgr"

// Sink receives the three event kinds spec.md §6 names. Delivery is
// synchronous and advisory: a nil field is simply not invoked.
// Callbacks fire while the caller's mutex is held (spec.md §5) and
// must not perform blocking work.
type Sink struct {
	// OnLockReleased fires once per block released.
	OnLockReleased func(block lockmgr.BlockID, txn lockmgr.TxnID)
	// OnTransactionFinished fires once a transaction task reaches its
	// outcome (commit or abort).
	OnTransactionFinished func(txn lockmgr.TxnID, committed bool)
	// OnAllTransactionsFinished fires when the last outstanding task
	// completes.
	OnAllTransactionsFinished func()
}

// LockReleased fires OnLockReleased if set.
func (s Sink) LockReleased(block lockmgr.BlockID, txn lockmgr.TxnID) {
	if s.OnLockReleased != nil {
		s.OnLockReleased(block, txn)
	}
}

// TransactionFinished fires OnTransactionFinished if set.
func (s Sink) TransactionFinished(txn lockmgr.TxnID, committed bool) {
	if s.OnTransactionFinished != nil {
		s.OnTransactionFinished(txn, committed)
	}
}

// AllTransactionsFinished fires OnAllTransactionsFinished if set.
func (s Sink) AllTransactionsFinished() {
	if s.OnAllTransactionsFinished != nil {
		s.OnAllTransactionsFinished()
	}
}

// AsLockReleaseListener adapts s into a lockmgr.ReleaseListener.
func (s Sink) AsLockReleaseListener() lockmgr.ReleaseListener {
	return func(block lockmgr.BlockID, txn lockmgr.TxnID) {
		s.LockReleased(block, txn)
	}
}
