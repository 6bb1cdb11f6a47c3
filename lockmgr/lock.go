package lockmgr

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrAcquireFailed is returned only when the lock table itself could
// not admit a new waiter (e.g. resource-record allocation failure).
// It is never returned for ordinary contention — contention blocks,
// it does not fail.
var ErrAcquireFailed = errors.New("lockmgr: could not register lock waiter")

// ReleaseListener is notified once per block released, synchronously
// and while the table mutex is held. Implementations must not perform
// blocking work from within it (spec.md §5).
type ReleaseListener func(block BlockID, txn TxnID)

// LockTable is the fixed-size hash table of resource lock records
// described in spec.md §3–§5: one table-wide mutex and condition
// variable guard every bucket, every waiter queue, and every granted
// flag.
type LockTable struct {
	buckets  []bucket
	mu       sync.Mutex
	cond     *sync.Cond
	log      *zap.Logger
	onRelease ReleaseListener
}

// New constructs a LockTable with the given bucket count. log may be
// nil, in which case a no-op logger is used. onRelease may be nil.
func New(numBuckets int, log *zap.Logger, onRelease ReleaseListener) *LockTable {
	if numBuckets <= 0 {
		numBuckets = 101
	}
	if log == nil {
		log = zap.NewNop()
	}
	lt := &LockTable{
		buckets:   make([]bucket, numBuckets),
		log:       log,
		onRelease: onRelease,
	}
	lt.cond = sync.NewCond(&lt.mu)
	return lt
}

func (lt *LockTable) bucketFor(block BlockID) *bucket {
	idx := int64(block) % int64(len(lt.buckets))
	if idx < 0 {
		idx += int64(len(lt.buckets))
	}
	return &lt.buckets[idx]
}

// compatible implements the oracle of spec.md §4.2: may the waiter at
// queue position p be granted, given the waiters ahead of it in
// rl.queue? It only consults rl.queue[0] (the head), which is sound
// exactly when the caller has already established that every entry
// between index 0 and p is granted — grantFrom's sequential,
// break-on-first-incompatible scan is the only caller that may
// establish that; nothing else may call compatible directly (spec.md
// §3: "no passing of the queue except by the mode-compatibility
// rule").
func compatible(rl *resourceLock, p int) bool {
	w := rl.queue[p]
	if p == 0 {
		return true
	}
	head := rl.queue[0]
	if !head.granted {
		// Nothing ahead is granted yet; p cannot be head-relative
		// compatible unless it IS effectively the head, which is the
		// p == 0 case above.
		return false
	}
	if head.mode == Shared && w.mode == Shared {
		return true
	}
	if head.mode == Exclusive && head.txn == w.txn {
		return true
	}
	return false
}

// grantFrom walks rl.queue from the start, granting every waiter the
// oracle admits, and stops at the first waiter it cannot grant — so a
// waiter is never granted while an ungranted waiter sits ahead of it
// in the queue, even if that ungranted waiter is itself incompatible
// only with the head (spec.md §4.2, Scenario L3). It returns whether
// it granted anything.
func (lt *LockTable) grantFrom(rl *resourceLock) bool {
	granted := false
	for i, w := range rl.queue {
		if w.granted {
			continue
		}
		if compatible(rl, i) {
			w.granted = true
			rl.mode = w.mode
			granted = true
			continue
		}
		break
	}
	return granted
}

// Acquire blocks until block is granted to txn in mode, enqueuing a
// new waiter at the tail of the resource's FIFO queue (spec.md §4.3).
// It never times out and never fails except for ErrAcquireFailed.
func (lt *LockTable) Acquire(block BlockID, mode Mode, txn TxnID) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	b := lt.bucketFor(block)
	rl := b.lookup(block)
	if rl == nil {
		rl = &resourceLock{block: block}
		b.insert(rl)
	}

	w := &waiter{txn: txn, mode: mode}
	rl.queue = append(rl.queue, w)

	// Route the enqueue-time decision through the same sequential,
	// break-on-first-incompatible scan the release path uses, rather
	// than consulting compatible() directly against the new tail
	// entry: compatible() alone only looks at rl.queue[0] and would
	// wrongly grant a shared arrival past an ungranted exclusive
	// waiter sitting between the head and the tail (spec.md §4.2,
	// Scenario L3).
	lt.grantFrom(rl)
	if w.granted {
		lt.log.Debug("lock granted", zap.Int64("block", int64(block)), zap.Stringer("mode", mode), zap.Uint64("txn", uint64(txn)))
		return nil
	}

	lt.log.Debug("lock waiting", zap.Int64("block", int64(block)), zap.Stringer("mode", mode), zap.Uint64("txn", uint64(txn)))
	for !w.granted {
		lt.cond.Wait()
		// Re-evaluate the oracle for the whole queue; a broadcast may
		// have advanced waiters ahead of us without yet reaching w.
		rl = b.lookup(block)
		if rl == nil {
			// Should not happen while w is still enqueued, but guard
			// against a concurrent full release racing ahead of us.
			continue
		}
		lt.grantFrom(rl)
	}

	lt.log.Debug("lock granted after wait", zap.Int64("block", int64(block)), zap.Stringer("mode", mode), zap.Uint64("txn", uint64(txn)))
	return nil
}

// Release releases every block in blocks held by txn (spec.md §4.4).
// Waiters are re-evaluated after each removal, the condition variable
// is broadcast once all blocks are processed, and the release
// listener (if any) fires once per block.
func (lt *LockTable) Release(blocks []BlockID, txn TxnID) {
	lt.mu.Lock()

	for _, block := range blocks {
		b := lt.bucketFor(block)
		rl := b.lookup(block)
		if rl == nil {
			continue
		}

		kept := rl.queue[:0]
		for _, w := range rl.queue {
			if w.txn == txn {
				continue
			}
			kept = append(kept, w)
		}
		rl.queue = kept

		if len(rl.queue) > 0 {
			lt.grantFrom(rl)
		} else {
			b.remove(rl)
		}

		lt.log.Debug("lock released", zap.Int64("block", int64(block)), zap.Uint64("txn", uint64(txn)))

		if lt.onRelease != nil {
			lt.onRelease(block, txn)
		}
	}

	lt.cond.Broadcast()
	lt.mu.Unlock()
}
