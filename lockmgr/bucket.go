package lockmgr

// bucket is a circular doubly-linked list of resourceLock records
// (spec.md §3, §4.1). An empty bucket is represented by a nil head;
// a singleton bucket has head.next == head.prev == head.
type bucket struct {
	head *resourceLock
}

// lookup scans the bucket's circular list once and returns the
// record for block, or nil if absent.
func (b *bucket) lookup(block BlockID) *resourceLock {
	if b.head == nil {
		return nil
	}
	cur := b.head
	for {
		if cur.block == block {
			return cur
		}
		cur = cur.next
		if cur == b.head {
			return nil
		}
	}
}

// insert links a freshly constructed record into the bucket at the
// head position. Callers must have already verified via lookup that
// no record for this block exists.
func (b *bucket) insert(rl *resourceLock) {
	if b.head == nil {
		rl.prev, rl.next = rl, rl
		b.head = rl
		return
	}
	tail := b.head.prev
	rl.prev = tail
	rl.next = b.head
	tail.next = rl
	b.head.prev = rl
	b.head = rl
}

// remove unlinks rl from the bucket. If rl was the head, the head
// advances to rl.next; if rl was the sole element, the head is
// cleared to nil.
func (b *bucket) remove(rl *resourceLock) {
	if rl.next == rl {
		b.head = nil
		rl.prev, rl.next = nil, nil
		return
	}
	rl.prev.next = rl.next
	rl.next.prev = rl.prev
	if b.head == rl {
		b.head = rl.next
	}
	rl.prev, rl.next = nil, nil
}
