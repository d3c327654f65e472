package ioruntime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalQueuePushPopFIFO(t *testing.T) {
	q := NewLocalQueue()
	global := NewGlobalQueue()

	tasks := make([]*Task, 5)
	for i := range tasks {
		tasks[i] = NewTask(nil)
		q.PushBack(tasks[i], global)
	}
	require.Equal(t, 5, q.Len())

	for i := range tasks {
		got := q.PopFront()
		require.Same(t, tasks[i], got, "PopFront must return tasks in FIFO order")
	}
	require.Nil(t, q.PopFront())
	require.Equal(t, 0, q.Len())
	require.Equal(t, 0, global.Len(), "no overflow should have occurred below capacity")
}

// TestLocalQueueOverflowInvariant is scenario S4 and testable property 5:
// right after the push that overflows, the local queue holds at most
// LOCAL_QUEUE_CAPACITY/2 + 1 items; after all 300 pushes it holds at most
// LOCAL_QUEUE_CAPACITY, and the rest land on the GlobalQueue.
func TestLocalQueueOverflowInvariant(t *testing.T) {
	q := NewLocalQueue()
	global := NewGlobalQueue()

	const n = 300
	for i := 0; i < n; i++ {
		q.PushBack(NewTask(nil), global)
		if i == LocalQueueCapacity {
			require.LessOrEqual(t, q.Len(), LocalQueueCapacity/2+1)
		}
	}

	require.LessOrEqual(t, q.Len(), LocalQueueCapacity)
	require.GreaterOrEqual(t, global.Len(), 44)
	require.Equal(t, n, q.Len()+global.Len(), "queue conservation: nothing lost across overflow")
}

// TestLocalQueueStealHalfCorrectness is testable property 4: after a
// successful steal of k tasks, the victim shrinks by k, the thief grows by
// k, and no task is duplicated or lost.
func TestLocalQueueStealHalfCorrectness(t *testing.T) {
	victim := NewLocalQueue()
	thief := NewLocalQueue()
	global := NewGlobalQueue()

	const n = 10
	want := make(map[*Task]bool, n)
	for i := 0; i < n; i++ {
		task := NewTask(nil)
		want[task] = true
		victim.PushBack(task, global)
	}

	before := victim.Len()
	moved := victim.StealHalf(thief)
	require.Positive(t, moved)
	require.Equal(t, before-moved, victim.Len())
	require.Equal(t, moved, thief.Len())

	seen := make(map[*Task]bool, n)
	for task := victim.PopFront(); task != nil; task = victim.PopFront() {
		require.False(t, seen[task], "task duplicated across victim/thief")
		seen[task] = true
	}
	for task := thief.PopFront(); task != nil; task = thief.PopFront() {
		require.False(t, seen[task], "task duplicated across victim/thief")
		seen[task] = true
	}
	require.Equal(t, want, seen, "steal must neither lose nor duplicate tasks")
}

func TestLocalQueueStealHalfOnEmptyIsNoop(t *testing.T) {
	victim := NewLocalQueue()
	thief := NewLocalQueue()
	require.Equal(t, 0, victim.StealHalf(thief))
	require.Equal(t, 0, thief.Len())
}

func TestLocalQueueConcurrentStealDoesNotDuplicate(t *testing.T) {
	victim := NewLocalQueue()
	global := NewGlobalQueue()

	const n = 200
	planted := make(map[*Task]bool, n)
	for i := 0; i < n; i++ {
		task := NewTask(nil)
		planted[task] = true
		victim.PushBack(task, global)
	}

	const thieves = 8
	dests := make([]*LocalQueue, thieves)
	for i := range dests {
		dests[i] = NewLocalQueue()
	}

	var wg sync.WaitGroup
	wg.Add(thieves)
	for i := 0; i < thieves; i++ {
		dest := dests[i]
		go func() {
			defer wg.Done()
			victim.StealHalf(dest)
		}()
	}
	wg.Wait()

	seen := make(map[*Task]bool, n)
	drain := func(q *LocalQueue) {
		for task := q.PopFront(); task != nil; task = q.PopFront() {
			require.False(t, seen[task], "concurrent steals duplicated a task")
			require.True(t, planted[task], "steal produced an unplanted task")
			seen[task] = true
		}
	}
	for _, dest := range dests {
		drain(dest)
	}
	drain(victim)

	require.Len(t, seen, n, "concurrent steals must not lose any task")
}
