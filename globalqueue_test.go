package ioruntime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlobalQueuePushPopFIFO(t *testing.T) {
	q := NewGlobalQueue()
	require.Nil(t, q.Pop())

	tasks := make([]*Task, 3)
	for i := range tasks {
		tasks[i] = NewTask(nil)
		q.Push(tasks[i])
	}
	require.Equal(t, 3, q.Len())

	for i := range tasks {
		require.Same(t, tasks[i], q.Pop())
	}
	require.Nil(t, q.Pop())
}

func TestGlobalQueueSpansMultipleChunks(t *testing.T) {
	q := NewGlobalQueue()
	const n = globalChunkSize*3 + 7
	tasks := make([]*Task, n)
	for i := range tasks {
		tasks[i] = NewTask(nil)
		q.Push(tasks[i])
	}
	require.Equal(t, n, q.Len())
	for i := range tasks {
		require.Same(t, tasks[i], q.Pop())
	}
	require.Equal(t, 0, q.Len())
}

func TestGlobalQueuePopBatch(t *testing.T) {
	q := NewGlobalQueue()
	for i := 0; i < 50; i++ {
		q.Push(NewTask(nil))
	}
	batch := q.PopBatch(32)
	require.Len(t, batch, 32)
	require.Equal(t, 18, q.Len())

	rest := q.PopBatch(32)
	require.Len(t, rest, 18)
	require.Empty(t, q.PopBatch(32))
}

func TestGlobalQueueConcurrentPushPopNoLoss(t *testing.T) {
	q := NewGlobalQueue()
	const producers = 8
	const perProducer = 500
	const total = producers * perProducer

	var wg sync.WaitGroup
	wg.Add(producers)
	for i := 0; i < producers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				q.Push(NewTask(nil))
			}
		}()
	}
	wg.Wait()

	require.Equal(t, total, q.Len())

	seen := 0
	var mu sync.Mutex
	var consumers sync.WaitGroup
	consumers.Add(4)
	for i := 0; i < 4; i++ {
		go func() {
			defer consumers.Done()
			for {
				t := q.Pop()
				if t == nil {
					return
				}
				mu.Lock()
				seen++
				mu.Unlock()
			}
		}()
	}
	consumers.Wait()

	require.Equal(t, total, seen, "concurrent producers/consumers must not lose or duplicate work")
}
