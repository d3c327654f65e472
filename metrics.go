package ioruntime

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks runtime statistics, attached via WithMetrics(true) and
// read with Runtime.Metrics. All methods are safe for concurrent use.
type Metrics struct {
	Completion CompletionLatency
	Queue      QueueDepth
	Steals     StealCounters
	tps        *TPSCounter
}

// newMetrics constructs an empty Metrics with a 10s/100ms TPS window.
func newMetrics() *Metrics {
	return &Metrics{
		Completion: newCompletionLatency(),
		tps:        NewTPSCounter(10*time.Second, 100*time.Millisecond),
	}
}

// Snapshot is a point-in-time, copyable view of Metrics.
type Snapshot struct {
	P50, P90, P95, P99, Max time.Duration
	Mean                    time.Duration
	Completions             int
	LocalDepth              int
	GlobalDepth             int
	StealAttempts           int64
	StealSuccesses          int64
	TasksPerSecond          float64
}

// Sample computes and returns a Snapshot from the current metrics state.
func (m *Metrics) Sample() Snapshot {
	lat := m.Completion.Snapshot()
	return Snapshot{
		P50:            lat.p50,
		P90:            lat.p90,
		P95:            lat.p95,
		P99:            lat.p99,
		Max:            lat.max,
		Mean:           lat.mean,
		Completions:    lat.count,
		LocalDepth:     m.Queue.LocalDepth(),
		GlobalDepth:    m.Queue.GlobalDepth(),
		StealAttempts:  m.Steals.attempts.Load(),
		StealSuccesses: m.Steals.successes.Load(),
		TasksPerSecond: m.tps.TPS(),
	}
}

func durationOf(ns float64) time.Duration {
	return time.Duration(ns)
}

// CompletionLatency tracks the distribution of task-completion latency
// using a streaming multi-quantile estimator (P50/P90/P95/P99), avoiding
// full sample retention on the completion path.
type CompletionLatency struct {
	mu sync.Mutex
	q  *pSquareMultiQuantile
}

func newCompletionLatency() CompletionLatency {
	return CompletionLatency{q: newPSquareMultiQuantile(0.50, 0.90, 0.95, 0.99)}
}

// Record adds a completion-latency observation.
func (c *CompletionLatency) Record(d time.Duration) {
	c.mu.Lock()
	c.q.Update(float64(d))
	c.mu.Unlock()
}

// completionLatencySnapshot is a point-in-time read of the estimator,
// taken under lock so it never races Record.
type completionLatencySnapshot struct {
	p50, p90, p95, p99, max, mean time.Duration
	count                         int
}

// Snapshot reads every quantile plus count under c.mu, so it never races
// a concurrent Record on the same completion path.
func (c *CompletionLatency) Snapshot() completionLatencySnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return completionLatencySnapshot{
		p50:   durationOf(c.q.Quantile(0)),
		p90:   durationOf(c.q.Quantile(1)),
		p95:   durationOf(c.q.Quantile(2)),
		p99:   durationOf(c.q.Quantile(3)),
		max:   durationOf(c.q.Max()),
		mean:  durationOf(c.q.Mean()),
		count: c.q.Count(),
	}
}

// QueueDepth tracks per-worker local queue and shared global queue
// occupancy.
type QueueDepth struct {
	local  sync.Map // int worker id -> *atomic.Int64
	global atomic.Int64
}

// SetLocalDepth records worker's current local queue length, sampled by
// that Worker after its main-loop tick. LocalDepth sums every worker's
// most recently recorded value.
func (q *QueueDepth) SetLocalDepth(worker, n int) {
	v, _ := q.local.LoadOrStore(worker, new(atomic.Int64))
	v.(*atomic.Int64).Store(int64(n))
}

// SetGlobalDepth records the current global queue length.
func (q *QueueDepth) SetGlobalDepth(n int) { q.global.Store(int64(n)) }

// LocalDepth returns the sum of every worker's most recently recorded
// local depth.
func (q *QueueDepth) LocalDepth() int {
	sum := 0
	q.local.Range(func(_, v any) bool {
		sum += int(v.(*atomic.Int64).Load())
		return true
	})
	return sum
}

// GlobalDepth returns the most recently recorded global depth.
func (q *QueueDepth) GlobalDepth() int { return int(q.global.Load()) }

// StealCounters tracks work-stealing attempts and successes across all
// workers.
type StealCounters struct {
	attempts  atomic.Int64
	successes atomic.Int64
}

// RecordAttempt records a steal attempt and whether it moved any tasks.
func (s *StealCounters) RecordAttempt(ok bool) {
	s.attempts.Add(1)
	if ok {
		s.successes.Add(1)
	}
}

// TPSCounter tracks tasks completed per second with a rolling window.
type TPSCounter struct {
	lastRotation atomic.Value // time.Time
	buckets      []int64
	bucketSize   time.Duration
	windowSize   time.Duration
	mu           sync.Mutex
}

// NewTPSCounter creates a counter with the given rolling window and
// bucket granularity.
func NewTPSCounter(windowSize, bucketSize time.Duration) *TPSCounter {
	bucketCount := int(windowSize / bucketSize)
	if bucketCount < 1 {
		bucketCount = 1
	}
	c := &TPSCounter{
		buckets:    make([]int64, bucketCount),
		bucketSize: bucketSize,
		windowSize: windowSize,
	}
	c.lastRotation.Store(time.Now())
	return c
}

// Increment records one completed task.
func (t *TPSCounter) Increment() {
	t.rotate()
	t.mu.Lock()
	t.buckets[len(t.buckets)-1]++
	t.mu.Unlock()
}

func (t *TPSCounter) rotate() {
	now := time.Now()
	last := t.lastRotation.Load().(time.Time)
	elapsed := now.Sub(last)
	advance := int(elapsed / t.bucketSize)

	if advance >= len(t.buckets) {
		t.mu.Lock()
		for i := range t.buckets {
			t.buckets[i] = 0
		}
		t.mu.Unlock()
		t.lastRotation.Store(now)
		return
	}

	if advance > 0 {
		t.mu.Lock()
		copy(t.buckets, t.buckets[advance:])
		for i := len(t.buckets) - advance; i < len(t.buckets); i++ {
			t.buckets[i] = 0
		}
		t.mu.Unlock()
		t.lastRotation.Store(last.Add(time.Duration(advance) * t.bucketSize))
	}
}

// TPS returns the current tasks-per-second rate.
func (t *TPSCounter) TPS() float64 {
	t.rotate()
	t.mu.Lock()
	var sum int64
	for _, c := range t.buckets {
		sum += c
	}
	t.mu.Unlock()
	if sum == 0 {
		return 0
	}
	return float64(sum) / t.windowSize.Seconds()
}
