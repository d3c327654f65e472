package ioruntime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueDepthSetGet(t *testing.T) {
	var q QueueDepth
	require.Equal(t, 0, q.LocalDepth())
	require.Equal(t, 0, q.GlobalDepth())

	q.SetLocalDepth(0, 12)
	q.SetGlobalDepth(7)
	require.Equal(t, 12, q.LocalDepth())
	require.Equal(t, 7, q.GlobalDepth())
}

func TestQueueDepthLocalDepthSumsAllWorkers(t *testing.T) {
	var q QueueDepth
	q.SetLocalDepth(0, 5)
	q.SetLocalDepth(1, 7)
	require.Equal(t, 12, q.LocalDepth())

	q.SetLocalDepth(0, 2)
	require.Equal(t, 9, q.LocalDepth(), "the most recent value per worker replaces, not adds to, its prior one")
}

func TestStealCountersRecordAttempt(t *testing.T) {
	var s StealCounters
	s.RecordAttempt(true)
	s.RecordAttempt(false)
	s.RecordAttempt(true)

	require.Equal(t, int64(3), s.attempts.Load())
	require.Equal(t, int64(2), s.successes.Load())
}

func TestCompletionLatencyRecordFeedsQuantiles(t *testing.T) {
	c := newCompletionLatency()
	for i := 1; i <= 200; i++ {
		c.Record(time.Duration(i) * time.Millisecond)
	}
	require.Equal(t, 200, c.q.Count())
	require.Greater(t, c.q.Quantile(3), c.q.Quantile(0), "p99 must exceed p50 for a monotonically increasing sample")
}

func TestMetricsSampleReflectsRecordedActivity(t *testing.T) {
	m := newMetrics()
	m.Completion.Record(5 * time.Millisecond)
	m.Queue.SetLocalDepth(0, 3)
	m.Queue.SetGlobalDepth(9)
	m.Steals.RecordAttempt(true)
	m.tps.Increment()

	snap := m.Sample()
	require.Equal(t, 1, snap.Completions)
	require.Equal(t, 3, snap.LocalDepth)
	require.Equal(t, 9, snap.GlobalDepth)
	require.EqualValues(t, 1, snap.StealAttempts)
	require.EqualValues(t, 1, snap.StealSuccesses)
	require.Positive(t, snap.TasksPerSecond)
}

func TestTPSCounterRotatesOutOldBuckets(t *testing.T) {
	c := NewTPSCounter(200*time.Millisecond, 50*time.Millisecond)
	c.Increment()
	c.Increment()
	require.Positive(t, c.TPS())

	time.Sleep(300 * time.Millisecond)
	require.Zero(t, c.TPS(), "buckets older than the whole window must be rotated away")
}
