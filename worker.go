package ioruntime

import (
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// globalPullCeiling is an absolute upper bound on how many tasks a single
// global-queue visit pulls, regardless of what pullGlobal's ceil(len/N)
// share computes — a backstop against one worker draining an enormous
// queue in a single visit when few peers are running.
const globalPullCeiling = 128

// ioCompletionBudget bounds how many completions the fast path drains per
// tick; the park path drains without a bound.
const ioCompletionBudget = 64

// parkTimeout bounds how long a worker blocks in Park when it has no
// runnable work, so shutdown is always observed promptly.
const parkTimeout = 50 * time.Millisecond

// Worker is an OS-thread-pinned scheduler loop: it owns one LocalQueue
// and one Poller, and holds references to the shared GlobalQueue and to
// every peer's LocalQueue for stealing.
type Worker struct {
	id      int
	runtime *Runtime
	local   *LocalQueue
	poller  *Poller
	tick    uint64
	state   atomic.Uint64 // WorkerState
}

func newWorker(id int, rt *Runtime, poller *Poller) *Worker {
	return &Worker{
		id:      id,
		runtime: rt,
		local:   NewLocalQueue(),
		poller:  poller,
	}
}

// enqueueLocal pushes t onto this worker's LocalQueue and unparks it if
// it was parked. Returns false if the runtime has already shut this
// worker down.
func (w *Worker) enqueueLocal(t *Task) bool {
	if w.runtime.isShuttingDown() {
		return false
	}
	t.state.Store(TaskScheduled)
	if moved := w.local.PushBack(t, w.runtime.global); moved > 0 {
		w.runtime.logger().Overflow(w.id, moved)
	}
	w.poller.Unpark()
	return true
}

// run is the worker's main loop. It returns when the runtime's shutdown
// flag is observed and the worker has drained what it safely can.
func (w *Worker) run() {
	w.runtime.logger().WorkerStarted(w.id)
	defer w.runtime.logger().WorkerStopped(w.id)

	for {
		if w.runtime.isShuttingDown() {
			w.drainForShutdown()
			return
		}

		if w.runtime.metrics != nil {
			w.runtime.metrics.Queue.SetLocalDepth(w.id, w.local.Len())
		}

		// 1. Periodic non-blocking completion drain.
		if w.tick%uint64(w.runtime.config.checkIOInterval) == 0 {
			w.poller.DrainCompletions(ioCompletionBudget)
		}

		// 2. Periodic global-queue pull.
		if w.tick%uint64(w.runtime.config.checkGlobalInterval) == 0 {
			w.pullGlobal()
		}

		// 3. Pop local, else pull global, else steal.
		task := w.local.PopFront()
		if task == nil {
			w.pullGlobal()
			task = w.local.PopFront()
		}
		if task == nil {
			task = w.stealFromPeer()
		}

		// 4. Run to suspension or completion.
		if task != nil {
			w.runTask(task)
			w.tick++
			continue
		}

		// 5. Idle: park on the completion ring.
		w.poller.Park(parkTimeout)
		w.tick++
	}
}

// pullGlobal drains at most ceil(len/N) tasks from the GlobalQueue, N
// being the number of workers, so a single visit never claims more than
// this worker's fair share (spec §4.5).
func (w *Worker) pullGlobal() {
	n := w.runtime.global.Len()
	if n == 0 {
		return
	}
	numWorkers := len(w.runtime.workers)
	if numWorkers < 1 {
		numWorkers = 1
	}
	share := (n + numWorkers - 1) / numWorkers
	if share < 1 {
		share = 1
	}
	if share > globalPullCeiling {
		share = globalPullCeiling
	}

	batch := w.runtime.global.PopBatch(share)
	if w.runtime.metrics != nil {
		w.runtime.metrics.Queue.SetGlobalDepth(w.runtime.global.Len())
	}
	for _, t := range batch {
		t.state.Store(TaskScheduled)
		if moved := w.local.PushBack(t, w.runtime.global); moved > 0 {
			w.runtime.logger().Overflow(w.id, moved)
		}
	}
}

func (w *Worker) stealFromPeer() *Task {
	peers := w.runtime.workers
	if len(peers) <= 1 {
		return nil
	}
	start := rand.IntN(len(peers))
	for i := 0; i < len(peers); i++ {
		idx := (start + i) % len(peers)
		peer := peers[idx]
		if peer == w {
			continue
		}
		moved := peer.local.StealHalf(w.local)
		if w.runtime.metrics != nil {
			w.runtime.metrics.Steals.RecordAttempt(moved > 0)
		}
		w.runtime.logger().StealAttempt(w.id, peer.id, moved, moved > 0)
		if moved > 0 {
			return w.local.PopFront()
		}
	}
	return nil
}

func (w *Worker) runTask(t *Task) {
	t.state.Store(TaskRunning)
	start := time.Now()
	t.poll(w)
	if t.State().IsTerminal() {
		if w.runtime.metrics != nil {
			w.runtime.metrics.Completion.Record(time.Since(start))
			w.runtime.metrics.tps.Increment()
		}
		if perr, ok := t.result.Err.(*PanicError); ok {
			w.runtime.logger().TaskPanicked(w.id, t.id, perr)
		}
	}
}

// drainForShutdown resolves every task still queued on this worker's
// LocalQueue or on the GlobalQueue as cancelled, cancels every operation
// still in flight on this worker's Poller, and drains completions for up
// to 500ms so those cancellations reach their tasks, then returns so the
// worker's goroutine exits. See SPEC_FULL.md §9 for the "shutdown mid-I/O"
// decision this implements.
func (w *Worker) drainForShutdown() {
	w.state.Store(uint64(WorkerShutdown))
	for t := w.local.PopFront(); t != nil; t = w.local.PopFront() {
		t.complete(Failure(ErrCancelled), TaskCancelled)
	}
	for t := w.runtime.global.Pop(); t != nil; t = w.runtime.global.Pop() {
		t.complete(Failure(ErrCancelled), TaskCancelled)
	}
	inFlight := 0
	w.poller.tags.Range(func(tag, _ any) bool {
		w.poller.Cancel(tag.(uint64))
		inFlight++
		return true
	})
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		n := w.poller.DrainCompletions(ioCompletionBudget)
		inFlight -= n
		if n == 0 && inFlight <= 0 {
			break
		}
	}
	_ = w.poller.Close()
}
