package ioruntime

import (
	"bytes"
	goruntime "runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"context"
)

// Runtime is the process-wide, once-initialized scheduler: it starts N
// workers, exposes Spawn and BlockOn, and coordinates shutdown.
type Runtime struct {
	config *config
	global *GlobalQueue
	workers []*Worker

	// workerByGoroutine lets Spawn discover "am I already running inside
	// a worker" without threading a context parameter through every
	// call site — the same goroutine-id-sniffing trick the teacher uses
	// for its loop-thread check, since Go has no first-class TLS.
	workerByGoroutine sync.Map // uint64 goroutine id -> *Worker

	metrics *Metrics
	log     Logger

	shuttingDown atomic.Bool
	stopped      sync.WaitGroup
}

// Start launches num_workers workers (default: GOMAXPROCS) and returns
// immediately; each worker runs its main loop on its own, OS-thread
// pinned goroutine.
func Start(opts ...Option) (*Runtime, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		config: cfg,
		global: NewGlobalQueue(),
		log:    cfg.logger,
	}
	if cfg.metricsEnabled {
		rt.metrics = newMetrics()
	}

	rt.workers = make([]*Worker, cfg.numWorkers)
	for i := 0; i < cfg.numWorkers; i++ {
		poller, err := newPoller(cfg.ringEntries, cfg.ioUringFlags, cfg.fixedFiles)
		if err != nil {
			for j := 0; j < i; j++ {
				_ = rt.workers[j].poller.Close()
			}
			return nil, err
		}
		rt.workers[i] = newWorker(i, rt, poller)
	}

	rt.stopped.Add(len(rt.workers))
	for _, w := range rt.workers {
		w := w
		go func() {
			defer rt.stopped.Done()
			goruntime.LockOSThread()
			defer goruntime.UnlockOSThread()
			rt.workerByGoroutine.Store(currentGoroutineID(), w)
			defer rt.workerByGoroutine.Delete(currentGoroutineID())
			w.run()
		}()
	}

	return rt, nil
}

// Spawn allocates a Task around op and schedules it: locally, with
// overflow, if the caller is itself running inside a worker; otherwise
// on the GlobalQueue, waking one worker. Returns a JoinHandle.
func (rt *Runtime) Spawn(op Operation) *JoinHandle {
	t := NewTask(op)

	if rt.isShuttingDown() {
		t.complete(Failure(ErrRuntimeShutdown), TaskCancelled)
		return &JoinHandle{task: t}
	}

	t.state.Store(TaskScheduled)
	if w, ok := rt.currentWorker(); ok {
		if moved := w.local.PushBack(t, rt.global); moved > 0 {
			w.runtime.logger().Overflow(w.id, moved)
		}
		t.home = w
		return &JoinHandle{task: t}
	}

	rt.global.Push(t)
	if len(rt.workers) > 0 {
		rt.workers[0].poller.Unpark()
	}
	return &JoinHandle{task: t}
}

// BlockOn spawns op and blocks until it reaches a terminal state or ctx
// is done, returning its Result.
func (rt *Runtime) BlockOn(ctx context.Context, op Operation) (Result, error) {
	return rt.Spawn(op).Await(ctx)
}

// Shutdown sets the shutdown flag and unparks every worker; each worker
// cancels its outstanding tasks and drains for safety before exiting.
// Shutdown blocks until every worker has exited or ctx is done.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	if !rt.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}
	for _, w := range rt.workers {
		w.poller.Unpark()
	}

	done := make(chan struct{})
	go func() {
		rt.stopped.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Metrics returns a snapshot of runtime metrics, and false if
// WithMetrics(true) was not supplied at Start.
func (rt *Runtime) Metrics() (Snapshot, bool) {
	if rt.metrics == nil {
		return Snapshot{}, false
	}
	return rt.metrics.Sample(), true
}

func (rt *Runtime) isShuttingDown() bool {
	return rt.shuttingDown.Load()
}

func (rt *Runtime) logger() Logger {
	if rt.log == nil {
		return NoOpLogger{}
	}
	return rt.log
}

func (rt *Runtime) currentWorker() (*Worker, bool) {
	v, ok := rt.workerByGoroutine.Load(currentGoroutineID())
	if !ok {
		return nil, false
	}
	return v.(*Worker), true
}

// currentGoroutineID extracts the calling goroutine's id by parsing the
// header line of its own stack trace. This is the same trick the
// teacher's event loop uses to detect "am I on the loop goroutine",
// since Go deliberately exposes no first-class goroutine-local storage.
func currentGoroutineID() uint64 {
	buf := make([]byte, 64)
	n := goruntime.Stack(buf, false)
	buf = buf[:n]

	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return 0
	}
	buf = buf[len(prefix):]
	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
