// Package ioruntime is a Linux-only, multi-threaded, work-stealing runtime
// core for io_uring-backed asynchronous I/O.
//
// # Architecture
//
// A [Runtime] owns a fixed set of [Worker]s, each pinned to one OS thread
// and each holding a private [LocalQueue] and a private [Poller]. Application
// code calls [Runtime.Spawn] to place a [Task] on a queue; a Worker pops it,
// drives it to a suspension point or to completion, and — for suspensions —
// registers an [OperationDescriptor] with its Poller before parking. Kernel
// completions wake the exact Task that requested them. [Runtime.Spawn]
// enqueues locally when the caller is itself running on a worker goroutine,
// and on the shared [GlobalQueue] otherwise.
//
// # Platform Support
//
// This module targets Linux and io_uring exclusively; there is no
// kqueue/IOCP/Windows fallback and none is planned.
//
// # Thread Safety
//
// [Runtime.Spawn] is safe from any goroutine. A [LocalQueue] is
// single-owner for push/pop and lock-free for peer steals. The
// [GlobalQueue] is internally synchronized MPMC. A [Poller] is owned
// exclusively by its Worker save for its cross-thread unpark channel.
//
// # Execution Model
//
// Each Worker's tick, in order: drain I/O completions (periodically),
// pull from the global queue (periodically), pop or steal a task, run it
// to suspension or completion, and park on the completion ring when idle.
// See the Worker type for the exact interval semantics.
//
// # Usage
//
//	rt, err := ioruntime.Start(ioruntime.WithNumWorkers(4))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Shutdown(context.Background())
//
//	handle := rt.Spawn(func(t *ioruntime.Task) ioruntime.StepResult {
//	    return ioruntime.End(ioruntime.Success(nil))
//	})
//
//	result, err := handle.Await(context.Background())
//
// # Error Types
//
// The package surfaces four error kinds: [IoError] (a raw negative kernel
// return), [ErrSubmissionFull], [ErrCancelled], and [ErrRuntimeShutdown].
// All support [errors.Is]/[errors.As] through their cause chains.
package ioruntime
