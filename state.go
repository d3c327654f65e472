package ioruntime

import (
	"sync/atomic"
)

// TaskState is one state of a Task's lifecycle.
//
//	Idle ──spawn──▶ Scheduled ──pop──▶ Running ──suspend──▶ SuspendedOnIO
//	                   ▲                   │                     │
//	                   └───── wake ────────┼─────────────────────┘
//	                                       └──complete──▶ Completed / Cancelled
//
// The state is held in a [FastState]. Task.wake moves SuspendedOnIO to
// Scheduled with an atomic CAS ([FastState.TryTransition]) so only one
// waker wins; the other transitions are atomic stores. Completed and
// Cancelled are terminal and monotonic — a resume after either is a no-op.
type TaskState uint64

const (
	// TaskIdle is the state of a Task before it has been spawned.
	TaskIdle TaskState = 0
	// TaskScheduled indicates the Task holds a slot in a queue awaiting a
	// Worker to pop it.
	TaskScheduled TaskState = 1
	// TaskRunning indicates the Task is bound to a Worker's current frame.
	TaskRunning TaskState = 2
	// TaskSuspendedOnIO indicates the Task has registered an
	// OperationDescriptor with a Poller and is parked on its waker.
	TaskSuspendedOnIO TaskState = 3
	// TaskCompleted is terminal: the Task's computation ran to completion.
	TaskCompleted TaskState = 4
	// TaskCancelled is terminal: the Task observed a cancellation flag and
	// short-circuited.
	TaskCancelled TaskState = 5
)

// String returns a human-readable representation of the state.
func (s TaskState) String() string {
	switch s {
	case TaskIdle:
		return "Idle"
	case TaskScheduled:
		return "Scheduled"
	case TaskRunning:
		return "Running"
	case TaskSuspendedOnIO:
		return "SuspendedOnIO"
	case TaskCompleted:
		return "Completed"
	case TaskCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether s is Completed or Cancelled.
func (s TaskState) IsTerminal() bool {
	return s == TaskCompleted || s == TaskCancelled
}

// FastState is a lock-free state machine with cache-line padding, used
// for Task state tracking.
type FastState struct { // betteralign:ignore
	_ [64]byte      // cache line padding
	v atomic.Uint64 // state value
	_ [56]byte      // pad to complete cache line
}

// NewFastState creates a new state machine holding the given initial state.
func NewFastState(initial TaskState) *FastState {
	s := &FastState{}
	s.v.Store(uint64(initial))
	return s
}

// Load returns the current state atomically.
func (s *FastState) Load() TaskState {
	return TaskState(s.v.Load())
}

// Store atomically stores a new state, bypassing CAS validation. Only
// safe for the initial transition into a state a concurrent reader cannot
// yet observe.
func (s *FastState) Store(state TaskState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically transition from one state to
// another. Returns true if the transition was successful.
func (s *FastState) TryTransition(from, to TaskState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// TransitionAny attempts to transition from any of validFrom to the
// target, returning true on the first successful CAS.
func (s *FastState) TransitionAny(validFrom []TaskState, to TaskState) bool {
	for _, from := range validFrom {
		if s.v.CompareAndSwap(uint64(from), uint64(to)) {
			return true
		}
	}
	return false
}

// WorkerState mirrors a Worker's coarse activity. A Worker starts in
// WorkerRunning and stores WorkerShutdown when it begins its shutdown
// drain; the run loop does not record WorkerParked, and the park/unpark
// path does not consult this value.
type WorkerState uint64

const (
	// WorkerRunning indicates the worker is actively popping and driving
	// tasks.
	WorkerRunning WorkerState = 0
	// WorkerParked indicates the worker has flushed its poller and is
	// blocked awaiting a completion, unpark, or shutdown signal.
	WorkerParked WorkerState = 1
	// WorkerShutdown indicates the worker has observed the runtime
	// shutdown flag and is draining before exit.
	WorkerShutdown WorkerState = 2
)

// String returns a human-readable representation of the state.
func (s WorkerState) String() string {
	switch s {
	case WorkerRunning:
		return "Running"
	case WorkerParked:
		return "Parked"
	case WorkerShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}
