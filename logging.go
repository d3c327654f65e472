// logging.go - structured logging for the runtime core.
//
// The runtime logs through github.com/joeycumines/logiface rather than a
// hand-rolled formatter, so any backend logiface supports (zerolog, logrus,
// slog, stumpy) can be attached without touching this package.

package ioruntime

import (
	"github.com/joeycumines/logiface"
)

// Logger is the structured-logging surface the runtime core writes to.
// It groups the small set of domain events a Worker or Poller emits;
// callers construct one by wrapping a *logiface.Logger[logiface.Event]
// with NewLogifaceLogger, or supply NoOpLogger{} (the default).
type Logger interface {
	WorkerStarted(worker int)
	WorkerStopped(worker int)
	StealAttempt(thief, victim int, moved int, ok bool)
	Overflow(worker int, moved int)
	SubmissionFull(worker int, tag uint64)
	TaskPanicked(worker int, taskID uint64, err error)
	PollError(worker int, err error)
}

// NoOpLogger discards every event. It is the default when no Option
// supplies a Logger.
type NoOpLogger struct{}

func (NoOpLogger) WorkerStarted(int)                    {}
func (NoOpLogger) WorkerStopped(int)                    {}
func (NoOpLogger) StealAttempt(int, int, int, bool)     {}
func (NoOpLogger) Overflow(int, int)                    {}
func (NoOpLogger) SubmissionFull(int, uint64)           {}
func (NoOpLogger) TaskPanicked(int, uint64, error)      {}
func (NoOpLogger) PollError(int, error)                 {}

// logifaceLogger adapts a *logiface.Logger[logiface.Event] to Logger.
type logifaceLogger struct {
	log *logiface.Logger[logiface.Event]
}

// NewLogifaceLogger wraps an existing logiface logger for use as the
// runtime's structured logger.
func NewLogifaceLogger(log *logiface.Logger[logiface.Event]) Logger {
	return &logifaceLogger{log: log}
}

func (l *logifaceLogger) WorkerStarted(worker int) {
	l.log.Info().Int("worker", worker).Log("worker started")
}

func (l *logifaceLogger) WorkerStopped(worker int) {
	l.log.Info().Int("worker", worker).Log("worker stopped")
}

func (l *logifaceLogger) StealAttempt(thief, victim, moved int, ok bool) {
	b := l.log.Debug().Int("thief", thief).Int("victim", victim).Int("moved", moved)
	if ok {
		b.Log("steal succeeded")
	} else {
		b.Log("steal failed")
	}
}

func (l *logifaceLogger) Overflow(worker, moved int) {
	l.log.Debug().Int("worker", worker).Int("moved", moved).Log("local queue overflow")
}

func (l *logifaceLogger) SubmissionFull(worker int, tag uint64) {
	l.log.Warning().Int("worker", worker).Int("tag", int(tag)).Log("submission ring full")
}

func (l *logifaceLogger) TaskPanicked(worker int, taskID uint64, err error) {
	l.log.Err().Err(err).Int("worker", worker).Int("task", int(taskID)).Log("task panicked")
}

func (l *logifaceLogger) PollError(worker int, err error) {
	l.log.Err().Err(err).Int("worker", worker).Log("poll error")
}
