package ioruntime

import "github.com/iceber/iouring-go"

// OperationDescriptor is the uniform shape for every I/O operation the
// runtime core suspends on: read, write, send, recv, accept, connect,
// close, fsetxattr, and so on. The descriptor carries no policy of its
// own; the Poller it is registered with is its only collaborator.
//
// A descriptor is allocated in place on the Task's suspension frame,
// registered with exactly one Poller, and released when the Task resumes
// past the suspension point — it never outlives that resume.
type OperationDescriptor struct {
	// request is the prepared kernel-op submission, produced by one of
	// the op constructors in ops.go.
	request Request

	// tag identifies this descriptor to the owning Poller's completion
	// dispatch. Assigned at Submit time.
	tag uint64

	// handle is the live iouring.Request SubmitRequest returned for this
	// descriptor's submission; a Poller-internal goroutine waits on its
	// Done channel and reads its result via GetRes. Unset until Submit.
	handle iouring.Request

	// result holds the raw kernel return once a completion has been
	// dispatched: >= 0 is a byte count / fd / unit success, < 0 is
	// -errno.
	result int32

	// task is the Task this descriptor will wake on completion. The
	// Poller's tag table references the descriptor only until its
	// completion is observed (the entry is deleted then), breaking the
	// Task<->Poller<->Task cycle by construction rather than by a
	// language-level weak pointer; this field itself is not cleared.
	task *Task

	// poller is the Poller this descriptor is (or was) registered with,
	// needed by Cancel to submit an IORING_OP_ASYNC_CANCEL for the tag.
	poller *Poller
}

// Cancelled reports whether this descriptor's raw result corresponds to
// a cancellation rather than an ordinary kernel error.
func (d *OperationDescriptor) Cancelled() bool {
	return d.result == -int32(cancelledErrno)
}

// Outcome interprets the descriptor's raw result per the contract in
// spec §4.2: non-negative is success (bytes transferred, a new fd, or
// unit depending on the op), negative is a system error whose kind is
// the negated value.
func (d *OperationDescriptor) Outcome(op string) Result {
	if d.result >= 0 {
		return Success(int(d.result))
	}
	return Failure(&IoError{Code: int(-d.result), Op: op})
}

// cancelledErrno is the errno IORING_OP_ASYNC_CANCEL posts against the
// cancelled operation's original completion (ECANCELED).
const cancelledErrno = 125
