package ioruntime

import "github.com/iceber/iouring-go"

// Request is the prepared kernel-op submission an op constructor
// produces and an OperationDescriptor carries until it is submitted.
// This is deliberately the io_uring library's own request type: the
// runtime core adds no wrapping policy of its own (spec §4.2).
type Request = iouring.PrepRequest

// The op constructors below are the thin, uniform I/O facade the
// runtime core's OperationDescriptor contract expects (§6): each
// produces a Request plus an OperationDescriptor ready for Task.Suspend.
// The individual wrappers for read/write/send/recv/accept/... themselves
// are out of scope for the core (§1); these exist so the scenarios in
// §8 (S1 echo, S2 fan-out, ...) have something concrete to suspend on.

// OpRead prepares a read of up to len(buf) bytes from fd into buf.
func OpRead(fd int, buf []byte) *OperationDescriptor {
	return &OperationDescriptor{request: iouring.Read(fd, buf)}
}

// OpWrite prepares a write of buf to fd.
func OpWrite(fd int, buf []byte) *OperationDescriptor {
	return &OperationDescriptor{request: iouring.Write(fd, buf)}
}

// OpRecv prepares a recv of up to len(buf) bytes from the socket fd.
func OpRecv(fd int, buf []byte) *OperationDescriptor {
	return &OperationDescriptor{request: iouring.Recv(fd, buf, 0)}
}

// OpSend prepares a send of buf on the socket fd.
func OpSend(fd int, buf []byte) *OperationDescriptor {
	return &OperationDescriptor{request: iouring.Send(fd, buf, 0)}
}

// OpAccept prepares an accept on the listening socket fd. The
// descriptor's storage for the peer address is owned by the caller's
// facade, per spec §6; the runtime core only relays the raw result (the
// new fd, or a negative errno).
func OpAccept(fd int) *OperationDescriptor {
	return &OperationDescriptor{request: iouring.Accept(fd)}
}

// OpClose prepares a close of fd. On success this yields Success(0) with
// no further return value, matching the "falls off the end on success"
// fix noted in SPEC_FULL.md §9: the caller gets a definite, if empty,
// success outcome rather than an unset one.
func OpClose(fd int) *OperationDescriptor {
	return &OperationDescriptor{request: iouring.Close(fd)}
}

// Read suspends the current Task until fd has data available, then
// resumes with Success(n) or Failure(*IoError).
func Read(fd int, buf []byte) Operation {
	return func(t *Task) StepResult {
		desc := OpRead(fd, buf)
		if err := t.Suspend(desc); err != nil {
			return End(Failure(err))
		}
		return Suspend(func(t *Task) StepResult {
			if t.CancelRequested() {
				return End(Failure(ErrCancelled))
			}
			return End(desc.Outcome("read"))
		})
	}
}

// Recv is the socket analogue of Read.
func Recv(fd int, buf []byte) Operation {
	return func(t *Task) StepResult {
		desc := OpRecv(fd, buf)
		if err := t.Suspend(desc); err != nil {
			return End(Failure(err))
		}
		return Suspend(func(t *Task) StepResult {
			if t.CancelRequested() {
				return End(Failure(ErrCancelled))
			}
			return End(desc.Outcome("recv"))
		})
	}
}
