package ioruntime

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIoErrorUnwrapsToErrno(t *testing.T) {
	err := &IoError{Code: int(syscall.ENOENT), Op: "open"}
	require.ErrorIs(t, err, syscall.ENOENT)
	require.Contains(t, err.Error(), "open")
}

func TestIoErrorWithoutOp(t *testing.T) {
	err := &IoError{Code: int(syscall.EAGAIN)}
	require.NotContains(t, err.Error(), ": :")
	require.ErrorIs(t, err, syscall.EAGAIN)
}

func TestPanicErrorUnwrapsErrorValue(t *testing.T) {
	cause := errors.New("cause")
	err := &PanicError{Value: cause}
	require.ErrorIs(t, err, cause)
}

func TestPanicErrorNonErrorValueDoesNotUnwrap(t *testing.T) {
	err := &PanicError{Value: "not an error"}
	require.Nil(t, errors.Unwrap(err))
	require.Contains(t, err.Error(), "not an error")
}

func TestWrapErrorPreservesCauseChain(t *testing.T) {
	cause := ErrPollerClosed
	wrapped := WrapError("submit", cause)
	require.ErrorIs(t, wrapped, cause)
	require.Contains(t, wrapped.Error(), "submit")
}
