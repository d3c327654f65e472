//go:build linux

package ioruntime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateWakeFdSucceeds(t *testing.T) {
	fd, _, err := createWakeFd(0, EFD_CLOEXEC|EFD_NONBLOCK)
	require.NoError(t, err)
	require.GreaterOrEqual(t, fd, 0)
	defer closeFD(fd)
}

func TestWriteFDWakesReadFD(t *testing.T) {
	fd, _, err := createWakeFd(0, EFD_NONBLOCK)
	require.NoError(t, err)
	defer closeFD(fd)

	buf := make([]byte, 8)
	buf[0] = 1
	n, err := writeFD(fd, buf)
	require.NoError(t, err)
	require.Equal(t, 8, n)

	got := make([]byte, 8)
	n, err = readFD(fd, got)
	require.NoError(t, err)
	require.Equal(t, 8, n)
}
