//go:build linux
// +build linux

package engine

import (
	"os"

	"golang.org/x/sys/unix"
)

var stopSignals = []os.Signal{
	unix.SIGHUP, unix.SIGINT, unix.SIGQUIT, unix.SIGTERM,
	unix.SIGUSR1, unix.SIGUSR2, unix.SIGXCPU, unix.SIGXFSZ,
	unix.SIGPWR, unix.SIGVTALRM,
}

var resizeSignals = []os.Signal{unix.SIGWINCH}

// PollKey returns one pending byte from fd without blocking.
func PollKey(fd int) (byte, bool) {
	n, err := unix.IoctlGetInt(fd, unix.TIOCINQ)
	if err != nil || n <= 0 {
		return 0, false
	}
	var buf [1]byte
	if r, err := unix.Read(fd, buf[:]); err != nil || r != 1 {
		return 0, false
	}
	return buf[0], true
}
