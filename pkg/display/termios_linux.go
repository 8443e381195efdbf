//go:build linux
// +build linux

package display

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// rawInput disables echo and line buffering on fd and makes reads return
// immediately. The returned func restores the previous settings.
func rawInput(fd int) (func() error, error) {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("get termios: %w", err)
	}
	saved := *termios

	termios.Lflag &^= unix.ECHO | unix.ICANON
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return nil, fmt.Errorf("set termios: %w", err)
	}

	return func() error {
		return unix.IoctlSetTermios(fd, unix.TCSETS, &saved)
	}, nil
}
