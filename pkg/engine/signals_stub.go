//go:build !linux
// +build !linux

package engine

import "os"

var stopSignals = []os.Signal{os.Interrupt}

var resizeSignals []os.Signal

// PollKey is unsupported off linux and never reports a key.
func PollKey(int) (byte, bool) {
	return 0, false
}
