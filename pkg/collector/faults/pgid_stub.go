//go:build !linux
// +build !linux

package faults

import "errors"

var errUnsupported = errors.New("process groups require linux")

// pgidOf always fails on unsupported platforms so no process is treated as a kernel thread.
var pgidOf = func(pid int) (int, error) {
	return 0, errUnsupported
}
