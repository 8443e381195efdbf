//go:build linux
// +build linux

package faults

import "golang.org/x/sys/unix"

// pgidOf allows tests to stub the process-group lookup used to spot kernel threads.
var pgidOf = unix.Getpgid
