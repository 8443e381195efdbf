//go:build !linux
// +build !linux

package memory

import "errors"

var errUnsupported = errors.New("fault tracer requires linux")

// Tracer is a placeholder on non-Linux platforms.
type Tracer struct{}

// NewTracer returns an error because eBPF is only supported on Linux.
func NewTracer(string) (*Tracer, error) {
	return nil, errUnsupported
}

// Snapshot always fails on unsupported platforms.
func (t *Tracer) Snapshot(int) (Summary, error) {
	return Summary{}, errUnsupported
}

// Reset does nothing on unsupported platforms.
func (t *Tracer) Reset() error {
	return nil
}

// Close is a no-op stub.
func (t *Tracer) Close() error {
	return nil
}
