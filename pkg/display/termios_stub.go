//go:build !linux
// +build !linux

package display

import "errors"

func rawInput(int) (func() error, error) {
	return nil, errors.New("interactive mode is only supported on linux")
}
