//go:build !linux

package memory

import (
	"errors"
	"testing"
)

func TestStubTracerBehavior(t *testing.T) {
	if _, err := NewTracer(DefaultProcRoot); !errors.Is(err, errUnsupported) {
		t.Fatalf("expected errUnsupported, got %v", err)
	}

	var tr Tracer
	if sum, err := tr.Snapshot(5); err != errUnsupported || sum.Total != 0 || sum.Top != nil {
		t.Fatalf("snapshot should fail with errUnsupported, got summary=%+v err=%v", sum, err)
	}

	if err := tr.Reset(); err != nil {
		t.Fatalf("reset should no-op, got %v", err)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("close should no-op, got %v", err)
	}
}
