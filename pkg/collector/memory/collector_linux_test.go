//go:build linux

package memory

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"testing"

	"github.com/cilium/ebpf"
)

func TestCountFaultsAssembles(t *testing.T) {
	insns := countFaults(3)

	jump := -1
	for i, ins := range insns {
		if ins.Reference() == "first" {
			jump = i
		}
	}
	if jump < 0 {
		t.Fatalf("no jump to the first-fault branch")
	}

	var buf bytes.Buffer
	if err := insns.Marshal(&buf, binary.LittleEndian); err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if uint64(buf.Len()) != insns.Size() {
		t.Fatalf("expected %d bytes, got %d", insns.Size(), buf.Len())
	}

	// the map lookup's NULL check skips the five raw slots of the xadd path
	if off := insns[jump].Offset; off != 4 {
		t.Fatalf("expected jump offset 4 to the first-fault branch, got %d", off)
	}
}

func TestTracerCountsOwnFaults(t *testing.T) {
	tr, err := NewTracer(DefaultProcRoot)
	if errors.Is(err, ebpf.ErrNotSupported) || errors.Is(err, os.ErrPermission) || errors.Is(err, os.ErrNotExist) {
		t.Skipf("loading the fault tracer needs CAP_BPF and kprobes: %v", err)
	}
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}
	defer tr.Close()

	mem := make([]byte, 8<<20)
	for i := 0; i < len(mem); i += os.Getpagesize() {
		mem[i] = 1
	}

	sum, err := tr.Snapshot(1)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if sum.Total == 0 || len(sum.Top) != 1 {
		t.Fatalf("expected traced faults after touching fresh memory, got %+v", sum)
	}
	if err := tr.Reset(); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
}
