//go:build linux
// +build linux

package memory

import (
	"errors"
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/asm"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/rlimit"
)

const (
	resetSweepRetries = 3
	maxTrackedPIDs    = 16384
)

// Tracer owns the eBPF program counting page faults per process.
type Tracer struct {
	counts *ebpf.Map
	prog   *ebpf.Program
	hook   link.Link
	root   string
	names  map[uint32]string
}

// NewTracer loads the fault counter and attaches it to handle_mm_fault.
// Names of traced pids are read below procRoot. It needs CAP_BPF or root.
func NewTracer(procRoot string) (*Tracer, error) {
	if procRoot == "" {
		procRoot = DefaultProcRoot
	}
	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, fmt.Errorf("raising memlock rlimit: %w", err)
	}

	counts, err := ebpf.NewMap(&ebpf.MapSpec{
		Name:       "fault_counts",
		Type:       ebpf.Hash,
		KeySize:    4,
		ValueSize:  8,
		MaxEntries: maxTrackedPIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fault count map: %w", err)
	}

	prog, err := ebpf.NewProgram(&ebpf.ProgramSpec{
		Name:         "count_faults",
		Type:         ebpf.Kprobe,
		License:      "GPL",
		Instructions: countFaults(counts.FD()),
	})
	if err != nil {
		counts.Close()
		return nil, fmt.Errorf("loading fault counter: %w", err)
	}

	kp, err := link.Kprobe("handle_mm_fault", prog, nil)
	if err != nil {
		prog.Close()
		counts.Close()
		return nil, fmt.Errorf("attaching handle_mm_fault kprobe failed: %w", err)
	}

	return &Tracer{counts: counts, prog: prog, hook: kp, root: procRoot}, nil
}

// countFaults increments counts[tgid] on every call.
func countFaults(mapFD int) asm.Instructions {
	return asm.Instructions{
		asm.FnGetCurrentPidTgid.Call(),
		asm.RSh.Imm(asm.R0, 32),
		asm.StoreMem(asm.RFP, -4, asm.R0, asm.Word),

		asm.LoadMapPtr(asm.R1, mapFD),
		asm.Mov.Reg(asm.R2, asm.RFP),
		asm.Add.Imm(asm.R2, -4),
		asm.FnMapLookupElem.Call(),
		asm.JEq.Imm(asm.R0, 0, "first"),
		asm.Mov.Imm(asm.R1, 1),
		asm.StoreXAdd(asm.R0, asm.R1, asm.DWord),
		asm.Mov.Imm(asm.R0, 0),
		asm.Return(),

		// first fault of this tgid; concurrent first faults may lose a count
		asm.Mov.Imm(asm.R1, 1).WithSymbol("first"),
		asm.StoreMem(asm.RFP, -16, asm.R1, asm.DWord),
		asm.LoadMapPtr(asm.R1, mapFD),
		asm.Mov.Reg(asm.R2, asm.RFP),
		asm.Add.Imm(asm.R2, -4),
		asm.Mov.Reg(asm.R3, asm.RFP),
		asm.Add.Imm(asm.R3, -16),
		asm.Mov.Imm(asm.R4, 0),
		asm.FnMapUpdateElem.Call(),
		asm.Mov.Imm(asm.R0, 0),
		asm.Return(),
	}
}

// Close detaches the probe and releases the BPF objects.
func (t *Tracer) Close() error {
	var err error
	if t.hook != nil {
		err = errors.Join(err, t.hook.Close())
	}
	if t.prog != nil {
		err = errors.Join(err, t.prog.Close())
	}
	if t.counts != nil {
		err = errors.Join(err, t.counts.Close())
	}
	return err
}

// Snapshot returns the fault events counted since the last Reset, naming
// the limit busiest processes. limit <= 0 names all of them.
func (t *Tracer) Snapshot(limit int) (Summary, error) {
	var counts []FaultCount
	iter := t.counts.Iterate()
	var pid uint32
	var faults uint64
	for iter.Next(&pid, &faults) {
		if faults == 0 {
			continue
		}
		counts = append(counts, FaultCount{PID: pid, Faults: faults})
	}
	if err := iter.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterating fault count map: %w", err)
	}

	var sum Summary
	sum, t.names = summarize(counts, limit, t.root, t.names)
	return sum, nil
}

// Reset clears the counters for the next tick.
func (t *Tracer) Reset() error {
	for attempt := 1; attempt <= resetSweepRetries; attempt++ {
		iter := t.counts.Iterate()
		var pid uint32
		var faults uint64
		for iter.Next(&pid, &faults) {
			if err := t.counts.Delete(&pid); err != nil && !errors.Is(err, ebpf.ErrKeyNotExist) {
				return fmt.Errorf("clearing pid %d: %w", pid, err)
			}
		}
		if err := iter.Err(); err != nil {
			if errors.Is(err, ebpf.ErrIterationAborted) && attempt < resetSweepRetries {
				continue
			}
			return fmt.Errorf("iterating fault count map: %w", err)
		}
		return nil
	}
	return nil
}
