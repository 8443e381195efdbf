// Package proctest builds synthetic /proc trees for tests.
package proctest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Proc describes one fake process directory.
type Proc struct {
	PID     int
	PGRP    int
	Comm    string
	Cmdline []string
	MinFlt  uint64
	MajFlt  uint64
	UID     uint32
	SwapKB  uint64

	// NoStat and NoStatus omit the corresponding files.
	NoStat   bool
	NoStatus bool
}

// NewRoot returns an empty directory usable as a procfs mount point.
func NewRoot(t testing.TB) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sys", "kernel"), 0o755); err != nil {
		t.Fatalf("creating sys/kernel: %v", err)
	}
	return root
}

// Write creates or overwrites the directory for p under root.
func Write(t testing.TB, root string, p Proc) {
	t.Helper()
	dir := filepath.Join(root, strconv.Itoa(p.PID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("creating %s: %v", dir, err)
	}
	comm := p.Comm
	if comm == "" {
		comm = "proc"
	}
	pgrp := p.PGRP
	if pgrp == 0 {
		pgrp = p.PID
	}

	files := map[string]string{
		"comm":    comm + "\n",
		"cmdline": cmdline(p.Cmdline),
	}
	if !p.NoStat {
		files["stat"] = StatLine(p.PID, comm, pgrp, p.MinFlt, p.MajFlt)
	} else {
		_ = os.Remove(filepath.Join(dir, "stat"))
	}
	if !p.NoStatus {
		files["status"] = statusFile(p.PID, comm, p.UID, p.SwapKB)
	} else {
		_ = os.Remove(filepath.Join(dir, "status"))
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatalf("writing %s/%s: %v", dir, name, err)
		}
	}
}

// Remove deletes the directory for pid, as if the process exited.
func Remove(t testing.TB, root string, pid int) {
	t.Helper()
	if err := os.RemoveAll(filepath.Join(root, strconv.Itoa(pid))); err != nil {
		t.Fatalf("removing pid %d: %v", pid, err)
	}
}

// SetPIDMax writes sys/kernel/pid_max.
func SetPIDMax(t testing.TB, root string, value string) {
	t.Helper()
	path := filepath.Join(root, "sys", "kernel", "pid_max")
	if err := os.WriteFile(path, []byte(value+"\n"), 0o644); err != nil {
		t.Fatalf("writing pid_max: %v", err)
	}
}

// StatLine renders a full /proc/<pid>/stat record.
func StatLine(pid int, comm string, pgrp int, minflt, majflt uint64) string {
	return fmt.Sprintf("%d (%s) S 1 %d %d 0 -1 4194560 %d 0 %d 0 10 5 0 0 20 0 1 0 100 10485760 250 18446744073709551615 "+
		"1 1 0 0 0 0 0 0 0 0 0 0 17 0 0 0 0 0 0 0 0 0 0 0 0 0 0\n",
		pid, comm, pgrp, pgrp, minflt, majflt)
}

func statusFile(pid int, comm string, uid uint32, swapKB uint64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name:\t%s\n", comm)
	fmt.Fprintf(&b, "Tgid:\t%d\n", pid)
	fmt.Fprintf(&b, "Pid:\t%d\n", pid)
	fmt.Fprintf(&b, "PPid:\t1\n")
	fmt.Fprintf(&b, "Uid:\t%d\t%d\t%d\t%d\n", uid, uid, uid, uid)
	fmt.Fprintf(&b, "Gid:\t%d\t%d\t%d\t%d\n", uid, uid, uid, uid)
	fmt.Fprintf(&b, "VmRSS:\t    1024 kB\n")
	fmt.Fprintf(&b, "VmSwap:\t%8d kB\n", swapKB)
	fmt.Fprintf(&b, "Threads:\t1\n")
	return b.String()
}

func cmdline(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.Join(args, "\x00") + "\x00"
}
