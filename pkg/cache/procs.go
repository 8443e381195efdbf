package cache

import (
	"strings"

	"github.com/prometheus/procfs"
	"github.com/sirupsen/logrus"

	"github.com/srodi/faultstat/pkg/types"
)

// Procs memoizes per-pid metadata. Entries outlive their processes for the
// whole run so a pid that died between ticks still has a display name.
type Procs struct {
	fs      procfs.FS
	policy  types.NamePolicy
	entries map[int]*types.ProcInfo
}

// NewProcs returns an empty process cache reading from fs.
func NewProcs(fs procfs.FS, policy types.NamePolicy) *Procs {
	return &Procs{
		fs:      fs,
		policy:  policy,
		entries: make(map[int]*types.ProcInfo, 512),
	}
}

// Lookup returns the cached record for pid, creating it if the process still
// exists. The boolean is false when the process vanished before its metadata
// could be read.
func (c *Procs) Lookup(pid int) (*types.ProcInfo, bool) {
	if info, ok := c.entries[pid]; ok {
		return info, true
	}

	proc, err := c.fs.Proc(pid)
	if err != nil {
		return nil, false
	}

	info := &types.ProcInfo{PID: pid}
	args, err := proc.CmdLine()
	switch {
	case err != nil || len(args) == 0 || args[0] == "":
		// kernel threads, zombies and anything else without a readable command line
		info.KernelThread = true
	case c.policy.Mode == types.CommandComm:
		comm, cerr := proc.Comm()
		if cerr != nil {
			logrus.WithField("pid", pid).WithError(cerr).Debug("reading comm")
			comm = args[0]
		}
		info.Cmdline = comm
	default:
		info.Cmdline = DisplayName(args, c.policy)
	}

	c.entries[pid] = info
	return info, true
}

// Len reports the number of cached pids.
func (c *Procs) Len() int {
	return len(c.entries)
}

// DisplayName turns a NUL-split command line into the name shown in dumps.
func DisplayName(args []string, policy types.NamePolicy) string {
	if len(args) == 0 {
		return ""
	}
	name := args[0]
	if policy.Mode == types.CommandLong {
		name = strings.Join(args, " ")
	}
	if policy.Mode == types.CommandShort {
		if i := strings.IndexByte(name, ' '); i >= 0 {
			name = name[:i]
		}
	}
	if policy.StripDir {
		name = stripDir(name)
	}
	return name
}

// stripDir drops the directory part of the first blank-separated token.
func stripDir(name string) string {
	end := strings.IndexAny(name, " \t")
	if end < 0 {
		end = len(name)
	}
	if i := strings.LastIndexByte(name[:end], '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}
