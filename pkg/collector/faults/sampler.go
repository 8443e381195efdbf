package faults

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/prometheus/procfs"
	"github.com/sirupsen/logrus"

	"github.com/srodi/faultstat/pkg/cache"
	"github.com/srodi/faultstat/pkg/pool"
	"github.com/srodi/faultstat/pkg/types"
)

// DefaultRoot is where procfs is normally mounted.
const DefaultRoot = "/proc"

const minPIDDigits = 6

// ErrProcUnavailable means the process listing itself could not be read.
// The sampler cannot make progress without it.
var ErrProcUnavailable = errors.New("process listing unavailable")

// procReadFile allows tests to stub reading files outside per-pid directories.
var procReadFile = os.ReadFile

// Options configures a Sampler.
type Options struct {
	Root   string
	Policy types.NamePolicy
	Filter *Filter
	Pool   *pool.Pool
	Users  *cache.Users
}

// Sampler walks procfs and builds one SampleSet per tick.
type Sampler struct {
	fs       procfs.FS
	root     string
	procs    *cache.Procs
	users    *cache.Users
	pool     *pool.Pool
	filter   *Filter
	pidWidth int
}

// New opens procfs at opts.Root and prepares the metadata caches.
func New(opts Options) (*Sampler, error) {
	if opts.Root == "" {
		opts.Root = DefaultRoot
	}
	fs, err := procfs.NewFS(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcUnavailable, err)
	}
	if opts.Pool == nil {
		opts.Pool = pool.New()
	}
	if opts.Users == nil {
		opts.Users = cache.NewUsers()
	}
	s := &Sampler{
		fs:     fs,
		root:   opts.Root,
		procs:  cache.NewProcs(fs, opts.Policy),
		users:  opts.Users,
		pool:   opts.Pool,
		filter: opts.Filter,
	}
	s.pidWidth = s.readPIDWidth()
	return s, nil
}

// Pool returns the record pool samples are drawn from.
func (s *Sampler) Pool() *pool.Pool {
	return s.pool
}

// ScanAll samples every visible process into dst[:0], last listed first.
// Processes that exit mid-scan or cannot be read are skipped; only a failure
// to list the process directory is returned.
func (s *Sampler) ScanAll(dst types.SampleSet) (types.SampleSet, error) {
	dst = dst[:0]
	procs, err := s.fs.AllProcs()
	if err != nil {
		return dst, fmt.Errorf("%w: %v", ErrProcUnavailable, err)
	}
	for _, p := range procs {
		if sample, ok := s.sample(p); ok {
			dst = append(dst, sample)
		}
	}
	slices.Reverse(dst)
	return dst, nil
}

func (s *Sampler) sample(p procfs.Proc) (*types.Sample, bool) {
	pid := p.PID
	if pgid, err := pgidOf(pid); err == nil && pgid == 0 {
		return nil, false
	}

	info, ok := s.procs.Lookup(pid)
	if !ok || info.KernelThread {
		return nil, false
	}
	if !s.filter.Match(pid, info.Cmdline) {
		return nil, false
	}

	rec := s.pool.Acquire()
	stat, err := p.Stat()
	if err != nil {
		s.pool.Release(rec)
		logrus.WithField("pid", pid).WithError(err).Debug("process gone before stat could be read")
		return nil, false
	}
	rec.PID = pid
	rec.Proc = info
	rec.MinFault = int64(stat.MinFlt)
	rec.MajFault = int64(stat.MajFlt)

	status, err := p.NewStatus()
	if err != nil {
		logrus.WithField("pid", pid).WithError(err).Debug("reading status")
		return rec, true
	}
	rec.Swap = int64(status.VmSwap / 1024)
	rec.UID = uint32(status.UIDs[0])
	rec.User = s.users.Lookup(rec.UID)
	return rec, true
}

// PIDWidth is the column width needed for the largest possible pid.
func (s *Sampler) PIDWidth() int {
	return s.pidWidth
}

func (s *Sampler) readPIDWidth() int {
	data, err := procReadFile(filepath.Join(s.root, "sys", "kernel", "pid_max"))
	if err != nil {
		return minPIDDigits
	}
	data = bytes.TrimSpace(data)
	digits := 0
	for digits < len(data) && data[digits] >= '0' && data[digits] <= '9' {
		digits++
	}
	return max(digits, minPIDDigits)
}

// SwapUsage returns system-wide swap used and total, in bytes.
func (s *Sampler) SwapUsage() (used, total uint64, err error) {
	mi, err := s.fs.Meminfo()
	if err != nil {
		return 0, 0, fmt.Errorf("reading meminfo: %w", err)
	}
	if mi.SwapTotal == nil || mi.SwapFree == nil {
		return 0, 0, fmt.Errorf("swap counters missing from meminfo")
	}
	total = *mi.SwapTotal * 1024
	free := *mi.SwapFree * 1024
	if free > total {
		free = total
	}
	return total - free, total, nil
}

// Prime performs the initial throwaway scan used to size the pool and
// returns it so the first timed tick has a baseline.
func (s *Sampler) Prime() (types.SampleSet, error) {
	set, err := s.ScanAll(nil)
	if err != nil {
		return nil, err
	}
	s.pool.Preallocate(pool.PreallocSize(len(set)))
	logrus.WithFields(logrus.Fields{
		"processes": len(set),
		"prealloc":  pool.PreallocSize(len(set)),
	}).Debug("primed sample pool")
	return set, nil
}
