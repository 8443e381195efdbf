package types

import (
	"fmt"
	"strings"
	"unicode"
)

// SortKey selects the column used to order dump rows.
type SortKey int

// Sort keys, in the order the interactive s key cycles through them.
const (
	SortMajorMinor SortKey = iota
	SortMajor
	SortMinor
	SortDeltaMajorMinor
	SortDeltaMajor
	SortDeltaMinor
	SortSwap
	sortKeyEnd
)

var sortKeyNames = [...]string{
	SortMajorMinor:      "major-minor",
	SortMajor:           "major",
	SortMinor:           "minor",
	SortDeltaMajorMinor: "d-major-minor",
	SortDeltaMajor:      "d-major",
	SortDeltaMinor:      "d-minor",
	SortSwap:            "swap",
}

// String returns the key's command-line name, such as "d-major".
func (k SortKey) String() string {
	if !k.Valid() {
		return fmt.Sprintf("SortKey(%d)", int(k))
	}
	return sortKeyNames[k]
}

// Valid reports whether k is one of the selectable keys.
func (k SortKey) Valid() bool {
	return k >= SortMajorMinor && k < sortKeyEnd
}

// Next returns the following sort key, wrapping back to SortMajorMinor.
func (k SortKey) Next() SortKey {
	k++
	if k >= sortKeyEnd {
		return SortMajorMinor
	}
	return k
}

// ParseSortKey maps a key name such as "d-major" back to its SortKey.
func ParseSortKey(name string) (SortKey, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return SortMajorMinor, nil
	}
	for k, n := range sortKeyNames {
		if n == name {
			return SortKey(k), nil
		}
	}
	return SortMajorMinor, fmt.Errorf("unknown sort key %q (want one of %s)", name, strings.Join(sortKeyNames[:], ", "))
}

// CommandMode picks which part of a process command line becomes its display name.
type CommandMode int

const (
	// CommandDefault uses argv[0] as the kernel reports it.
	CommandDefault CommandMode = iota
	// CommandShort truncates the name at the first space.
	CommandShort
	// CommandLong joins all arguments with spaces.
	CommandLong
	// CommandComm uses the kernel's short comm name.
	CommandComm
)

// NamePolicy controls how ProcInfo.Cmdline is derived.
type NamePolicy struct {
	Mode     CommandMode
	StripDir bool
}

// UserInfo is a resolved uid. Immutable once cached.
type UserInfo struct {
	UID  uint32
	Name string
}

// ProcInfo holds per-pid metadata captured the first time a pid is seen.
type ProcInfo struct {
	PID          int
	Cmdline      string
	KernelThread bool
}

// Sample is one process's fault counters for a single tick.
//
// MinFault, MajFault and Swap (kB) are cumulative values read from /proc.
// DeltaMin and DeltaMaj are relative to the previous tick's sample of the
// same pid. Alive is set on a previous-tick sample once a matching pid has
// been seen in the current tick.
type Sample struct {
	PID  int
	UID  uint32
	Proc *ProcInfo
	User *UserInfo

	MinFault int64
	MajFault int64
	Swap     int64
	DeltaMin int64
	DeltaMaj int64

	Alive bool
}

// SampleSet is every sample gathered in one tick.
type SampleSet []*Sample

// Command returns the cached display name or "<unknown>". Control
// characters a process put in its argv come back as '?'.
func (s *Sample) Command() string {
	if s.Proc != nil && s.Proc.Cmdline != "" {
		return Printable(s.Proc.Cmdline)
	}
	return "<unknown>"
}

// Printable replaces runes that are not printable with '?'. s is returned
// unchanged when it is already clean.
func Printable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return '?'
	}, s)
}

// UserName returns the cached user name or "<unknown>".
func (s *Sample) UserName() string {
	if s.User != nil {
		return s.User.Name
	}
	return "<unknown>"
}

// Total is the combined cumulative fault count.
func (s *Sample) Total() int64 {
	return s.MajFault + s.MinFault
}

// Delta is the combined fault delta.
func (s *Sample) Delta() int64 {
	return s.DeltaMaj + s.DeltaMin
}

// Key returns the value the sample is ordered by for k.
func (s *Sample) Key(k SortKey) int64 {
	switch k {
	case SortMajor:
		return s.MajFault
	case SortMinor:
		return s.MinFault
	case SortDeltaMajorMinor:
		return s.Delta()
	case SortDeltaMajor:
		return s.DeltaMaj
	case SortDeltaMinor:
		return s.DeltaMin
	case SortSwap:
		return s.Swap
	default:
		return s.Total()
	}
}
