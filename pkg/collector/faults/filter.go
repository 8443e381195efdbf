package faults

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Filter is an allow-list of pids and process names. A nil Filter matches
// every process.
type Filter struct {
	pids  mapset.Set[int]
	names mapset.Set[string]
}

// ParseFilter parses a comma separated list such as "sshd,4242". Tokens that
// start with a digit are pids; anything else is a process name. An empty list
// yields a nil Filter.
func ParseFilter(list string) (*Filter, error) {
	f := &Filter{
		pids:  mapset.NewThreadUnsafeSet[int](),
		names: mapset.NewThreadUnsafeSet[string](),
	}
	for _, token := range strings.Split(list, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if token[0] >= '0' && token[0] <= '9' {
			pid, err := strconv.Atoi(token)
			if err != nil || pid <= 0 {
				return nil, fmt.Errorf("invalid pid %q in process list", token)
			}
			f.pids.Add(pid)
			continue
		}
		f.names.Add(token)
	}
	if f.Len() == 0 {
		return nil, nil
	}
	return f, nil
}

// Len is the number of distinct pids and names in the list.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return f.pids.Cardinality() + f.names.Cardinality()
}

// Match reports whether a process with the given pid and display name is
// selected. Names match when they are a prefix of the display name, compared
// up to the first space in the listed name. Names without a '/' are compared
// against the basename of the display name.
func (f *Filter) Match(pid int, cmdline string) bool {
	if f == nil {
		return true
	}
	if f.pids.Contains(pid) {
		return true
	}
	matched := false
	f.names.Each(func(name string) bool {
		target := cmdline
		if !strings.Contains(name, "/") {
			target = filepath.Base(cmdline)
		}
		if target != "" && nameMatches(name, target) {
			matched = true
			return true
		}
		return false
	})
	return matched
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	parts := make([]string, 0, f.Len())
	for _, pid := range f.pids.ToSlice() {
		parts = append(parts, strconv.Itoa(pid))
	}
	parts = append(parts, f.names.ToSlice()...)
	return strings.Join(parts, ",")
}

func nameMatches(name, target string) bool {
	if i := strings.IndexByte(name, ' '); i >= 0 {
		name = name[:i]
	}
	return strings.HasPrefix(target, name)
}
