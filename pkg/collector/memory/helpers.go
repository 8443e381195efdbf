package memory

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultProcRoot is where comm names of traced pids are read from.
const DefaultProcRoot = "/proc"

// procReadFile allows tests to stub reading /proc/PID/comm.
var procReadFile = os.ReadFile

// FaultCount is the number of fault events one process took in a tick.
type FaultCount struct {
	PID    uint32
	Comm   string
	Faults uint64
}

// Summary is one tick of traced fault events.
type Summary struct {
	Total uint64
	// Top holds the busiest processes, busiest first.
	Top []FaultCount
}

// Total sums the fault events in counts.
func Total(counts []FaultCount) uint64 {
	var n uint64
	for _, c := range counts {
		n += c.Faults
	}
	return n
}

// summarize orders counts busiest first and names the first limit of them
// (all of them when limit <= 0). Names are reused from prev only for pids
// that were named last time too; the returned map replaces prev, so the
// cache never holds more than limit entries.
func summarize(counts []FaultCount, limit int, root string, prev map[uint32]string) (Summary, map[uint32]string) {
	sum := Summary{Total: Total(counts)}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Faults != counts[j].Faults {
			return counts[i].Faults > counts[j].Faults
		}
		return counts[i].PID < counts[j].PID
	})
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	names := make(map[uint32]string, len(counts))
	for i := range counts {
		counts[i].Comm = commForPID(root, counts[i].PID, prev, names)
	}
	sum.Top = counts
	return sum, names
}

func commForPID(root string, pid uint32, prev, names map[uint32]string) string {
	if pid == 0 {
		return "idle"
	}
	if name, ok := prev[pid]; ok {
		names[pid] = name
		return name
	}
	path := filepath.Join(root, strconv.FormatUint(uint64(pid), 10), "comm")
	data, err := procReadFile(path)
	if err != nil {
		// the pid may be recycled later, so don't remember the failure
		return fmt.Sprintf("pid-%d", pid)
	}
	comm := strings.TrimSpace(string(bytes.TrimRight(data, "\n")))
	if comm == "" {
		comm = fmt.Sprintf("pid-%d", pid)
	}
	names[pid] = comm
	return comm
}
