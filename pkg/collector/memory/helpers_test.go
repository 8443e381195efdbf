package memory

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func stubComm(t *testing.T, comms map[string]string, reads map[string]int) {
	t.Helper()
	t.Cleanup(func() { procReadFile = os.ReadFile })
	procReadFile = func(path string) ([]byte, error) {
		for pid, comm := range comms {
			if strings.Contains(path, "/"+pid+"/") {
				reads[pid]++
				return []byte(comm), nil
			}
		}
		return nil, errors.New("missing")
	}
}

func TestTotal(t *testing.T) {
	counts := []FaultCount{{PID: 1, Faults: 3}, {PID: 2, Faults: 39}}
	if got := Total(counts); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := Total(nil); got != 0 {
		t.Fatalf("expected 0 for no counts, got %d", got)
	}
}

func TestCommForPIDHandlesErrorsAndWhitespace(t *testing.T) {
	reads := map[string]int{}
	stubComm(t, map[string]string{"42": "db\n", "77": "   \n"}, reads)

	prev := map[uint32]string{}
	names := map[uint32]string{}
	if name := commForPID("/proc", 42, prev, names); name != "db" {
		t.Fatalf("expected trimmed db, got %q", name)
	}
	if name := commForPID("/proc", 42, names, map[uint32]string{}); name != "db" || reads["42"] != 1 {
		t.Fatalf("expected remembered db, got %q with %d reads", name, reads["42"])
	}

	if name := commForPID("/proc", 77, prev, names); name != "pid-77" {
		t.Fatalf("blank comm should fallback, got %q", name)
	}

	if name := commForPID("/proc", 88, prev, names); name != "pid-88" {
		t.Fatalf("missing file should fallback, got %q", name)
	}
	if _, ok := names[88]; ok {
		t.Fatalf("failed read should not be remembered")
	}

	if name := commForPID("/proc", 0, prev, names); name != "idle" {
		t.Fatalf("pid 0 should be idle, got %q", name)
	}
}

func TestCommForPIDReadsBelowRoot(t *testing.T) {
	var seen string
	t.Cleanup(func() { procReadFile = os.ReadFile })
	procReadFile = func(path string) ([]byte, error) {
		seen = path
		return []byte("x\n"), nil
	}
	commForPID("/host/proc", 9, nil, map[uint32]string{})
	if seen != "/host/proc/9/comm" {
		t.Fatalf("expected read of /host/proc/9/comm, got %q", seen)
	}
}

func TestSummarizeNamesBusiestOnly(t *testing.T) {
	reads := map[string]int{}
	stubComm(t, map[string]string{"10": "db\n", "11": "web\n", "12": "cron\n"}, reads)

	counts := []FaultCount{{PID: 12, Faults: 1}, {PID: 10, Faults: 40}, {PID: 11, Faults: 40}}
	sum, names := summarize(counts, 1, "/proc", nil)
	if sum.Total != 81 {
		t.Fatalf("total should cover every pid, got %d", sum.Total)
	}
	if len(sum.Top) != 1 || sum.Top[0].PID != 10 || sum.Top[0].Comm != "db" {
		t.Fatalf("expected pid 10 db on top (ties by pid), got %+v", sum.Top)
	}
	if reads["11"] != 0 || reads["12"] != 0 {
		t.Fatalf("only the named pids should be read, got %v", reads)
	}
	if len(names) != 1 {
		t.Fatalf("name cache should hold only the top pid, got %v", names)
	}
}

func TestSummarizePrunesNames(t *testing.T) {
	reads := map[string]int{}
	stubComm(t, map[string]string{"10": "db\n", "11": "web\n"}, reads)

	_, names := summarize([]FaultCount{{PID: 10, Faults: 5}}, 1, "/proc", nil)
	_, names = summarize([]FaultCount{{PID: 10, Faults: 9}}, 1, "/proc", names)
	if reads["10"] != 1 {
		t.Fatalf("pid staying on top should be read once, got %d reads", reads["10"])
	}

	sum, names := summarize([]FaultCount{{PID: 11, Faults: 3}, {PID: 10, Faults: 1}}, 1, "/proc", names)
	if sum.Top[0].Comm != "web" {
		t.Fatalf("expected web on top, got %+v", sum.Top)
	}
	if _, ok := names[10]; ok {
		t.Fatalf("pid 10 left the top and should be forgotten, got %v", names)
	}

	summarize([]FaultCount{{PID: 10, Faults: 7}}, 1, "/proc", names)
	if reads["10"] != 2 {
		t.Fatalf("forgotten pid should be read again, got %d reads", reads["10"])
	}
}

func TestSummarizeEmpty(t *testing.T) {
	sum, names := summarize(nil, 1, "/proc", nil)
	if sum.Total != 0 || len(sum.Top) != 0 || len(names) != 0 {
		t.Fatalf("expected empty summary, got %+v %v", sum, names)
	}
}
