package report

import (
	"cmp"
	"slices"

	"github.com/srodi/faultstat/pkg/types"
)

// Mode selects which rows a Tick carries.
type Mode int

const (
	// ModeFull keeps every live process plus processes that died since the
	// previous tick.
	ModeFull Mode = iota
	// ModeDiff is ModeFull without live rows whose combined delta is zero.
	// Died processes are always listed.
	ModeDiff
	// ModeJSON keeps live processes only.
	ModeJSON
)

// Totals are system-wide sums for one tick. Major, Minor and Swap add up
// live processes only; the deltas also include died processes.
type Totals struct {
	Major      int64
	Minor      int64
	DeltaMajor int64
	DeltaMinor int64
	Swap       int64
}

// Tick is one tick's output rows, sorted, with totals.
type Tick struct {
	Rows   []*types.Sample
	Totals Totals
	// Sampled counts live processes, Died those gone since the previous tick.
	Sampled int
	Died    int
}

// ApplyDelta sets s's deltas against the previous tick's sample of the same
// pid and marks that sample alive. A pid with no predecessor gets its
// cumulative counts as deltas.
func ApplyDelta(s *types.Sample, prev types.SampleSet) {
	for _, p := range prev {
		if p.PID == s.PID {
			s.DeltaMaj = s.MajFault - p.MajFault
			s.DeltaMin = s.MinFault - p.MinFault
			p.Alive = true
			return
		}
	}
	s.DeltaMaj = s.MajFault
	s.DeltaMin = s.MinFault
}

// Builder assembles Ticks, reusing its row slice between calls.
type Builder struct {
	rows []*types.Sample
}

// Build computes deltas for cur against prev, appends synthetic rows for
// processes that died, and sorts by key. prev samples are modified: died
// ones get negated deltas and zeroed counters, so Build runs once per tick.
// The returned rows are valid until the next call.
func (b *Builder) Build(prev, cur types.SampleSet, key types.SortKey, mode Mode) Tick {
	var t Tick
	rows := b.rows[:0]

	for _, s := range cur {
		ApplyDelta(s, prev)
		t.Sampled++
		t.Totals.Major += s.MajFault
		t.Totals.Minor += s.MinFault
		t.Totals.DeltaMajor += s.DeltaMaj
		t.Totals.DeltaMinor += s.DeltaMin
		t.Totals.Swap += s.Swap
		if mode == ModeDiff && s.Delta() == 0 {
			continue
		}
		rows = append(rows, s)
	}

	for _, p := range prev {
		if p.Alive {
			continue
		}
		t.Died++
		p.DeltaMaj = -p.MajFault
		p.DeltaMin = -p.MinFault
		p.MajFault, p.MinFault, p.Swap = 0, 0, 0
		t.Totals.DeltaMajor += p.DeltaMaj
		t.Totals.DeltaMinor += p.DeltaMin
		if mode == ModeJSON {
			continue
		}
		rows = append(rows, p)
	}

	Sort(rows, key)
	b.rows = rows
	t.Rows = rows
	return t
}

// Sort orders rows by key, largest first. Equal keys keep their order.
func Sort(rows []*types.Sample, key types.SortKey) {
	slices.SortStableFunc(rows, func(a, b *types.Sample) int {
		return cmp.Compare(b.Key(key), a.Key(key))
	})
}

// Hottest returns the row with the largest combined delta, or nil when no
// process faulted this tick.
func Hottest(rows []*types.Sample) *types.Sample {
	var best *types.Sample
	for _, r := range rows {
		if r.Delta() <= 0 {
			continue
		}
		if best == nil || r.Delta() > best.Delta() {
			best = r
		}
	}
	return best
}
