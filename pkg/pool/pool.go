package pool

import "github.com/srodi/faultstat/pkg/types"

// Pool recycles Sample records between ticks so the steady-state sampling
// loop does not allocate. Records handed back with Release stay owned by the
// pool for the lifetime of the run; the pool never shrinks.
type Pool struct {
	free  []*types.Sample
	size  int
	fresh int
}

// Stats is a point-in-time view of pool usage.
type Stats struct {
	Size  int // records ever created, preallocated or not
	Free  int // records currently on the free list
	Fresh int // records allocated on demand by Acquire
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{}
}

// Preallocate adds n zeroed records to the free list. They are carved out of
// a single slab so the loop's working set stays contiguous.
func (p *Pool) Preallocate(n int) {
	if n <= 0 {
		return
	}
	slab := make([]types.Sample, n)
	if cap(p.free)-len(p.free) < n {
		grown := make([]*types.Sample, len(p.free), len(p.free)+n)
		copy(grown, p.free)
		p.free = grown
	}
	for i := range slab {
		p.free = append(p.free, &slab[i])
	}
	p.size += n
}

// Acquire returns a zeroed record, preferring the free list.
func (p *Pool) Acquire() *types.Sample {
	if n := len(p.free); n > 0 {
		s := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		*s = types.Sample{}
		return s
	}
	p.size++
	p.fresh++
	return &types.Sample{}
}

// Release returns a single record to the free list.
func (p *Pool) Release(s *types.Sample) {
	if s == nil {
		return
	}
	p.free = append(p.free, s)
}

// ReleaseAll returns every record of set to the free list. The caller must
// not use set afterwards.
func (p *Pool) ReleaseAll(set types.SampleSet) {
	for i, s := range set {
		p.Release(s)
		set[i] = nil
	}
}

// Stats reports current pool usage.
func (p *Pool) Stats() Stats {
	return Stats{Size: p.size, Free: len(p.free), Fresh: p.fresh}
}

// PreallocSize is the free-list size used before the timed loop starts:
// 1.25x the process count seen by the initial scan.
func PreallocSize(observed int) int {
	return observed * 5 / 4
}
