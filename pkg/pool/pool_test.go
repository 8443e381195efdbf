package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srodi/faultstat/pkg/types"
)

func TestAcquireReturnsZeroedRecycledRecord(t *testing.T) {
	p := New()
	s := p.Acquire()
	s.PID = 42
	s.MajFault = 7
	s.Alive = true
	p.Release(s)

	again := p.Acquire()
	require.Same(t, s, again, "expected the released record to be reused")
	assert.Equal(t, types.Sample{}, *again)
	assert.Equal(t, 1, p.Stats().Fresh)
}

func TestPreallocateFeedsFreeList(t *testing.T) {
	p := New()
	p.Preallocate(4)
	assert.Equal(t, Stats{Size: 4, Free: 4, Fresh: 0}, p.Stats())

	for i := 0; i < 4; i++ {
		p.Acquire()
	}
	assert.Equal(t, 0, p.Stats().Fresh)
	assert.Equal(t, 0, p.Stats().Free)

	p.Acquire()
	assert.Equal(t, Stats{Size: 5, Free: 0, Fresh: 1}, p.Stats())
}

func TestReleaseAllClearsSet(t *testing.T) {
	p := New()
	set := types.SampleSet{p.Acquire(), p.Acquire(), p.Acquire()}
	p.ReleaseAll(set)
	for _, s := range set {
		assert.Nil(t, s)
	}
	assert.Equal(t, 3, p.Stats().Free)
}

func TestSteadyStateStopsAllocating(t *testing.T) {
	const procs = 40
	p := New()
	p.Preallocate(PreallocSize(procs))

	var prev types.SampleSet
	for tick := 0; tick < 10; tick++ {
		cur := make(types.SampleSet, 0, procs)
		for i := 0; i < procs; i++ {
			cur = append(cur, p.Acquire())
		}
		p.ReleaseAll(prev)
		prev = cur
	}
	assert.Equal(t, 0, p.Stats().Fresh, "steady-state ticks should be served from the free list")
	assert.Equal(t, PreallocSize(procs), p.Stats().Size)
}

func TestConvergesWithoutPreallocation(t *testing.T) {
	const procs = 16
	p := New()
	var prev types.SampleSet
	var freshAfter []int
	for tick := 0; tick < 6; tick++ {
		cur := make(types.SampleSet, 0, procs)
		for i := 0; i < procs; i++ {
			cur = append(cur, p.Acquire())
		}
		p.ReleaseAll(prev)
		prev = cur
		freshAfter = append(freshAfter, p.Stats().Fresh)
	}
	// two generations are live at most: current and previous
	assert.Equal(t, 2*procs, freshAfter[len(freshAfter)-1])
	assert.Equal(t, freshAfter[2], freshAfter[len(freshAfter)-1])
}

func TestPreallocSize(t *testing.T) {
	assert.Equal(t, 125, PreallocSize(100))
	assert.Equal(t, 0, PreallocSize(0))
	assert.Equal(t, 1, PreallocSize(1))
}
