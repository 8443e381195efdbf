package display

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srodi/faultstat/pkg/types"
)

func stubSize(t *testing.T, cols, rows int, err error) {
	t.Helper()
	orig := getSize
	t.Cleanup(func() { getSize = orig })
	getSize = func(int) (int, int, error) { return cols, rows, err }
}

func TestColumnAttr(t *testing.T) {
	assert.Equal(t, AttrUnderline, ColumnAttr(ColMajor, types.SortMajorMinor))
	assert.Equal(t, AttrUnderline, ColumnAttr(ColMinor, types.SortMajorMinor))
	assert.Equal(t, AttrNormal, ColumnAttr(ColSwap, types.SortMajorMinor))
	assert.Equal(t, AttrUnderline, ColumnAttr(ColDeltaMinor, types.SortDeltaMinor))
	assert.Equal(t, AttrNormal, ColumnAttr(ColDeltaMajor, types.SortDeltaMinor))
	assert.Equal(t, AttrUnderline, ColumnAttr(ColSwap, types.SortSwap))
	assert.Equal(t, AttrNormal, ColumnAttr(ColMajor, types.SortKey(99)))

	for k := types.SortMajorMinor; k.Valid(); k++ {
		lit := 0
		for c := ColMajor; c < numColumns; c++ {
			if ColumnAttr(c, k) == AttrUnderline {
				lit++
			}
		}
		assert.NotZero(t, lit, "sort key %s highlights no column", k)
	}
}

func TestPlainPassesTextThrough(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlain(&buf, -1)
	require.NoError(t, p.Setup())
	p.Clear()
	p.SetAttr(AttrBold)
	p.Printf("%5d %s\n", 42, "x")
	p.Refresh()
	require.NoError(t, p.Teardown())
	assert.Equal(t, "   42 x\n", buf.String())
}

func TestPlainResize(t *testing.T) {
	p := NewPlain(&bytes.Buffer{}, -1)

	stubSize(t, 132, 50, nil)
	p.Resize(false)
	rows, cols := p.Size()
	assert.Equal(t, []int{25, 80}, []int{rows, cols}, "no re-query without redo")

	p.Resize(true)
	rows, cols = p.Size()
	assert.Equal(t, []int{50, 132}, []int{rows, cols})

	stubSize(t, 0, 0, errors.New("not a tty"))
	p.Resize(true)
	rows, cols = p.Size()
	assert.Equal(t, []int{25, 80}, []int{rows, cols})
}

func newActive(t *testing.T, out *bytes.Buffer, cols, rows int) *Interactive {
	t.Helper()
	stubSize(t, cols, rows, nil)
	d := NewInteractive(out, -1, -1)
	d.Resize(true)
	d.active = true
	return d
}

func TestInteractiveClipsWidth(t *testing.T) {
	var out bytes.Buffer
	d := newActive(t, &out, 10, 5)
	d.Clear()
	d.Printf("0123456789abcdef\n")
	d.Printf("短い文字列です\n")
	d.Refresh()

	frame := strings.TrimPrefix(out.String(), homeClear)
	frame = strings.TrimSuffix(frame, reset)
	lines := strings.Split(frame, "\r\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, "0123456789", lines[0])
	assert.Equal(t, "短い文字列", lines[1], "wide runes count two columns each")
}

func TestInteractiveClipsHeight(t *testing.T) {
	var out bytes.Buffer
	d := newActive(t, &out, 80, 3)
	d.Clear()
	for i := 0; i < 10; i++ {
		d.Printf("row %d\n", i)
	}
	d.Refresh()

	frame := out.String()
	assert.Contains(t, frame, "row 2")
	assert.NotContains(t, frame, "row 3")
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(frame, reset), "\r\n"), "last row must not scroll")
}

func TestInteractiveTracksColumnAcrossCalls(t *testing.T) {
	var out bytes.Buffer
	d := newActive(t, &out, 6, 5)
	d.Clear()
	d.Printf("abcd")
	d.Printf("efgh\n")
	d.Refresh()
	assert.Contains(t, out.String(), "abcdef\r\n")
	assert.NotContains(t, out.String(), "g")
}

func TestInteractiveAttributes(t *testing.T) {
	var out bytes.Buffer
	d := newActive(t, &out, 80, 5)
	d.Clear()
	d.SetAttr(AttrBold | AttrUnderline)
	d.SetAttr(AttrBold | AttrUnderline)
	d.Printf("Major")
	d.SetAttr(AttrNormal)
	d.Refresh()

	assert.Equal(t, 1, strings.Count(out.String(), underline))
	assert.Contains(t, out.String(), reset+bold+underline+"Major"+reset)
}

func TestInteractiveClearDropsFrame(t *testing.T) {
	var out bytes.Buffer
	d := newActive(t, &out, 80, 5)
	d.Clear()
	d.Printf("stale\n")
	d.Clear()
	d.Printf("fresh\n")
	d.Refresh()
	assert.NotContains(t, out.String(), "stale")
	assert.Contains(t, out.String(), "fresh")
}

func TestInteractiveSetupRequiresTerminal(t *testing.T) {
	orig := isTerminal
	t.Cleanup(func() { isTerminal = orig })
	isTerminal = func(int) bool { return false }

	d := NewInteractive(&bytes.Buffer{}, -1, -1)
	assert.ErrorIs(t, d.Setup(), ErrNotTerminal)
	assert.NoError(t, d.Teardown(), "teardown after failed setup is a no-op")
}

func TestInteractiveTeardownRestoresOnce(t *testing.T) {
	var out bytes.Buffer
	d := newActive(t, &out, 80, 5)
	restored := 0
	d.restoreInput = func() error { restored++; return nil }

	require.NoError(t, d.Teardown())
	require.NoError(t, d.Teardown())
	assert.Equal(t, 1, restored)
	assert.Equal(t, reset+showCursor+altScreenOf, out.String())
}
