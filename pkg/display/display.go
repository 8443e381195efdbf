package display

import (
	"errors"

	"github.com/srodi/faultstat/pkg/types"
)

const (
	defaultRows = 25
	defaultCols = 80
)

// ErrNotTerminal is returned by Interactive.Setup when output is not a tty.
var ErrNotTerminal = errors.New("output is not a terminal")

// Attr is a set of text attributes.
type Attr uint8

const (
	AttrNormal    Attr = 0
	AttrBold      Attr = 1 << 0
	AttrUnderline Attr = 1 << 1
	AttrReverse   Attr = 1 << 2
)

// Display is the output surface the scheduler drives each tick.
type Display interface {
	// Setup prepares the terminal. It is called once before the first tick.
	Setup() error
	// Teardown restores the terminal. It is safe to call more than once.
	Teardown() error
	// Clear starts a new frame.
	Clear()
	// Refresh pushes the current frame to the terminal.
	Refresh()
	// Resize re-reads the terminal geometry; redo forces a re-query on
	// implementations that otherwise cache it.
	Resize(redo bool)
	// Printf writes formatted text at the current position.
	Printf(format string, args ...any)
	// SetAttr changes the attributes used by subsequent Printf calls.
	SetAttr(a Attr)
}

// Column identifies a sortable heading column.
type Column int

const (
	ColMajor Column = iota
	ColMinor
	ColDeltaMajor
	ColDeltaMinor
	ColSwap
	numColumns
)

var columnHighlights = [...][numColumns]bool{
	//                          Major  Minor  +Major +Minor Swap
	types.SortMajorMinor:      {true, true, false, false, false},
	types.SortMajor:           {true, false, false, false, false},
	types.SortMinor:           {false, true, false, false, false},
	types.SortDeltaMajorMinor: {false, false, true, true, false},
	types.SortDeltaMajor:      {false, false, true, false, false},
	types.SortDeltaMinor:      {false, false, false, true, false},
	types.SortSwap:            {false, false, false, false, true},
}

// ColumnAttr returns the attribute for a heading column given the active
// sort key: underlined when the column takes part in the ordering.
func ColumnAttr(col Column, key types.SortKey) Attr {
	if !key.Valid() || col < 0 || col >= numColumns {
		return AttrNormal
	}
	if columnHighlights[key][col] {
		return AttrUnderline
	}
	return AttrNormal
}
