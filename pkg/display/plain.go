package display

import (
	"fmt"
	"io"

	"golang.org/x/term"
)

// getSize allows tests to stub terminal geometry queries.
var getSize = term.GetSize

// Plain appends text to a writer. Everything except Printf and Resize is a
// no-op, so output is never cleared or repositioned.
type Plain struct {
	out  io.Writer
	fd   int
	rows int
	cols int
}

// NewPlain returns a Plain display writing to out. fd is the descriptor used
// to query the terminal size.
func NewPlain(out io.Writer, fd int) *Plain {
	return &Plain{out: out, fd: fd, rows: defaultRows, cols: defaultCols}
}

func (p *Plain) Setup() error    { return nil }
func (p *Plain) Teardown() error { return nil }
func (p *Plain) Clear()          {}
func (p *Plain) Refresh()        {}
func (p *Plain) SetAttr(Attr)    {}

// Resize queries the terminal once per redo; the size only informs column layout.
func (p *Plain) Resize(redo bool) {
	if !redo {
		return
	}
	cols, rows, err := getSize(p.fd)
	if err != nil || cols <= 0 || rows <= 0 {
		p.rows, p.cols = defaultRows, defaultCols
		return
	}
	p.rows, p.cols = rows, cols
}

func (p *Plain) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// Size returns the last queried geometry.
func (p *Plain) Size() (rows, cols int) {
	return p.rows, p.cols
}
