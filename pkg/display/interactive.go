package display

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// isTerminal allows tests to pretend a pipe is a tty.
var isTerminal = term.IsTerminal

// Interactive renders each tick as a full frame on the alternate screen.
// Output is composed in memory between Clear and Refresh and clipped to
// the terminal geometry so the frame never scrolls.
type Interactive struct {
	out   io.Writer
	outFd int
	inFd  int

	frame bytes.Buffer
	rows  int
	cols  int
	cury  int
	curx  int
	attr  Attr

	restoreInput func() error
	active       bool
}

// NewInteractive returns an Interactive display writing to out. outFd is
// used for size queries, inFd for keyboard mode changes.
func NewInteractive(out io.Writer, outFd, inFd int) *Interactive {
	return &Interactive{out: out, outFd: outFd, inFd: inFd, rows: defaultRows, cols: defaultCols}
}

// Setup switches to the alternate buffer with echo off and non-blocking
// single-key input.
func (d *Interactive) Setup() error {
	if d.active {
		return nil
	}
	if !isTerminal(d.outFd) {
		return ErrNotTerminal
	}
	restore, err := rawInput(d.inFd)
	if err != nil {
		return fmt.Errorf("configuring keyboard input: %w", err)
	}
	d.restoreInput = restore
	d.active = true
	d.Resize(true)
	_, err = io.WriteString(d.out, altScreenOn+hideCursor)
	return err
}

// Teardown leaves the alternate buffer and restores the saved input mode.
func (d *Interactive) Teardown() error {
	if !d.active {
		return nil
	}
	d.active = false
	_, werr := io.WriteString(d.out, reset+showCursor+altScreenOf)
	if d.restoreInput != nil {
		if err := d.restoreInput(); err != nil {
			return err
		}
		d.restoreInput = nil
	}
	return werr
}

func (d *Interactive) Clear() {
	d.frame.Reset()
	d.cury, d.curx = 0, 0
	d.attr = AttrNormal
}

// Refresh writes the composed frame in a single write.
func (d *Interactive) Refresh() {
	if !d.active {
		return
	}
	var out bytes.Buffer
	out.Grow(len(homeClear) + d.frame.Len() + len(reset))
	out.WriteString(homeClear)
	out.Write(d.frame.Bytes())
	out.WriteString(reset)
	_, _ = d.out.Write(out.Bytes())
}

func (d *Interactive) Resize(bool) {
	cols, rows, err := getSize(d.outFd)
	if err != nil || cols <= 0 || rows <= 0 {
		return
	}
	d.rows, d.cols = rows, cols
}

// Printf appends text to the frame, dropping anything past the right edge
// or below the last row.
func (d *Interactive) Printf(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	for text != "" {
		if d.cury >= d.rows {
			return
		}
		line, rest, nl := strings.Cut(text, "\n")
		if room := d.cols - d.curx; room > 0 && line != "" {
			clipped := runewidth.Truncate(line, room, "")
			d.frame.WriteString(clipped)
			d.curx += runewidth.StringWidth(clipped)
		}
		if !nl {
			return
		}
		d.cury++
		d.curx = 0
		// no newline after the last row or the terminal scrolls
		if d.cury < d.rows {
			d.frame.WriteString("\r\n")
		}
		text = rest
	}
}

func (d *Interactive) SetAttr(a Attr) {
	if a == d.attr {
		return
	}
	d.attr = a
	d.frame.WriteString(sgr(a))
}

// Size returns the current geometry.
func (d *Interactive) Size() (rows, cols int) {
	return d.rows, d.cols
}
