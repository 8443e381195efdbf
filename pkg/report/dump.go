package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/srodi/faultstat/pkg/display"
	"github.com/srodi/faultstat/pkg/types"
)

// Dumper renders Ticks as human-readable tables on a Display.
type Dumper struct {
	Display  display.Display
	PIDWidth int
	Arrows   bool
}

// Snapshot renders a one-shot table: cumulative counters only.
func (d *Dumper) Snapshot(t Tick) {
	w := d.PIDWidth
	out := d.Display

	out.SetAttr(display.AttrBold)
	out.Printf(" %*.*s  Major   Minor    Swap  User       Command\n", w, w, "PID")
	out.SetAttr(display.AttrNormal)

	for _, r := range t.Rows {
		out.Printf(" %*d %7s %7s %7s %-10.10s %s\n", w, r.PID,
			FormatCount(r.MajFault), FormatCount(r.MinFault), FormatCount(r.Swap),
			r.UserName(), r.Command())
	}
	out.Printf(" %*s %7s %7s\n\n", w, "Total:",
		FormatCount(t.Totals.Major), FormatCount(t.Totals.Minor))
}

// Changes renders a continuous-mode table with delta columns. Heading
// columns that take part in key are underlined on displays that support it.
func (d *Dumper) Changes(t Tick, key types.SortKey) {
	d.heading(key)

	w := d.PIDWidth
	out := d.Display
	for _, r := range t.Rows {
		arrow := ""
		if d.Arrows {
			arrow = Arrow(r.Delta())
		}
		out.Printf(" %*d %7s %7s %7s %7s %7s %s%-10.10s %s\n", w, r.PID,
			FormatCount(r.MajFault), FormatCount(r.MinFault),
			FormatCount(r.DeltaMaj), FormatCount(r.DeltaMin),
			FormatCount(r.Swap), arrow, r.UserName(), r.Command())
	}
	out.Printf(" %*s %7s %7s %7s %7s\n\n", w, "Total:",
		FormatCount(t.Totals.Major), FormatCount(t.Totals.Minor),
		FormatCount(t.Totals.DeltaMajor), FormatCount(t.Totals.DeltaMinor))
}

func (d *Dumper) heading(key types.SortKey) {
	w := d.PIDWidth
	out := d.Display
	col := func(c display.Column, label, gap string) {
		out.SetAttr(display.AttrBold | display.ColumnAttr(c, key))
		out.Printf("%s", label)
		out.SetAttr(display.AttrBold)
		out.Printf("%s", gap)
	}

	out.SetAttr(display.AttrBold)
	out.Printf(" %*.*s  ", w, w, "PID")
	col(display.ColMajor, "Major", "   ")
	col(display.ColMinor, "Minor", "  ")
	col(display.ColDeltaMajor, "+Major", "  ")
	col(display.ColDeltaMinor, "+Minor", "    ")
	col(display.ColSwap, "Swap", "  ")
	if d.Arrows {
		out.Printf("D ")
	}
	out.Printf("User       Command\n")
	out.SetAttr(display.AttrNormal)
}

type jsonProcess struct {
	PID        int    `json:"pid"`
	Major      int64  `json:"major"`
	Minor      int64  `json:"minor"`
	DeltaMajor int64  `json:"deltaMajor"`
	DeltaMinor int64  `json:"deltaMinor"`
	Swap       int64  `json:"swap"`
	User       string `json:"user"`
	Command    string `json:"command"`
}

type jsonTotals struct {
	Major      int64 `json:"major"`
	Minor      int64 `json:"minor"`
	DeltaMajor int64 `json:"deltaMajor"`
	DeltaMinor int64 `json:"deltaMinor"`
	Swap       int64 `json:"swap"`
}

type jsonDocument struct {
	Processes []jsonProcess `json:"processes"`
	Totals    jsonTotals    `json:"totals"`
	Timestamp int64         `json:"timestamp"`
}

// WriteJSON writes t as a single-line JSON document followed by a newline.
func WriteJSON(w io.Writer, t Tick, now time.Time) error {
	doc := jsonDocument{
		Processes: make([]jsonProcess, 0, len(t.Rows)),
		Totals:    jsonTotals(t.Totals),
		Timestamp: now.Unix(),
	}
	for _, r := range t.Rows {
		doc.Processes = append(doc.Processes, jsonProcess{
			PID:        r.PID,
			Major:      r.MajFault,
			Minor:      r.MinFault,
			DeltaMajor: r.DeltaMaj,
			DeltaMinor: r.DeltaMin,
			Swap:       r.Swap,
			User:       r.UserName(),
			Command:    r.Command(),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding json dump: %w", err)
	}
	return nil
}
