package display

import "strings"

const (
	reset       = "\033[0m"
	bold        = "\033[1m"
	underline   = "\033[4m"
	reverse     = "\033[7m"
	altScreenOn = "\033[?1049h" // switch to alternate buffer
	altScreenOf = "\033[?1049l" // restore main buffer
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
	homeClear   = "\033[H\033[2J"
)

// sgr renders the escape sequence selecting exactly attr.
func sgr(attr Attr) string {
	var b strings.Builder
	b.WriteString(reset)
	if attr&AttrBold != 0 {
		b.WriteString(bold)
	}
	if attr&AttrUnderline != 0 {
		b.WriteString(underline)
	}
	if attr&AttrReverse != 0 {
		b.WriteString(reverse)
	}
	return b.String()
}
