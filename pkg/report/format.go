package report

import (
	"fmt"
	"math"
)

var units = [...]rune{' ', 'k', 'M', 'G'}

// FormatCount renders v in seven columns: six digits of value and a scale
// suffix (' ', k, M or G). The scale is picked after rounding, so 999999600
// prints as 1000M rather than overflowing into an eighth column. Negative
// values keep their sign.
func FormatCount(v int64) string {
	f := float64(v)
	u := 0
	for u < len(units)-1 && math.Abs(math.Round(f)) >= 1e6 {
		f /= 1e3
		u++
	}
	return fmt.Sprintf("%6.0f%c", f, units[u])
}

// Arrow marks the direction of a combined delta.
func Arrow(delta int64) string {
	switch {
	case delta > 0:
		return "^ "
	case delta < 0:
		return "v "
	default:
		return "  "
	}
}
