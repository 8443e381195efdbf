package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandEscapesControlCharacters(t *testing.T) {
	s := &Sample{Proc: &ProcInfo{Cmdline: "evil\n\x1b[2Jname\tx"}}
	assert.Equal(t, "evil??[2Jname?x", s.Command())

	s.Proc.Cmdline = "nginx: worker process"
	assert.Equal(t, "nginx: worker process", s.Command())

	s.Proc.Cmdline = "データ処理"
	assert.Equal(t, "データ処理", s.Command(), "printable wide runes pass through")

	s.Proc = nil
	assert.Equal(t, "<unknown>", s.Command())
}

func TestPrintable(t *testing.T) {
	assert.Equal(t, "", Printable(""))
	assert.Equal(t, "a?b", Printable("a\x00b"))
	assert.Equal(t, "??", Printable("\x7f\u0085"))
}

func TestSortKeyRoundTrip(t *testing.T) {
	for k := SortMajorMinor; k.Valid(); k++ {
		got, err := ParseSortKey(k.String())
		assert.NoError(t, err)
		assert.Equal(t, k, got)
	}
	assert.Equal(t, "SortKey(42)", SortKey(42).String())
	_, err := ParseSortKey("bogus")
	assert.Error(t, err)
}
