package faults

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilterEmpty(t *testing.T) {
	f, err := ParseFilter(" , ,")
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.True(t, f.Match(1, "anything"))
	assert.Equal(t, 0, f.Len())
}

func TestParseFilterDeduplicates(t *testing.T) {
	f, err := ParseFilter("42,42,nginx,nginx,7")
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())
}

func TestParseFilterRejectsBadPid(t *testing.T) {
	_, err := ParseFilter("12ab")
	assert.Error(t, err)
	_, err = ParseFilter("0")
	assert.Error(t, err)
}

func TestFilterMatch(t *testing.T) {
	f, err := ParseFilter("sshd,4242,/usr/bin/python3")
	require.NoError(t, err)

	cases := []struct {
		name    string
		pid     int
		cmdline string
		want    bool
	}{
		{"pid", 4242, "whatever", true},
		{"rewrittenTitle", 200, "sshd: alice@pts/0", false},
		{"plainName", 201, "sshd: session", true},
		{"basename", 202, "/usr/sbin/sshd", true},
		{"prefix", 203, "sshd-keygen", true},
		{"fullPath", 204, "/usr/bin/python3", true},
		{"otherPath", 205, "/opt/python3", false},
		{"other", 100, "bash", false},
		{"caseSensitive", 206, "SSHD", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.Match(tc.pid, tc.cmdline))
		})
	}
}

func TestFilterNameComparedUpToSpace(t *testing.T) {
	f, err := ParseFilter("nginx worker")
	require.NoError(t, err)
	assert.True(t, f.Match(1, "nginx: master process"))
}
