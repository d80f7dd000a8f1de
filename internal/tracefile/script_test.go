package tracefile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioScript = `
events:
  - op: register
    path: /etc/passwd
  - op: program
    proc: 1
    parent: 0
    argv: [/tmp/prog, -c, aardvark]
    envp: [HOME=/root]
  - op: read
    proc: 1
    path: /etc/passwd
  - op: rename
    proc: 1
    from: /tmp/a
    to: /tmp/b
  - op: link
    proc: 1
    target: /tmp/b
    path: /tmp/c
`

func TestParseScript(t *testing.T) {
	s, err := ParseScript(strings.NewReader(scenarioScript))
	require.NoError(t, err)

	recs, err := s.Records()
	require.NoError(t, err)
	assert.Equal(t, []Record{
		Register(0, "/etc/passwd"),
		NewProgram(1, 0, []string{"/tmp/prog", "-c", "aardvark"}, []string{"HOME=/root"}),
		Read(1, "/etc/passwd"),
		Rename(1, "/tmp/a", "/tmp/b"),
		NewLink(1, "/tmp/b", "/tmp/c"),
	}, recs)
}

func TestParseScript_EncodesAndDecodes(t *testing.T) {
	s, err := ParseScript(strings.NewReader(scenarioScript))
	require.NoError(t, err)
	recs, err := s.Records()
	require.NoError(t, err)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteAll(recs))
	require.NoError(t, w.Flush())

	got, err := NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, recs, got)
}

func TestParseScript_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown op":      "events:\n  - op: chmod\n    path: /a\n",
		"program no argv": "events:\n  - op: program\n    proc: 1\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			s, err := ParseScript(strings.NewReader(src))
			require.NoError(t, err)
			_, err = s.Records()
			assert.Error(t, err)
		})
	}

	_, err := ParseScript(strings.NewReader("events:\n  - op: read\n    bogus: 1\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestParseScript_Empty(t *testing.T) {
	s, err := ParseScript(strings.NewReader(""))
	require.NoError(t, err)
	recs, err := s.Records()
	require.NoError(t, err)
	assert.Empty(t, recs)
}
