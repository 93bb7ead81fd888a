package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoop(t *testing.T) {
	r := require.New(t)
	input := strings.Join([]string{
		"(let a (array 1))",
		"(push a",
		"   a)",
		"a",
		"(strong a)",
		"(drop a)",
		"(live)",
		"(get nope 0)",
		"(let",
		"quit",
		"(print \"unreached\")",
	}, "\n")
	var out bytes.Buffer
	r.NoError(Loop(strings.NewReader(input), &out))

	got := out.String()
	r.Contains(got, "=> [1, [...]]\n")
	r.Contains(got, "=> 2\n")
	r.Contains(got, "=> 0\n")
	r.Contains(got, "Error: (get nope 0): nope: unbound variable\n")
	r.NotContains(got, "unreached")
}

func TestLoop_Commands(t *testing.T) {
	r := require.New(t)
	var out bytes.Buffer
	r.NoError(Loop(strings.NewReader("help\nstats\n(let\n"), &out))
	got := out.String()
	r.Contains(got, "Commands:")
	r.Contains(got, "allocated=0 live=0")
	r.NotContains(got, "Goodbye!")
}

func TestDepth(t *testing.T) {
	tests := []struct {
		src  string
		want int
	}{
		{"(a (b)", 1},
		{"(a)", 0},
		{`(print ")")`, 0},
		{`(print "\"(")`, 0},
		{"(a ; (\n", 1},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, depth(tt.src), tt.src)
	}
}
