//go:build unix

package procstat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRSSBytes(t *testing.T) {
	for _, tt := range []struct {
		goos     string
		expected int64
	}{
		{"darwin", 4096},
		{"ios", 4096},
		{"linux", 4096 * 1024},
		{"freebsd", 4096 * 1024},
		{"openbsd", 4096 * 1024},
	} {
		t.Run(tt.goos, func(t *testing.T) {
			require.Equal(t, tt.expected, rssBytes(tt.goos, 4096))
		})
	}
}
