package procstat

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaxRSS(t *testing.T) {
	r := require.New(t)
	rss, err := MaxRSS()
	if runtime.GOOS == "windows" || runtime.GOOS == "js" || runtime.GOOS == "wasip1" {
		r.ErrorIs(err, ErrUnsupported)
		return
	}
	r.NoError(err)
	r.Positive(rss)
}

func TestTake(t *testing.T) {
	r := require.New(t)
	s := Take()
	r.NotZero(s.HeapAlloc)
}
