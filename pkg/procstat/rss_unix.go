//go:build unix

package procstat

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// MaxRSS returns the peak resident set size of the process in bytes.
func MaxRSS() (int64, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, fmt.Errorf("getrusage: %w", err)
	}
	return rssBytes(runtime.GOOS, int64(ru.Maxrss)), nil
}

// rssBytes converts ru_maxrss to bytes. darwin and ios report bytes, every
// other unix reports kilobytes.
func rssBytes(goos string, maxrss int64) int64 {
	if goos == "darwin" || goos == "ios" {
		return maxrss
	}
	return maxrss * 1024
}
