// Package procstat samples process-level memory figures.
package procstat

import (
	"errors"
	"runtime"
)

// ErrUnsupported is returned where the platform has no rusage equivalent.
var ErrUnsupported = errors.New("procstat: unsupported platform")

// Sample is a point-in-time view of process memory.
type Sample struct {
	MaxRSS    int64  // peak resident set size in bytes, 0 if unknown
	HeapAlloc uint64 // bytes of allocated heap objects
	NumGC     uint32
}

// Take reads the Go heap figures and, where supported, the peak RSS.
func Take() Sample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s := Sample{HeapAlloc: ms.HeapAlloc, NumGC: ms.NumGC}
	if rss, err := MaxRSS(); err == nil {
		s.MaxRSS = rss
	}
	return s
}
