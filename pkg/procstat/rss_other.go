//go:build !unix

package procstat

// MaxRSS is not available on this platform.
func MaxRSS() (int64, error) {
	return 0, ErrUnsupported
}
