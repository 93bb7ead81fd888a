package cactusref

import (
	"log/slog"
	"os"
)

// abort terminates the process on a corrupted count. Overflowing a count is
// not a recoverable condition, so this does not panic.
var abort = func(reason string) {
	slog.Error("cactusref: aborting", slog.String("reason", reason))
	os.Exit(134)
}
