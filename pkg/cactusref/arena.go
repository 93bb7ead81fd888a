package cactusref

import (
	"log/slog"
)

// Stats is a snapshot of the bookkeeping of an Arena.
type Stats struct {
	Allocated       int // control blocks created
	ValuesDropped   int // values destroyed or moved out
	Released        int // control blocks whose header was freed
	Sweeps          int // reachability sweeps started by a drop
	Collections     int // sweeps that found a garbage component
	CollectedBlocks int // blocks torn down by those collections
}

// Live returns the number of headers that have not been released.
func (s Stats) Live() int {
	return s.Allocated - s.Released
}

// LiveValues returns the number of values that have not been destroyed.
func (s Stats) LiveValues() int {
	return s.Allocated - s.ValuesDropped
}

// An Arena groups allocations that share accounting. Blocks stay registered
// until their header is released, so a leaked component remains visible
// through Len and Stats.
//
// By default CanReach is only asked about blocks a sweep has already found
// through Links. An arena created WithHiddenEdgeScan also indexes Reachable
// values by ObjectID and lets every sweep look up hidden edges to any block
// in that index, at a cost proportional to the index size per member.
//
// Like the handles it tracks, an Arena is not safe for concurrent use.
type Arena struct {
	log        *slog.Logger
	live       map[any]struct{}
	byID       map[uintptr]any
	scanHidden bool
	stats      Stats
}

// Option configures an Arena.
type Option func(*Arena)

// WithLogger sets the logger used for sweep and collection records.
func WithLogger(l *slog.Logger) Option {
	return func(a *Arena) {
		a.log = l
	}
}

// WithHiddenEdgeScan makes sweeps search the whole ObjectID index for hidden
// edges, so a block reached only through CanReach is still collected.
func WithHiddenEdgeScan() Option {
	return func(a *Arena) {
		a.scanHidden = true
	}
}

// NewArena creates an empty arena.
func NewArena(opts ...Option) *Arena {
	a := &Arena{
		log:  slog.Default(),
		live: make(map[any]struct{}),
		byID: make(map[uintptr]any),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Stats returns a snapshot of the arena's counters.
func (a *Arena) Stats() Stats {
	return a.stats
}

// Len returns the number of control blocks whose header is still allocated.
func (a *Arena) Len() int {
	return len(a.live)
}

func (a *Arena) register(box any, id uintptr, hasID bool) {
	a.live[box] = struct{}{}
	if hasID && a.scanHidden {
		if _, dup := a.byID[id]; dup {
			a.log.Debug("cactusref: duplicate object id replaces indexed block",
				slog.Uint64("id", uint64(id)))
		}
		a.byID[id] = box
	}
	a.stats.Allocated++
}

func (a *Arena) unregister(box any, id uintptr, hasID bool) {
	delete(a.live, box)
	if hasID && a.byID[id] == box {
		delete(a.byID, id)
	}
	a.stats.Released++
}

func (a *Arena) valueDropped() {
	a.stats.ValuesDropped++
}

func (a *Arena) sweepStarted() {
	a.stats.Sweeps++
}

func (a *Arena) collected(n int) {
	a.stats.Collections++
	a.stats.CollectedBlocks += n
}

// eachIndexed visits every block in the Reachable index.
func (a *Arena) eachIndexed(fn func(id uintptr, box any)) {
	for id, box := range a.byID {
		fn(id, box)
	}
}
