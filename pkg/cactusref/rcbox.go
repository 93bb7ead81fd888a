package cactusref

import (
	"math"

	"github.com/anacrolix/chansync"
	"github.com/anacrolix/generics"
)

// state tracks where a control block is in its teardown.
type state uint8

const (
	// stateLive blocks own their value.
	stateLive state = iota
	// stateCondemned blocks belong to a component that is being torn down.
	// Drops that land on them only adjust the count.
	stateCondemned
	// stateDead blocks no longer own a value. The header stays around while
	// weak handles remain.
	stateDead
)

func (s state) String() string {
	switch s {
	case stateLive:
		return "live"
	case stateCondemned:
		return "condemned"
	case stateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// rcBox is the control block shared by every handle to one allocation.
type rcBox[T any] struct {
	strong uint
	weak   uint
	links  Links[T]
	value  T
	state  state

	arena    *Arena
	drop     func(T)
	objectID uintptr
	hasID    bool
	released bool
	dropped  chansync.SetOnce
}

func newBox[T any](a *Arena, value T, drop func(T)) *rcBox[T] {
	b := &rcBox[T]{
		strong: 1,
		value:  value,
		arena:  a,
		drop:   drop,
	}
	if r, ok := reachableOf(&b.value); ok {
		b.objectID = r.ObjectID()
		b.hasID = true
	}
	if a != nil {
		a.register(b, b.objectID, b.hasID)
	}
	return b
}

func (b *rcBox[T]) incStrong() {
	if b.strong == math.MaxUint {
		abort("strong count overflow")
		return
	}
	b.strong++
}

func (b *rcBox[T]) decStrong() {
	if b.strong == 0 {
		abort("strong count underflow")
		return
	}
	b.strong--
}

func (b *rcBox[T]) incWeak() {
	if b.weak == math.MaxUint {
		abort("weak count overflow")
		return
	}
	b.weak++
}

func (b *rcBox[T]) decWeak() {
	if b.weak == 0 {
		abort("weak count underflow")
		return
	}
	b.weak--
}

func (b *rcBox[T]) live() bool {
	return b.state == stateLive
}

// reachable returns the value's Reachable view while the value is owned.
func (b *rcBox[T]) reachable() (Reachable, bool) {
	if b.state == stateDead {
		return nil, false
	}
	return reachableOf(&b.value)
}

// destroyValue runs the value's destructor exactly once and clears the slot.
func (b *rcBox[T]) destroyValue() {
	if !b.dropped.Set() {
		return
	}
	switch {
	case b.drop != nil:
		b.drop(b.value)
	default:
		if d, ok := any(&b.value).(Dropper); ok {
			d.DropValue()
		} else if d, ok := any(b.value).(Dropper); ok {
			d.DropValue()
		}
	}
	generics.SetZero(&b.value)
	b.drop = nil
	if b.arena != nil {
		b.arena.valueDropped()
	}
}

// takeValue moves the value out without running its destructor.
func (b *rcBox[T]) takeValue() T {
	v := b.value
	b.dropped.Set()
	generics.SetZero(&b.value)
	b.drop = nil
	if b.arena != nil {
		b.arena.valueDropped()
	}
	return v
}

// release frees the header once neither kind of handle remains.
func (b *rcBox[T]) release() {
	if b.released {
		return
	}
	b.released = true
	b.links.Clear()
	if b.arena != nil {
		b.arena.unregister(b, b.objectID, b.hasID)
	}
}

// releaseIfUnobserved frees a dead header that no handle can observe anymore.
func (b *rcBox[T]) releaseIfUnobserved() {
	if b.state == stateDead && b.strong == 0 && b.weak == 0 {
		b.release()
	}
}
