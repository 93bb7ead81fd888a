// Package cactusref provides single-threaded reference-counted handles that
// also reclaim reference cycles.
//
// Handles are released explicitly with Drop. When a value is stored inside
// another value, the owner records the edge with Adopt. Whenever a drop leaves
// a block with owners, the collector walks the edges reachable from that block
// and, if every owner of every block in that component is itself inside the
// component, tears the whole component down. The walk only touches the
// component, never the rest of the heap.
//
// Nothing in this package is safe for concurrent use.
package cactusref

import (
	"log/slog"

	"github.com/anacrolix/chansync/events"
)

// Rc is a strong handle. Each Rc owns one unit of its block's strong count
// and must be dropped exactly once.
type Rc[T any] struct {
	box *rcBox[T]
}

// CactusRef is an alias of Rc.
type CactusRef[T any] = Rc[T]

// New allocates value outside any arena and returns its first strong handle.
func New[T any](value T) *Rc[T] {
	return &Rc[T]{box: newBox(nil, value, nil)}
}

// NewIn allocates value in arena a.
func NewIn[T any](a *Arena, value T) *Rc[T] {
	return &Rc[T]{box: newBox(a, value, nil)}
}

// NewWithDrop allocates value in arena a (which may be nil) and calls drop
// with the value when it is destroyed. drop takes precedence over a Dropper
// implementation on the value.
func NewWithDrop[T any](a *Arena, value T, drop func(T)) *Rc[T] {
	return &Rc[T]{box: newBox(a, value, drop)}
}

func (r *Rc[T]) mustBox() *rcBox[T] {
	if r == nil || r.box == nil {
		panic("cactusref: use of dropped Rc")
	}
	return r.box
}

// Clone returns a new strong handle to the same value. It panics once the
// value has been collected or while its component is being torn down.
func (r *Rc[T]) Clone() *Rc[T] {
	b := r.mustBox()
	if !b.live() {
		panic("cactusref: clone of a collected value (" + b.state.String() + ")")
	}
	b.incStrong()
	return &Rc[T]{box: b}
}

// Adopt records that r's value owns a strong handle to other. It does not
// change any count. Adopting the same target twice records one edge, and a
// value may adopt itself.
func (r *Rc[T]) Adopt(other *Rc[T]) {
	b, target := r.mustBox(), other.mustBox()
	if !b.live() {
		return
	}
	b.links.Insert(Link[T]{box: target})
}

// Unadopt removes the edge from r to other, typically right before the
// handle stored in r's value is dropped.
func (r *Rc[T]) Unadopt(other *Rc[T]) {
	r.mustBox().links.Remove(Link[T]{box: other.mustBox()})
}

// Adopted reports whether r has an edge to other.
func (r *Rc[T]) Adopted(other *Rc[T]) bool {
	return r.mustBox().links.Contains(Link[T]{box: other.mustBox()})
}

// Downgrade returns a weak handle to the same value.
func (r *Rc[T]) Downgrade() *Weak[T] {
	b := r.mustBox()
	b.incWeak()
	return &Weak[T]{box: b}
}

// StrongCount returns the number of strong handles to the value.
func (r *Rc[T]) StrongCount() uint {
	return r.mustBox().strong
}

// WeakCount returns the number of weak handles to the value.
func (r *Rc[T]) WeakCount() uint {
	return r.mustBox().weak
}

// Deref returns a pointer to the value. The pointer must not be retained
// past the handle. During a collection the value of a condemned block may
// already have been reset to its zero value.
func (r *Rc[T]) Deref() *T {
	return &r.mustBox().value
}

// GetMut returns the value when r is the only handle of either kind.
func (r *Rc[T]) GetMut() (*T, bool) {
	b := r.mustBox()
	if b.strong != 1 || b.weak != 0 || !b.live() {
		return nil, false
	}
	return &b.value, true
}

// PtrEq reports whether both handles refer to the same allocation.
func (r *Rc[T]) PtrEq(other *Rc[T]) bool {
	return r.mustBox() == other.mustBox()
}

// Dropped is closed once the value has been destroyed or moved out.
func (r *Rc[T]) Dropped() events.Done {
	return r.mustBox().dropped.Done()
}

// TryUnwrap moves the value out of r when r is the only strong handle. On
// success r is consumed, outgoing edges are discarded, and weak handles can
// no longer upgrade. On failure r is left untouched.
func TryUnwrap[T any](r *Rc[T]) (T, bool) {
	b := r.mustBox()
	if b.strong != 1 || !b.live() {
		var zero T
		return zero, false
	}
	r.box = nil
	b.strong = 0
	b.state = stateDead
	v := b.takeValue()
	b.links.Clear()
	b.releaseIfUnobserved()
	return v, true
}

// Drop releases r's strong count. If no strong handles remain, the value is
// destroyed. Otherwise the component reachable from the value is checked and
// collected when nothing outside it keeps it alive.
//
// Dropping the same handle twice panics.
func (r *Rc[T]) Drop() {
	b := r.mustBox()
	r.box = nil

	if !b.live() {
		// The block is being torn down, or was torn down while this handle was
		// not accounted for by an edge. Either way there is nothing to decide.
		if b.strong > 0 {
			b.strong--
		}
		b.releaseIfUnobserved()
		return
	}

	b.decStrong()
	if b.strong == 0 {
		b.state = stateDead
		b.destroyValue()
		b.links.Clear()
		b.releaseIfUnobserved()
		return
	}

	b.sweep()
}

func (b *rcBox[T]) logger() *slog.Logger {
	if b.arena != nil {
		return b.arena.log
	}
	return slog.Default()
}
