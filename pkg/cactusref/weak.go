package cactusref

import (
	"github.com/anacrolix/generics"
)

// Weak is a non-owning handle. It keeps the control block's header readable
// but never keeps the value alive.
type Weak[T any] struct {
	box     *rcBox[T]
	dropped bool
}

// CactusWeakRef is an alias of Weak.
type CactusWeakRef[T any] = Weak[T]

// NewWeak returns a dangling weak handle that never upgrades.
func NewWeak[T any]() *Weak[T] {
	return &Weak[T]{}
}

func (w *Weak[T]) check() {
	if w == nil || w.dropped {
		panic("cactusref: use of dropped Weak")
	}
}

// Upgrade returns a new strong handle while the value is alive. Once the
// value has been destroyed, or while its component is being torn down, it
// returns None.
func (w *Weak[T]) Upgrade() generics.Option[*Rc[T]] {
	w.check()
	b := w.box
	if b == nil || !b.live() || b.strong == 0 {
		return generics.None[*Rc[T]]()
	}
	b.incStrong()
	return generics.Some(&Rc[T]{box: b})
}

// Clone returns another weak handle to the same block.
func (w *Weak[T]) Clone() *Weak[T] {
	w.check()
	if w.box != nil {
		w.box.incWeak()
	}
	return &Weak[T]{box: w.box}
}

// StrongCount returns the number of strong handles, or 0 for a dangling handle.
func (w *Weak[T]) StrongCount() uint {
	w.check()
	if w.box == nil {
		return 0
	}
	return w.box.strong
}

// WeakCount returns the number of weak handles, or 0 for a dangling handle.
func (w *Weak[T]) WeakCount() uint {
	w.check()
	if w.box == nil {
		return 0
	}
	return w.box.weak
}

// PtrEq reports whether both handles refer to the same allocation. Two
// dangling handles are equal.
func (w *Weak[T]) PtrEq(other *Weak[T]) bool {
	w.check()
	other.check()
	return w.box == other.box
}

// Drop releases the weak count, freeing the header if this was the last
// handle of either kind. Dropping the same handle twice panics.
func (w *Weak[T]) Drop() {
	w.check()
	w.dropped = true
	b := w.box
	w.box = nil
	if b == nil {
		return
	}
	b.decWeak()
	b.releaseIfUnobserved()
}
