// Package heap is a small host value layer on top of cactusref. Arrays and
// hashes may hold each other, and themselves, in any shape; the heap adopts an
// edge every time it stores a handle so cycles are reclaimed when the last
// outside handle goes away.
package heap

import (
	"errors"
	"fmt"
	"log/slog"

	"cactus_go/pkg/cactusref"
)

var (
	ErrNotArray   = errors.New("not an array")
	ErrNotHash    = errors.New("not a hash")
	ErrNotObject  = errors.New("not an object")
	ErrIndex      = errors.New("index out of range")
	ErrRootScope  = errors.New("cannot exit root scope")
	ErrCollected  = errors.New("object has been collected")
	ErrNotWeakRef = errors.New("not a weak reference")
)

// Heap allocates host objects in one cactusref arena and tracks root scopes.
type Heap struct {
	arena  *cactusref.Arena
	log    *slog.Logger
	nextID uint64
	scopes []*Scope
}

// Option configures a Heap.
type Option func(*Heap)

// WithLogger sets the logger shared by the heap and its arena.
func WithLogger(l *slog.Logger) Option {
	return func(h *Heap) {
		h.log = l
	}
}

// New creates a heap with an empty root scope.
func New(opts ...Option) *Heap {
	h := &Heap{log: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	h.arena = cactusref.NewArena(cactusref.WithLogger(h.log))
	h.scopes = []*Scope{newScope(nil)}
	return h
}

// Stats returns the arena counters.
func (h *Heap) Stats() cactusref.Stats {
	return h.arena.Stats()
}

// Live returns the number of objects whose header has not been released.
func (h *Heap) Live() int {
	return h.arena.Len()
}

func (h *Heap) alloc(kind ObjKind) Value {
	h.nextID++
	obj := newObject(h.nextID, kind)
	return Value{Kind: KRef, Ref: cactusref.NewIn(h.arena, obj)}
}

// NewArray allocates an array holding items. The result is owned by the caller.
func (h *Heap) NewArray(items ...Value) Value {
	arr := h.alloc(Array)
	obj := arr.Object()
	for _, it := range items {
		obj.elems = append(obj.elems, obj.store(arr.Ref, it))
	}
	return arr
}

// NewHash allocates an empty hash. The result is owned by the caller.
func (h *Heap) NewHash() Value {
	return h.alloc(Hash)
}

func expect(v Value, kind ObjKind) (*Object, error) {
	obj := v.Object()
	if obj == nil {
		return nil, fmt.Errorf("%s: %w", KindName(v.Kind), ErrNotObject)
	}
	if obj.Kind != kind {
		if kind == Array {
			return nil, fmt.Errorf("%s#%d: %w", obj.Kind, obj.ID, ErrNotArray)
		}
		return nil, fmt.Errorf("%s#%d: %w", obj.Kind, obj.ID, ErrNotHash)
	}
	return obj, nil
}

// Push appends v to arr.
func (h *Heap) Push(arr, v Value) error {
	obj, err := expect(arr, Array)
	if err != nil {
		return err
	}
	obj.elems = append(obj.elems, obj.store(arr.Ref, v))
	return nil
}

// Set overwrites slot i of arr.
func (h *Heap) Set(arr Value, i int, v Value) error {
	obj, err := expect(arr, Array)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(obj.elems) {
		return fmt.Errorf("set %d of %d: %w", i, len(obj.elems), ErrIndex)
	}
	// Store first so that overwriting a slot with the value it already
	// holds never lets the count fall to zero in between.
	next := obj.store(arr.Ref, v)
	prev := obj.elems[i]
	obj.elems[i] = next
	obj.unstore(arr.Ref, prev)
	return nil
}

// Pop removes and returns the last element of arr.
func (h *Heap) Pop(arr Value) (Value, error) {
	obj, err := expect(arr, Array)
	if err != nil {
		return Nil, err
	}
	if len(obj.elems) == 0 {
		return Nil, fmt.Errorf("pop of empty array: %w", ErrIndex)
	}
	last := obj.elems[len(obj.elems)-1]
	obj.elems = obj.elems[:len(obj.elems)-1]
	out := last.Clone()
	obj.unstore(arr.Ref, last)
	return out, nil
}

// Index returns slot i of arr. The result is owned by the caller.
func (h *Heap) Index(arr Value, i int) (Value, error) {
	obj, err := expect(arr, Array)
	if err != nil {
		return Nil, err
	}
	if i < 0 || i >= len(obj.elems) {
		return Nil, fmt.Errorf("index %d of %d: %w", i, len(obj.elems), ErrIndex)
	}
	return obj.elems[i].Clone(), nil
}

// Put stores v under key in hash.
func (h *Heap) Put(hash Value, key string, v Value) error {
	obj, err := expect(hash, Hash)
	if err != nil {
		return err
	}
	next := obj.store(hash.Ref, v)
	prev, existed := obj.fields[key]
	obj.fields[key] = next
	if !existed {
		obj.keys = append(obj.keys, key)
		return nil
	}
	obj.unstore(hash.Ref, prev)
	return nil
}

// Lookup returns the value under key. The result is owned by the caller.
func (h *Heap) Lookup(hash Value, key string) (Value, bool, error) {
	obj, err := expect(hash, Hash)
	if err != nil {
		return Nil, false, err
	}
	v, ok := obj.fields[key]
	if !ok {
		return Nil, false, nil
	}
	return v.Clone(), true, nil
}

// Delete removes key from hash and reports whether it was present.
func (h *Heap) Delete(hash Value, key string) (bool, error) {
	obj, err := expect(hash, Hash)
	if err != nil {
		return false, err
	}
	prev, ok := obj.fields[key]
	if !ok {
		return false, nil
	}
	delete(obj.fields, key)
	for i, k := range obj.keys {
		if k == key {
			obj.keys = append(obj.keys[:i], obj.keys[i+1:]...)
			break
		}
	}
	obj.unstore(hash.Ref, prev)
	return true, nil
}

// Len returns the slot count of an array or hash.
func (h *Heap) Len(v Value) (int, error) {
	obj := v.Object()
	if obj == nil {
		return 0, fmt.Errorf("len of %s: %w", KindName(v.Kind), ErrNotObject)
	}
	return obj.Len(), nil
}

// Downgrade returns a weak handle to the object behind v.
func (h *Heap) Downgrade(v Value) (Value, error) {
	if !v.IsRef() {
		return Nil, fmt.Errorf("downgrade %s: %w", KindName(v.Kind), ErrNotObject)
	}
	return Value{Kind: KWeak, Weak: v.Ref.Downgrade()}, nil
}

// Upgrade turns a weak value back into a strong one while the object is alive.
func (h *Heap) Upgrade(v Value) (Value, error) {
	if !v.IsWeak() {
		return Nil, fmt.Errorf("upgrade %s: %w", KindName(v.Kind), ErrNotWeakRef)
	}
	up := v.Weak.Upgrade()
	if !up.Ok {
		return Nil, ErrCollected
	}
	return Value{Kind: KRef, Ref: up.Value}, nil
}
