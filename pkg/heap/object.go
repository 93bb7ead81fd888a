package heap

import (
	"slices"

	"cactus_go/pkg/cactusref"
)

// ObjKind distinguishes container shapes
type ObjKind int

const (
	Array ObjKind = iota
	Hash
)

func (k ObjKind) String() string {
	if k == Hash {
		return "hash"
	}
	return "array"
}

// owned is the single strong handle an object keeps for one distinct target,
// shared by every slot that refers to that target.
type owned struct {
	handle *cactusref.Rc[*Object]
	slots  int
}

// Object is a heap container. Slots hold borrowed views of the handles in
// owned, so one adopted edge always corresponds to one strong handle.
type Object struct {
	ID     uint64
	Kind   ObjKind
	elems  []Value
	keys   []string
	fields map[string]Value
	owned  map[*Object]*owned
}

func newObject(id uint64, kind ObjKind) *Object {
	o := &Object{
		ID:    id,
		Kind:  kind,
		owned: make(map[*Object]*owned),
	}
	if kind == Hash {
		o.fields = make(map[string]Value)
	}
	return o
}

// Len returns the number of slots
func (o *Object) Len() int {
	if o.Kind == Hash {
		return len(o.keys)
	}
	return len(o.elems)
}

// Keys returns hash keys in insertion order
func (o *Object) Keys() []string {
	return slices.Clone(o.keys)
}

// Targets returns the number of distinct objects this object owns
func (o *Object) Targets() int {
	return len(o.owned)
}

// DropValue releases every handle the object holds. It runs once, when the
// object itself is destroyed or collected.
func (o *Object) DropValue() {
	for _, v := range o.elems {
		if v.IsWeak() {
			v.Weak.Drop()
		}
	}
	for _, v := range o.fields {
		if v.IsWeak() {
			v.Weak.Drop()
		}
	}
	for _, ow := range o.owned {
		ow.handle.Drop()
	}
	o.elems = nil
	o.keys = nil
	o.fields = nil
	o.owned = nil
}

// store converts a borrowed value into a slot value owned by self.
func (o *Object) store(self *cactusref.Rc[*Object], v Value) Value {
	switch {
	case v.IsRef():
		target := *v.Ref.Deref()
		ow, ok := o.owned[target]
		if !ok {
			ow = &owned{handle: v.Ref.Clone()}
			o.owned[target] = ow
			self.Adopt(ow.handle)
		}
		ow.slots++
		return Value{Kind: KRef, Ref: ow.handle}
	case v.IsWeak():
		return Value{Kind: KWeak, Weak: v.Weak.Clone()}
	default:
		return v
	}
}

// unstore releases a slot value previously produced by store.
func (o *Object) unstore(self *cactusref.Rc[*Object], v Value) {
	switch {
	case v.IsRef():
		target := *v.Ref.Deref()
		ow, ok := o.owned[target]
		if !ok {
			return
		}
		ow.slots--
		if ow.slots > 0 {
			return
		}
		delete(o.owned, target)
		self.Unadopt(ow.handle)
		ow.handle.Drop()
	case v.IsWeak():
		v.Weak.Drop()
	}
}
