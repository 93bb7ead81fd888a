package script

import "cactus_go/pkg/heap"

// frame maps names to values owned by a heap scope.
type frame struct {
	parent *frame
	scope  *heap.Scope
	vars   map[string]heap.Value
}

func newFrame(parent *frame, scope *heap.Scope) *frame {
	return &frame{parent: parent, scope: scope, vars: make(map[string]heap.Value)}
}

// lookup finds the frame that binds name
func (f *frame) lookup(name string) (*frame, heap.Value, bool) {
	for e := f; e != nil; e = e.parent {
		if v, ok := e.vars[name]; ok {
			return e, v, true
		}
	}
	return nil, heap.Nil, false
}

// bind stores an owned value under name, releasing what the name held before.
func (f *frame) bind(name string, v heap.Value) {
	prev, existed := f.vars[name]
	f.vars[name] = f.scope.Bind(v)
	if existed {
		f.unbind(prev)
	}
}

// remove forgets name and releases its value.
func (f *frame) remove(name string) {
	prev := f.vars[name]
	delete(f.vars, name)
	f.unbind(prev)
}

func (f *frame) unbind(v heap.Value) {
	if f.scope.Unbind(v) {
		v.Release()
	}
}
