package heap

import "log/slog"

// Scope owns root values, the way a stack frame owns its locals.
type Scope struct {
	Parent *Scope
	roots  []Value
}

func newScope(parent *Scope) *Scope {
	return &Scope{Parent: parent}
}

// Bind transfers ownership of v to the scope and returns it for convenience.
func (s *Scope) Bind(v Value) Value {
	if v.IsRef() || v.IsWeak() {
		s.roots = append(s.roots, v)
	}
	return v
}

// Unbind gives up the scope's ownership of v without releasing it. It reports
// whether v was one of the scope's roots.
func (s *Scope) Unbind(v Value) bool {
	for i, r := range s.roots {
		if r.Kind == v.Kind && r.Ref == v.Ref && r.Weak == v.Weak {
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of roots the scope owns
func (s *Scope) Len() int {
	return len(s.roots)
}

// Release drops every root owned by this scope, newest first.
func (s *Scope) Release() {
	for i := len(s.roots) - 1; i >= 0; i-- {
		s.roots[i].Release()
	}
	s.roots = nil
}

// Current returns the innermost scope
func (h *Heap) Current() *Scope {
	return h.scopes[len(h.scopes)-1]
}

// Depth returns the number of open scopes, including the root scope
func (h *Heap) Depth() int {
	return len(h.scopes)
}

// EnterScope creates and enters a new scope
func (h *Heap) EnterScope() *Scope {
	s := newScope(h.Current())
	h.scopes = append(h.scopes, s)
	return s
}

// ExitScope exits the current scope and releases its roots
func (h *Heap) ExitScope() error {
	if len(h.scopes) <= 1 {
		return ErrRootScope
	}
	s := h.scopes[len(h.scopes)-1]
	h.scopes = h.scopes[:len(h.scopes)-1]

	before := h.arena.Stats()
	s.Release()
	after := h.arena.Stats()
	h.log.Debug("heap: scope exited",
		slog.Int("depth", len(h.scopes)),
		slog.Int("destroyed", after.ValuesDropped-before.ValuesDropped),
		slog.Int("collections", after.Collections-before.Collections))
	return nil
}

// Close releases every scope, including the root scope.
func (h *Heap) Close() {
	for len(h.scopes) > 1 {
		_ = h.ExitScope()
	}
	h.scopes[0].Release()
}
