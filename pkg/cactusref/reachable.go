package cactusref

// Reachable lets a wrapped value declare edges that were never registered
// with Adopt, for example handles hidden inside a custom container.
//
// ObjectID must be stable for the lifetime of the value and unique among the
// values that can reach each other. In an arena created WithHiddenEdgeScan a
// later block with the same ObjectID replaces the earlier one in the index,
// and hidden edges to the earlier block are no longer found. CanReach must
// return true for every object the value reaches through a path the Links
// graph does not encode, and false otherwise.
//
// Implementations are trusted. Reporting an edge that does not exist lets the
// collector tear down values that are still in use. Missing an edge that does
// exist keeps the whole component alive forever. Neither mistake is detected
// at runtime.
//
// Values that do not implement Reachable reach nothing beyond their Links.
type Reachable interface {
	ObjectID() uintptr
	CanReach(id uintptr) bool
}

// Dropper is implemented by values that own resources, typically nested
// strong handles, which must be released when the value is destroyed.
//
// When the value is torn down as part of a collected component, the other
// members are already condemned. DropValue may drop handles to them but must
// not Clone them; Clone panics on a condemned block.
type Dropper interface {
	DropValue()
}

// reachableOf returns the Reachable view of a value, if it has one.
func reachableOf[T any](v *T) (Reachable, bool) {
	if r, ok := any(v).(Reachable); ok {
		return r, true
	}
	r, ok := any(*v).(Reachable)
	return r, ok
}
