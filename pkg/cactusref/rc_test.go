package cactusref

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// node is a graph vertex that owns strong handles to its successors.
type node struct {
	name     string
	next     []*Rc[*node]
	onDrop   func(*node)
	payload  []byte
	destroys int
}

func (n *node) DropValue() {
	n.destroys++
	if n.onDrop != nil {
		n.onDrop(n)
	}
	for _, h := range n.next {
		h.Drop()
	}
	n.next = nil
}

// link stores a clone of to inside from and records the edge.
func link(from, to *Rc[*node]) {
	n := *from.Deref()
	n.next = append(n.next, to.Clone())
	from.Adopt(to)
}

func newNodes(a *Arena, n int) []*Rc[*node] {
	out := make([]*Rc[*node], n)
	for i := range out {
		out[i] = NewIn(a, &node{name: fmt.Sprintf("n%d", i)})
	}
	return out
}

func dropAll[T any](hs []*Rc[T]) {
	for _, h := range hs {
		h.Drop()
	}
}

func isClosed(r *Rc[*node]) bool {
	select {
	case <-r.Dropped():
		return true
	default:
		return false
	}
}

func TestNew_Counts(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	h := NewIn(a, &node{name: "solo"})
	r.Equal(uint(1), h.StrongCount())
	r.Equal(uint(0), h.WeakCount())
	r.Equal("solo", (*h.Deref()).name)
	r.Equal(1, a.Len())

	h.Drop()
	r.Equal(0, a.Len())
	r.Equal(0, a.Stats().LiveValues())
}

func TestClone_SharesValue(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	h := NewIn(a, &node{name: "x"})
	c := h.Clone()
	r.True(h.PtrEq(c))
	r.Equal(uint(2), c.StrongCount())
	r.Same(*h.Deref(), *c.Deref())

	v := *h.Deref()
	h.Drop()
	r.Equal(uint(1), c.StrongCount())
	r.Equal(0, v.destroys)
	r.False(isClosed(c))

	w := c.Downgrade()
	c.Drop()
	r.Equal(1, v.destroys)
	r.Equal(1, a.Stats().ValuesDropped)
	r.Equal(1, a.Len(), "weak handle keeps the header")
	w.Drop()
	r.Equal(0, a.Len())
}

func TestDrop_Twice(t *testing.T) {
	h := New(1)
	h.Drop()
	assert.PanicsWithValue(t, "cactusref: use of dropped Rc", func() { h.Drop() })
}

func TestNew_NoArena(t *testing.T) {
	r := require.New(t)
	dropped := 0
	h := NewWithDrop(nil, "value", func(string) { dropped++ })
	c := h.Clone()
	h.Drop()
	r.Equal(0, dropped)
	c.Drop()
	r.Equal(1, dropped)
}

func TestNewWithDrop_OverridesDropper(t *testing.T) {
	r := require.New(t)
	a := NewArena()
	var seen string
	h := NewWithDrop(a, &node{name: "custom"}, func(n *node) { seen = n.name })
	v := *h.Deref()
	h.Drop()
	r.Equal("custom", seen)
	r.Equal(0, v.destroys)
}

func TestAcyclic_Chain(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	nodes := newNodes(a, 8)
	for i := 0; i+1 < len(nodes); i++ {
		link(nodes[i], nodes[i+1])
	}
	// Keep only the head.
	dropAll(nodes[1:])
	r.Equal(8, a.Stats().LiveValues())

	nodes[0].Drop()
	r.Equal(0, a.Len())
	r.Equal(0, a.Stats().LiveValues())
}

func TestAcyclic_Diamond(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	n := newNodes(a, 4)
	link(n[0], n[1])
	link(n[0], n[2])
	link(n[1], n[3])
	link(n[2], n[3])
	sink := n[3].Clone()
	dropAll(n[1:])
	r.Equal(uint(3), sink.StrongCount(), "held by both branches and sink")
	sink.Drop()

	n[0].Drop()
	r.Equal(0, a.Len())
}

func TestSelfAdopt(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	h := NewIn(a, &node{name: "self"})
	link(h, h)
	r.Equal(uint(2), h.StrongCount())
	r.True(h.Adopted(h))

	v := *h.Deref()
	h.Drop()
	r.Equal(1, v.destroys)
	r.Equal(0, a.Len())
	r.Equal(1, a.Stats().Collections)
}

func TestRing(t *testing.T) {
	for _, size := range []int{2, 3, 10, 64} {
		t.Run(fmt.Sprintf("n=%d", size), func(t *testing.T) {
			r := require.New(t)
			a := NewArena()

			nodes := newNodes(a, size)
			for i := range nodes {
				link(nodes[i], nodes[(i+1)%size])
			}
			for i := 0; i < size-1; i++ {
				nodes[i].Drop()
				r.Equal(size, a.Stats().LiveValues(), "ring still held by n%d", size-1)
			}
			last := *nodes[size-1].Deref()
			nodes[size-1].Drop()

			r.Equal(1, last.destroys)
			r.Equal(0, a.Len())
			r.Equal(0, a.Stats().LiveValues())
			r.Equal(1, a.Stats().Collections)
			r.Equal(size, a.Stats().CollectedBlocks)
		})
	}
}

func TestRing_ReverseDropOrder(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	nodes := newNodes(a, 10)
	for i := range nodes {
		link(nodes[i], nodes[(i+1)%len(nodes)])
	}
	for i := len(nodes) - 1; i >= 0; i-- {
		nodes[i].Drop()
	}
	r.Equal(0, a.Len())
}

func TestFullyConnected(t *testing.T) {
	for _, size := range []int{1, 2, 5, 16} {
		t.Run(fmt.Sprintf("n=%d", size), func(t *testing.T) {
			r := require.New(t)
			a := NewArena()

			nodes := newNodes(a, size)
			for _, from := range nodes {
				for _, to := range nodes {
					link(from, to)
				}
			}
			for _, h := range nodes {
				r.Equal(uint(size+1), h.StrongCount())
			}
			dropAll(nodes)
			r.Equal(0, a.Len())
			r.Equal(0, a.Stats().LiveValues())
		})
	}
}

func TestLiveness_ExternalHandle(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	nodes := newNodes(a, 5)
	for i := range nodes {
		link(nodes[i], nodes[(i+1)%len(nodes)])
	}
	keep := nodes[3].Clone()
	dropAll(nodes)

	r.Equal(5, a.Stats().LiveValues())
	// Walk the ring through the surviving handle.
	cur := keep
	names := make([]string, 0, 5)
	for range 5 {
		v := *cur.Deref()
		names = append(names, v.name)
		cur = v.next[0]
	}
	r.Equal([]string{"n3", "n4", "n0", "n1", "n2"}, names)
	r.True(cur.PtrEq(keep))

	keep.Drop()
	r.Equal(0, a.Len())
}

func TestLiveness_OwnedFromOutside(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	ring := newNodes(a, 2)
	link(ring[0], ring[1])
	link(ring[1], ring[0])

	outside := NewIn(a, &node{name: "outside"})
	link(outside, ring[0])

	dropAll(ring)
	r.Equal(3, a.Stats().LiveValues(), "outside still owns the ring")

	outside.Drop()
	r.Equal(0, a.Len())
}

func TestNestedComponents(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	outer := newNodes(a, 2)
	link(outer[0], outer[1])
	link(outer[1], outer[0])
	inner := newNodes(a, 3)
	for i := range inner {
		link(inner[i], inner[(i+1)%len(inner)])
	}
	link(outer[1], inner[0])

	dropAll(inner)
	r.Equal(5, a.Stats().LiveValues())
	dropAll(outer)
	r.Equal(0, a.Len())
}

func TestTeardown_DestroysEachValueOnce(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	nodes := newNodes(a, 6)
	values := make([]*node, len(nodes))
	for i, h := range nodes {
		values[i] = *h.Deref()
		for j := range nodes {
			if j != i {
				link(h, nodes[j])
			}
		}
	}
	dropAll(nodes)
	for _, v := range values {
		r.Equal(1, v.destroys, v.name)
	}
}

func TestAdopt_Idempotent(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	x := NewIn(a, &node{name: "x"})
	y := NewIn(a, &node{name: "y"})
	x.Adopt(y)
	x.Adopt(y)
	r.Equal(1, x.box.links.Len())
	r.Equal(uint(1), y.StrongCount(), "adopt does not touch counts")

	x.Unadopt(y)
	r.False(x.Adopted(y))
	r.Equal(0, x.box.links.Len())

	x.Drop()
	y.Drop()
	r.Equal(0, a.Len())
}

func TestUnadopt_BreaksCycle(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	n := newNodes(a, 2)
	link(n[0], n[1])
	link(n[1], n[0])

	// Remove the back edge the way a host would: forget the edge, then drop
	// the stored handle.
	back := *n[1].Deref()
	n[1].Unadopt(n[0])
	back.next[0].Drop()
	back.next = nil

	dropAll(n)
	r.Equal(0, a.Len())
}

func TestPlainRefcount_LeaksCycle(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	nodes := newNodes(a, 10)
	for i := range nodes {
		n := *nodes[i].Deref()
		n.next = append(n.next, nodes[(i+1)%len(nodes)].Clone())
	}
	dropAll(nodes)

	// Without adopted edges the ring is invisible to the collector.
	r.Equal(10, a.Stats().LiveValues())
	r.Equal(10, a.Len())
}

func TestAdoptWithoutHandle_StrayDropIsNoop(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	x := NewIn(a, &node{name: "x"})
	y := NewIn(a, &node{name: "y"})
	xv, yv := *x.Deref(), *y.Deref()

	// x claims an edge to y but the handle lives outside x. The collector
	// trusts the edge, so y is torn down while the stray handle survives.
	x.Adopt(y)
	link(y, x)
	x.Drop()

	r.Equal(0, a.Stats().LiveValues())
	r.Equal(1, xv.destroys)
	r.Equal(1, yv.destroys)
	r.Equal(uint(0), y.StrongCount())

	r.NotPanics(func() { y.Drop() })
	r.Equal(0, a.Len())
}

func TestTryUnwrap(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	h := NewIn(a, &node{name: "moved"})
	c := h.Clone()
	_, ok := TryUnwrap(h)
	r.False(ok)
	h.Drop()

	w := c.Downgrade()
	v, ok := TryUnwrap(c)
	r.True(ok)
	r.Equal("moved", v.name)
	r.Equal(0, v.destroys, "moving out does not run the destructor")
	r.False(w.Upgrade().Ok)
	w.Drop()
	r.Equal(0, a.Len())
}

func TestGetMut(t *testing.T) {
	r := require.New(t)

	h := New(41)
	p, ok := h.GetMut()
	r.True(ok)
	*p++
	r.Equal(42, *h.Deref())

	w := h.Downgrade()
	_, ok = h.GetMut()
	r.False(ok)
	w.Drop()

	c := h.Clone()
	_, ok = h.GetMut()
	r.False(ok)
	c.Drop()
	h.Drop()
}

func TestDropped_Signal(t *testing.T) {
	r := require.New(t)
	h := NewIn(NewArena(), &node{name: "sig"})
	c := h.Clone()
	done := c.Dropped()
	h.Drop()
	r.False(isClosed(c))
	c.Drop()
	select {
	case <-done:
	default:
		r.Fail("dropped signal not fired")
	}
}

func TestOverflow_Aborts(t *testing.T) {
	prev := abort
	defer func() { abort = prev }()
	abort = func(reason string) { panic(reason) }

	h := New("x")
	h.box.strong = ^uint(0)
	assert.PanicsWithValue(t, "strong count overflow", func() { h.Clone() })

	h.box.strong = 1
	h.box.weak = ^uint(0)
	assert.PanicsWithValue(t, "weak count overflow", func() { h.Downgrade() })
}

func TestUnderflow_Aborts(t *testing.T) {
	prev := abort
	defer func() { abort = prev }()
	abort = func(reason string) { panic(reason) }

	h := New("x")
	h.box.strong = 0
	assert.PanicsWithValue(t, "strong count underflow", h.Drop)

	g := New("y")
	w := g.Downgrade()
	w.box.weak = 0
	assert.PanicsWithValue(t, "weak count underflow", w.Drop)
}

// twoRing builds a <-> b and returns both handles.
func twoRing(a *Arena) (*Rc[*node], *Rc[*node]) {
	nodes := newNodes(a, 2)
	link(nodes[0], nodes[1])
	link(nodes[1], nodes[0])
	return nodes[0], nodes[1]
}

func TestCollect_ReleasesUnadoptedHandle(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	ra, rb := twoRing(a)
	x := NewIn(a, &node{name: "x"})
	xv := *x.Deref()
	// ra owns a handle to x but never adopts it.
	(*ra.Deref()).next = append((*ra.Deref()).next, x.Clone())
	w := x.Downgrade()

	x.Drop()
	r.Equal(0, xv.destroys)
	ra.Drop()
	rb.Drop()

	r.Equal(1, xv.destroys)
	r.False(w.Upgrade().Ok)
	r.Equal(1, a.Len(), "weak handle keeps the header of x")
	w.Drop()
	r.Equal(0, a.Len())
	r.Equal(0, a.Stats().LiveValues())
}

func TestCollect_OutsideTargetSurvives(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	ra, rb := twoRing(a)
	x := NewIn(a, &node{name: "x"})
	xv := *x.Deref()
	(*ra.Deref()).next = append((*ra.Deref()).next, x.Clone())
	w := x.Downgrade()

	ra.Drop()
	rb.Drop()
	r.Equal(2, a.Stats().CollectedBlocks)
	r.Equal(0, xv.destroys)
	r.Equal(uint(1), x.StrongCount())

	up := w.Upgrade()
	r.True(up.Ok)
	r.Equal("x", (*up.Value.Deref()).name)
	up.Value.Drop()
	w.Drop()

	x.Drop()
	r.Equal(1, xv.destroys)
	r.Equal(0, a.Len())
}

func TestCollect_DeadCycleIntoHeldNodeLeaks(t *testing.T) {
	r := require.New(t)

	a := NewArena()
	ra, rb := twoRing(a)
	y := NewIn(a, &node{name: "y"})
	link(rb, y)
	ra.Drop()
	rb.Drop()
	y.Drop()
	// Known leak: the last sweep starts at y and never sees the dead ring
	// that points at it.
	r.Equal(3, a.Len())
	r.Equal(3, a.Stats().LiveValues())

	a = NewArena()
	ra, rb = twoRing(a)
	y = NewIn(a, &node{name: "y"})
	link(rb, y)
	y.Drop()
	rb.Drop()
	ra.Drop()
	r.Equal(0, a.Len())
}

func TestCollect_CloneDuringTeardownPanics(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	ra, rb := twoRing(a)
	va := *ra.Deref()
	va.onDrop = func(n *node) {
		assert.PanicsWithValue(t, "cactusref: clone of a collected value (condemned)", func() {
			n.next[0].Clone()
		})
	}
	ra.Drop()
	rb.Drop()

	r.Equal(1, va.destroys)
	r.Equal(0, a.Len())
}
