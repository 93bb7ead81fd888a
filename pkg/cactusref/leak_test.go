package cactusref

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

const payloadSize = 16 << 10

// heapInUse returns the live heap after a full collection.
func heapInUse() uint64 {
	runtime.GC()
	runtime.GC()
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// buildRing links n payload-carrying nodes into a ring and drops every
// handle the caller held.
func buildRing(a *Arena, n int, adopt bool) {
	nodes := make([]*Rc[*node], n)
	for i := range nodes {
		nodes[i] = NewIn(a, &node{payload: make([]byte, payloadSize)})
	}
	for i := range nodes {
		next := nodes[(i+1)%n]
		v := *nodes[i].Deref()
		v.next = append(v.next, next.Clone())
		if adopt {
			nodes[i].Adopt(next)
		}
	}
	dropAll(nodes)
}

func TestLeak_RingReturnsToBaseline(t *testing.T) {
	if testing.Short() {
		t.Skip("memory measurement")
	}
	r := require.New(t)
	a := NewArena()
	const iterations = 100

	before := heapInUse()
	for range iterations {
		buildRing(a, 10, true)
	}
	after := heapInUse()
	runtime.KeepAlive(a)

	r.Equal(0, a.Len())
	r.Equal(iterations, a.Stats().Collections)
	// 100 leaked rings would hold ~16MiB of payload.
	r.Less(int64(after)-int64(before), int64(2<<20))
}

func TestLeak_PlainRefcountRingIsRetained(t *testing.T) {
	if testing.Short() {
		t.Skip("memory measurement")
	}
	r := require.New(t)
	a := NewArena()
	const iterations = 50

	before := heapInUse()
	for range iterations {
		buildRing(a, 10, false)
	}
	after := heapInUse()

	r.Equal(iterations*10, a.Len())
	r.Greater(int64(after)-int64(before), int64(iterations*10*payloadSize/2))
	runtime.KeepAlive(a)
}

func TestLeak_ManyIterationsNoResidue(t *testing.T) {
	r := require.New(t)
	a := NewArena()

	for i := range 200 {
		size := i%12 + 1
		nodes := newNodes(a, size)
		for j := range nodes {
			// One handle per distinct target, matching one edge per target.
			first, second := (j+1)%size, (j*7+3)%size
			link(nodes[j], nodes[first])
			if second != first {
				link(nodes[j], nodes[second])
			}
		}
		if i%2 == 0 {
			dropAll(nodes)
		} else {
			for j := len(nodes) - 1; j >= 0; j-- {
				nodes[j].Drop()
			}
		}
	}
	r.Equal(0, a.Len())
	r.Equal(0, a.Stats().LiveValues())
}
