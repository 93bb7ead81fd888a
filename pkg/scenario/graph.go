// Package scenario builds the reference graphs that plain reference counting
// leaks and runs them against a cactusref arena.
package scenario

import (
	"errors"
	"fmt"
	"strings"

	"cactus_go/pkg/cactusref"
)

// Kind names a graph shape.
type Kind string

const (
	SelfRef Kind = "self"  // one node owning itself
	Ring    Kind = "ring"  // n nodes, each owning its successor
	Chain   Kind = "chain" // doubly linked list, neighbours own each other
	Mesh    Kind = "mesh"  // every node owns every node, itself included
)

// Kinds lists every shape in a stable order.
var Kinds = []Kind{SelfRef, Ring, Chain, Mesh}

// ErrUnknownKind is returned for a shape name that is not in Kinds.
var ErrUnknownKind = errors.New("unknown scenario")

// ParseKind maps a name to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == strings.ToLower(s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownKind)
}

// Node is a graph vertex. It owns one strong handle per successor.
type Node struct {
	ID      int
	Next    []*cactusref.Rc[*Node]
	Payload []byte
}

// DropValue releases the node's successors.
func (n *Node) DropValue() {
	for _, h := range n.Next {
		h.Drop()
	}
	n.Next = nil
}

// connect stores a handle to to inside from. With adopt unset the edge is
// invisible to the collector, which is plain reference counting.
func connect(from, to *cactusref.Rc[*Node], adopt bool) {
	n := *from.Deref()
	n.Next = append(n.Next, to.Clone())
	if adopt {
		from.Adopt(to)
	}
}

// Build allocates a graph of the given shape in a and returns the caller's
// handle to every node. SelfRef ignores n.
func Build(a *cactusref.Arena, kind Kind, n, payload int, adopt bool) ([]*cactusref.Rc[*Node], error) {
	if kind == SelfRef {
		n = 1
	}
	if n < 1 {
		return nil, fmt.Errorf("%s needs at least one node, got %d", kind, n)
	}
	nodes := make([]*cactusref.Rc[*Node], n)
	for i := range nodes {
		var buf []byte
		if payload > 0 {
			buf = make([]byte, payload)
		}
		nodes[i] = cactusref.NewIn(a, &Node{ID: i, Payload: buf})
	}

	switch kind {
	case SelfRef:
		connect(nodes[0], nodes[0], adopt)
	case Ring:
		for i, h := range nodes {
			connect(h, nodes[(i+1)%n], adopt)
		}
	case Chain:
		for i := 0; i+1 < n; i++ {
			connect(nodes[i], nodes[i+1], adopt)
			connect(nodes[i+1], nodes[i], adopt)
		}
	case Mesh:
		for _, from := range nodes {
			for _, to := range nodes {
				connect(from, to, adopt)
			}
		}
	default:
		dropAll(nodes)
		return nil, fmt.Errorf("%q: %w", kind, ErrUnknownKind)
	}
	return nodes, nil
}

func dropAll(nodes []*cactusref.Rc[*Node]) {
	for _, h := range nodes {
		h.Drop()
	}
}
