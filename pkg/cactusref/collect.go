package cactusref

import "log/slog"

// component is the set of live blocks reachable from a sweep root, with the
// distinct edges between them.
type component[T any] struct {
	members []*rcBox[T]
	index   map[*rcBox[T]]int
	edges   [][]int
	seen    map[[2]int]struct{}
}

func (c *component[T]) add(b *rcBox[T]) int {
	if i, ok := c.index[b]; ok {
		return i
	}
	i := len(c.members)
	c.index[b] = i
	c.members = append(c.members, b)
	c.edges = append(c.edges, nil)
	return i
}

// edge records from -> to once, adding to as a member if needed.
func (c *component[T]) edge(from int, to *rcBox[T]) {
	j := c.add(to)
	key := [2]int{from, j}
	if _, dup := c.seen[key]; dup {
		return
	}
	c.seen[key] = struct{}{}
	c.edges[from] = append(c.edges[from], j)
}

// discover walks outward from root along adopted edges and edges declared
// through Reachable.
func discover[T any](root *rcBox[T]) *component[T] {
	c := &component[T]{
		index: make(map[*rcBox[T]]int),
		seen:  make(map[[2]int]struct{}),
	}
	c.add(root)

	for i := 0; i < len(c.members); i++ {
		src := c.members[i]
		src.links.Each(func(l Link[T]) bool {
			if l.box.live() {
				c.edge(i, l.box)
			}
			return true
		})

		reach, ok := src.reachable()
		if !ok || !src.scansArena() {
			continue
		}
		src.arena.eachIndexed(func(id uintptr, box any) {
			dst, ok := box.(*rcBox[T])
			if !ok || !dst.live() || src.links.Contains(Link[T]{box: dst}) {
				return
			}
			if reach.CanReach(id) {
				c.edge(i, dst)
			}
		})
	}

	// Without an arena-wide scan, hidden edges are only resolved between
	// members the walk already found.
	for i := 0; i < len(c.members); i++ {
		src := c.members[i]
		if src.scansArena() {
			continue
		}
		reach, ok := src.reachable()
		if !ok {
			continue
		}
		for _, dst := range c.members {
			if !dst.hasID || src.links.Contains(Link[T]{box: dst}) {
				continue
			}
			if reach.CanReach(dst.objectID) {
				c.edge(i, dst)
			}
		}
	}
	return c
}

func (b *rcBox[T]) scansArena() bool {
	return b.arena != nil && b.arena.scanHidden
}

// inDegrees counts, for every member, the distinct edges from other members
// (or itself) that target it.
func (c *component[T]) inDegrees() []uint {
	in := make([]uint, len(c.members))
	for _, targets := range c.edges {
		for _, j := range targets {
			in[j]++
		}
	}
	return in
}

// garbage reports whether every strong handle to every member is held by a
// member of the component.
func (c *component[T]) garbage() bool {
	in := c.inDegrees()
	for i, m := range c.members {
		if m.strong != in[i] {
			return false
		}
	}
	return true
}

// sweep decides whether the component containing b has become unreachable
// and collects it if so.
func (b *rcBox[T]) sweep() {
	if b.arena != nil {
		b.arena.sweepStarted()
	}
	c := discover(b)
	if !c.garbage() {
		b.logger().Debug("cactusref: component retained",
			slog.Int("members", len(c.members)),
			slog.Uint64("strong", uint64(b.strong)))
		return
	}
	c.collect()
	if b.arena != nil {
		b.arena.collected(len(c.members))
	}
	b.logger().Debug("cactusref: component collected",
		slog.Int("members", len(c.members)))
}

// collect tears down every member. Members are condemned first so that the
// drops performed by value destructors only adjust counts.
func (c *component[T]) collect() {
	for _, m := range c.members {
		m.state = stateCondemned
	}
	for _, m := range c.members {
		m.destroyValue()
	}
	for _, m := range c.members {
		m.strong = 0
		m.state = stateDead
		m.links.Clear()
		m.releaseIfUnobserved()
	}
}
