package linkable

import (
	"slices"
)

// unionFind groups inodes proven equal. Inodes never passed to Union are their own singleton
// set and are not stored.
type unionFind struct {
	parent  map[uint64]uint64
	size    map[uint64]int
	members map[uint64][]uint64
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent:  make(map[uint64]uint64),
		size:    make(map[uint64]int),
		members: make(map[uint64][]uint64),
	}
}

func (u *unionFind) Find(x uint64) uint64 {
	root := x
	for {
		p, ok := u.parent[root]
		if !ok || p == root {
			break
		}
		root = p
	}

	// path compression
	for x != root {
		next := u.parent[x]
		u.parent[x] = root
		x = next
	}

	return root
}

// Union merges the sets holding a and b, returning false when they were already joined.
func (u *unionFind) Union(a, b uint64) bool {
	u.add(a)
	u.add(b)

	ra, rb := u.Find(a), u.Find(b)
	if ra == rb {
		return false
	}

	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}

	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
	u.members[ra] = append(u.members[ra], u.members[rb]...)
	delete(u.size, rb)
	delete(u.members, rb)

	return true
}

// Component returns every member of the set holding x, including x.
func (u *unionFind) Component(x uint64) []uint64 {
	if _, ok := u.parent[x]; !ok {
		return []uint64{x}
	}

	return u.members[u.Find(x)]
}

// Components returns all sets with more than one member, each sorted ascending, ordered by
// their smallest member.
func (u *unionFind) Components() [][]uint64 {
	var out [][]uint64
	for _, members := range u.members {
		if len(members) < 2 {
			continue
		}
		c := slices.Clone(members)
		slices.Sort(c)
		out = append(out, c)
	}

	slices.SortFunc(out, func(a, b []uint64) int {
		switch {
		case a[0] < b[0]:
			return -1
		case a[0] > b[0]:
			return 1
		}
		return 0
	})

	return out
}

func (u *unionFind) add(x uint64) {
	if _, ok := u.parent[x]; ok {
		return
	}

	u.parent[x] = x
	u.size[x] = 1
	u.members[x] = []uint64{x}
}
