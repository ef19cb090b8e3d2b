// Package replacement tracks recency of cache ways and picks eviction victims.
package replacement

import "fmt"

// An LRU keeps a strict recency order of the tracked ways of every set.
//
// Invariants:
//   - each set owns a circular doubly linked list through its sentinel;
//     sentinel.next is the least recently used way, sentinel.prev the most
//     recently used one;
//   - a way is linked into at most one list, the list of its own set;
//   - size[set] equals the number of ways linked into the set's list.
type LRU struct {
	numSets int
	numWays int

	// nodes holds one node per way, indexed by set*numWays+way, followed by
	// one sentinel per set.
	nodes []node
	size  []int
}

type node struct {
	prev, next int
	linked     bool
}

// NewLRU creates an LRU for numSets sets of numWays ways each. No way is
// tracked initially.
func NewLRU(numSets, numWays int) *LRU {
	if numSets <= 0 || numWays <= 0 {
		panic(fmt.Sprintf("invalid LRU geometry %d sets x %d ways",
			numSets, numWays))
	}

	l := &LRU{
		numSets: numSets,
		numWays: numWays,
	}

	l.Reset()

	return l
}

// Reset stops tracking every way.
func (l *LRU) Reset() {
	l.nodes = make([]node, l.numSets*l.numWays+l.numSets)
	l.size = make([]int, l.numSets)

	for set := 0; set < l.numSets; set++ {
		s := l.sentinel(set)
		l.nodes[s] = node{prev: s, next: s}
	}
}

func (l *LRU) sentinel(set int) int {
	return l.numSets*l.numWays + set
}

func (l *LRU) index(set, way int) int {
	if set < 0 || set >= l.numSets || way < 0 || way >= l.numWays {
		panic(fmt.Sprintf("way (%d, %d) out of range", set, way))
	}

	return set*l.numWays + way
}

func (l *LRU) unlink(i int) {
	n := &l.nodes[i]
	l.nodes[n.prev].next = n.next
	l.nodes[n.next].prev = n.prev
	n.prev, n.next, n.linked = 0, 0, false
}

func (l *LRU) linkBefore(i, at int) {
	prev := l.nodes[at].prev
	l.nodes[i] = node{prev: prev, next: at, linked: true}
	l.nodes[prev].next = i
	l.nodes[at].prev = i
}

// Touch makes the way the most recently used way of its set. A way that is
// not tracked yet starts being tracked.
func (l *LRU) Touch(set, way int) {
	i := l.index(set, way)

	if l.nodes[i].linked {
		l.unlink(i)
	} else {
		l.size[set]++
	}

	l.linkBefore(i, l.sentinel(set))
}

// Remove stops tracking the way. Removing an untracked way panics.
func (l *LRU) Remove(set, way int) {
	i := l.index(set, way)

	if !l.nodes[i].linked {
		panic(fmt.Sprintf("way (%d, %d) is not tracked", set, way))
	}

	l.unlink(i)
	l.size[set]--
}

// Victim returns the least recently used way of the set. Asking for a victim
// of a set that tracks no way panics.
func (l *LRU) Victim(set int) int {
	l.index(set, 0)

	s := l.sentinel(set)
	if l.size[set] == 0 {
		panic(fmt.Sprintf("set %d has no way to evict", set))
	}

	return l.nodes[s].next - set*l.numWays
}

// Contains returns true if the way is tracked.
func (l *LRU) Contains(set, way int) bool {
	return l.nodes[l.index(set, way)].linked
}

// Len returns the number of ways tracked in the set.
func (l *LRU) Len(set int) int {
	l.index(set, 0)

	return l.size[set]
}

// Order lists the tracked ways of the set from the least to the most recently
// used.
func (l *LRU) Order(set int) []int {
	l.index(set, 0)

	s := l.sentinel(set)
	order := make([]int, 0, l.size[set])

	for i := l.nodes[s].next; i != s; i = l.nodes[i].next {
		order = append(order, i-set*l.numWays)
	}

	return order
}
