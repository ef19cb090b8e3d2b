package cache

import (
	"fmt"

	"github.com/sarchlab/compcache/mem/cache/internal/codec"
	"github.com/sarchlab/compcache/mem/cache/internal/replacement"
	"github.com/sarchlab/compcache/mem/cache/internal/tagging"
	"github.com/sarchlab/compcache/mem/mem"
)

// Builder can build caches.
type Builder struct {
	numSets      int
	numWays      int
	wordsPerLine int
	narrowBits   uint
	backend      mem.Backend
}

// MakeBuilder creates a builder with the geometry of the reference system:
// 1024 two-word lines in 256 four-way sets, packing 8-bit values.
func MakeBuilder() Builder {
	return Builder{
		numSets:      256,
		numWays:      4,
		wordsPerLine: 2,
		narrowBits:   codec.DefaultNarrowBits,
	}
}

// WithNumSets sets the number of sets.
func (b Builder) WithNumSets(numSets int) Builder {
	b.numSets = numSets
	return b
}

// WithNumWays sets the number of lines in a set.
func (b Builder) WithNumWays(numWays int) Builder {
	b.numWays = numWays
	return b
}

// WithWordsPerLine sets the number of words in a line.
func (b Builder) WithWordsPerLine(wordsPerLine int) Builder {
	b.wordsPerLine = wordsPerLine
	return b
}

// WithNarrowBits sets the bit budget of a compacted word.
func (b Builder) WithNarrowBits(narrowBits uint) Builder {
	b.narrowBits = narrowBits
	return b
}

// WithBackend sets the memory behind the cache. If not set, a new storage of
// mem.DefaultCapacity words is created.
func (b Builder) WithBackend(backend mem.Backend) Builder {
	b.backend = backend
	return b
}

// Build builds a cache.
func (b Builder) Build(name string) *Comp {
	b.mustBeValidGeometry()

	backend := b.backend
	if backend == nil {
		backend = mem.NewStorage(mem.DefaultCapacity)
	}

	if backend.Capacity()%uint64(b.wordsPerLine) != 0 {
		panic(fmt.Sprintf(
			"memory capacity %d is not a multiple of the line size %d",
			backend.Capacity(), b.wordsPerLine))
	}

	c := &Comp{
		name:         name,
		numSets:      b.numSets,
		numWays:      b.numWays,
		wordsPerLine: b.wordsPerLine,
		backend:      backend,
		storage: tagging.NewStorage(
			b.numSets,
			b.numWays,
			b.wordsPerLine,
			codec.New(b.narrowBits),
		),
		lru: replacement.NewLRU(b.numSets, b.numWays),
	}

	return c
}

func (b Builder) mustBeValidGeometry() {
	if b.numSets <= 0 || b.numWays <= 0 {
		panic(fmt.Sprintf("cache must have sets and ways, got %d x %d",
			b.numSets, b.numWays))
	}

	if b.wordsPerLine < 2 || b.wordsPerLine&(b.wordsPerLine-1) != 0 {
		panic(fmt.Sprintf(
			"words per line must be a power of two of at least 2, got %d",
			b.wordsPerLine))
	}
}
