package mem

import "math/rand"

// A Filler produces the initial value of a word.
type Filler func(addr uint64) Word

// Fill writes the value produced by filler to every word of the backend.
func Fill(b Backend, filler Filler) {
	for addr := uint64(0); addr < b.Capacity(); addr++ {
		b.Write(addr, filler(addr))
	}
}

// ConstantFiller fills every word with the same value.
func ConstantFiller(w Word) Filler {
	return func(uint64) Word { return w }
}

// SequenceFiller fills word i with values[i % len(values)].
func SequenceFiller(values ...Word) Filler {
	if len(values) == 0 {
		panic("sequence filler needs at least one value")
	}

	return func(addr uint64) Word {
		return values[addr%uint64(len(values))]
	}
}

// RandomFiller fills words with uniformly distributed values in [lo, hi].
func RandomFiller(rng *rand.Rand, lo, hi Word) Filler {
	if hi < lo {
		panic("random filler range is empty")
	}

	span := int64(hi) - int64(lo) + 1

	return func(uint64) Word {
		return Word(int64(lo) + rng.Int63n(span))
	}
}
