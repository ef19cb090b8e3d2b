package codec

import (
	"fmt"

	"github.com/sarchlab/compcache/mem/mem"
)

// A Slot is one full-width physical storage slot of a cache line. It is
// either Empty, Raw, or Compacted.
type Slot interface {
	isSlot()
}

// Empty is a slot that holds no word.
type Empty struct{}

// Raw is a slot that holds one word at full width.
type Raw struct {
	Payload Payload
}

// Compacted is a slot that holds narrow words. Live marks which halves carry
// a word.
type Compacted struct {
	Payload Payload
	Live    [2]bool
}

func (Empty) isSlot()     {}
func (Raw) isSlot()       {}
func (Compacted) isSlot() {}

// A Pair is the storage of two adjacent words of a line. It spans two
// physical slots. A word stored at full width always lives in its home slot,
// slot i for word i.
type Pair [2]Slot

type layout int

const (
	layoutShared   layout = iota // {Compacted(both), Empty}
	layoutRaw                    // {Raw, Raw}
	layoutLowOnly                // {Compacted(low), Raw}
	layoutHighOnly               // {Raw, Compacted(high)}
)

func (c Codec) layoutOf(p Pair) layout {
	switch s0 := p[0].(type) {
	case Compacted:
		c.mustBePacked(s0.Payload)

		switch p[1].(type) {
		case Empty:
			if s0.Live == [2]bool{true, true} {
				return layoutShared
			}
		case Raw:
			if s0.Live == [2]bool{true, false} &&
				s0.Payload&^c.halfMask() == 0 {
				return layoutLowOnly
			}
		}
	case Raw:
		switch s1 := p[1].(type) {
		case Raw:
			return layoutRaw
		case Compacted:
			c.mustBePacked(s1.Payload)

			if s1.Live == [2]bool{false, true} &&
				s1.Payload&c.halfMask() == 0 {
				return layoutHighOnly
			}
		}
	}

	panic(fmt.Sprintf("inconsistent pair encoding %v", p))
}

// Encode stores two words. Compactable pairs share one slot and leave the
// other slot empty. Otherwise both words are stored at full width.
func (c Codec) Encode(a, b mem.Word) Pair {
	if payload, ok := c.TryCompact(a, b); ok {
		return Pair{
			Compacted{Payload: payload, Live: [2]bool{true, true}},
			Empty{},
		}
	}

	return Pair{raw(a), raw(b)}
}

func raw(w mem.Word) Raw {
	return Raw{Payload: Payload(uint32(w))}
}

// Word decodes the i-th word of a pair.
func (c Codec) Word(p Pair, i int) mem.Word {
	mustBePairIndex(i)

	switch c.layoutOf(p) {
	case layoutShared:
		return c.DecodeSingle(p[0].(Compacted).Payload, HalfFlag(i))
	case layoutLowOnly:
		if i == 0 {
			return c.DecodeSingle(p[0].(Compacted).Payload, FlagLow)
		}
	case layoutHighOnly:
		if i == 1 {
			return c.DecodeSingle(p[1].(Compacted).Payload, FlagHigh)
		}
	}

	return c.DecodeSingle(p[i].(Raw).Payload, FlagRaw)
}

// Words decodes both words of a pair.
func (c Codec) Words(p Pair) (a, b mem.Word) {
	return c.Word(p, 0), c.Word(p, 1)
}

// Store replaces the i-th word of a pair. If the new word and its sibling are
// compactable, both are packed into one slot. Otherwise the new word is
// stored at full width in its home slot and the sibling keeps its encoding.
func (c Codec) Store(p Pair, i int, w mem.Word) Pair {
	mustBePairIndex(i)

	j := 1 - i
	sibling := c.Word(p, j)
	siblingCompacted := c.Flags(p)[j]

	words := [2]mem.Word{}
	words[i] = w
	words[j] = sibling

	if c.Compactable(words[0], words[1]) {
		return c.Encode(words[0], words[1])
	}

	var out Pair

	out[i] = raw(w)

	if siblingCompacted {
		live := [2]bool{}
		live[j] = true
		out[j] = Compacted{Payload: c.pack(sibling, j), Live: live}
	} else {
		out[j] = raw(sibling)
	}

	return out
}

// Flags reports, for each word of the pair, whether it is stored compacted.
func (c Codec) Flags(p Pair) [2]bool {
	switch c.layoutOf(p) {
	case layoutShared:
		return [2]bool{true, true}
	case layoutLowOnly:
		return [2]bool{true, false}
	case layoutHighOnly:
		return [2]bool{false, true}
	default:
		return [2]bool{false, false}
	}
}

// Footprint returns the number of physical slots the pair occupies.
func (c Codec) Footprint(p Pair) int {
	if c.layoutOf(p) == layoutShared {
		return 1
	}

	return 2
}

func mustBePairIndex(i int) {
	if i != 0 && i != 1 {
		panic(fmt.Sprintf("pair index %d out of range", i))
	}
}
