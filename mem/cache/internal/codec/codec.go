// Package codec implements narrow-value packing of cache line words.
//
// Two words that both fit in a reduced two's-complement bit budget are packed
// into a single full-width storage slot. Words that do not fit are stored at
// full width, one per slot.
package codec

import (
	"fmt"

	"github.com/sarchlab/compcache/mem/mem"
)

// A Payload is the content of one full-width storage slot.
type Payload uint32

// A Flag tells how a payload is interpreted when decoding a single word.
type Flag uint8

// Flags that a payload can be decoded with.
const (
	// FlagRaw interprets the whole payload as one word.
	FlagRaw Flag = iota
	// FlagLow interprets the low half of a packed payload.
	FlagLow
	// FlagHigh interprets the high half of a packed payload.
	FlagHigh
)

func (f Flag) String() string {
	switch f {
	case FlagRaw:
		return "raw"
	case FlagLow:
		return "low"
	case FlagHigh:
		return "high"
	default:
		return fmt.Sprintf("flag(%d)", uint8(f))
	}
}

// HalfFlag returns the flag that selects the half that belongs to the i-th
// word of a pair.
func HalfFlag(i int) Flag {
	switch i {
	case 0:
		return FlagLow
	case 1:
		return FlagHigh
	default:
		panic(fmt.Sprintf("pair index %d out of range", i))
	}
}

// DefaultNarrowBits is the bit budget of the reference system.
const DefaultNarrowBits = 8

// A Codec packs and unpacks words that fit in a narrow bit budget.
type Codec struct {
	bits uint
}

// New creates a codec with the given narrow bit budget. Two narrow words must
// fit in one payload, so bits can be at most 16.
func New(bits uint) Codec {
	if bits == 0 || 2*bits > 32 {
		panic(fmt.Sprintf("narrow bit budget %d is not in [1, 16]", bits))
	}

	return Codec{bits: bits}
}

// NarrowBits returns the bit budget of a packed word.
func (c Codec) NarrowBits() uint {
	return c.bits
}

// Fits returns true if w can be stored in the narrow bit budget without loss.
func (c Codec) Fits(w mem.Word) bool {
	lo := -(int64(1) << (c.bits - 1))
	hi := int64(1)<<(c.bits-1) - 1
	v := int64(w)

	return v >= lo && v <= hi
}

// Compactable returns true if the pair can be packed into one payload.
func (c Codec) Compactable(a, b mem.Word) bool {
	return c.Fits(a) && c.Fits(b)
}

func (c Codec) halfMask() Payload {
	return Payload(uint64(1)<<c.bits - 1)
}

func (c Codec) packedMask() Payload {
	return Payload(uint64(1)<<(2*c.bits) - 1)
}

func (c Codec) pack(w mem.Word, half int) Payload {
	return (Payload(uint32(w)) & c.halfMask()) << (uint(half) * c.bits)
}

func (c Codec) extract(p Payload, half int) mem.Word {
	v := uint32(p>>(uint(half)*c.bits)) & uint32(c.halfMask())
	shift := 32 - c.bits

	return mem.Word(int32(v<<shift) >> shift)
}

func (c Codec) mustBePacked(p Payload) {
	if p&^c.packedMask() != 0 {
		panic(fmt.Sprintf(
			"payload 0x%08x has bits outside the %d-bit packed region",
			uint32(p), 2*c.bits))
	}
}

// TryCompact packs a into the low half and b into the high half of a payload.
// It returns false if either word does not fit the narrow bit budget.
func (c Codec) TryCompact(a, b mem.Word) (Payload, bool) {
	if !c.Compactable(a, b) {
		return 0, false
	}

	return c.pack(a, 0) | c.pack(b, 1), true
}

// DecodeSingle decodes one word from a payload. A packed payload that carries
// bits outside its packed region is corrupted and causes a panic.
func (c Codec) DecodeSingle(p Payload, f Flag) mem.Word {
	switch f {
	case FlagRaw:
		return mem.Word(int32(uint32(p)))
	case FlagLow:
		c.mustBePacked(p)
		return c.extract(p, 0)
	case FlagHigh:
		c.mustBePacked(p)
		return c.extract(p, 1)
	default:
		panic(fmt.Sprintf("unknown decode flag %s", f))
	}
}

// DecodePair decodes both words of a packed payload.
func (c Codec) DecodePair(p Payload) (a, b mem.Word) {
	c.mustBePacked(p)

	return c.extract(p, 0), c.extract(p, 1)
}
