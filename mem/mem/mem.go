// Package mem defines the word-addressable main memory that backs the
// compressed cache.
package mem

// A Word is the unit of read and write transfer between the requester, the
// cache, and the main memory.
type Word int32

// Word geometry of the reference system.
const (
	WordByteSize     = 4
	Log2WordByteSize = 2
)

// DefaultCapacity is the number of words in the reference main memory.
const DefaultCapacity uint64 = 1 << 15

// A Backend is the backing store of the cache. Every access is authoritative
// and always succeeds. Addresses are word addresses in [0, Capacity()).
type Backend interface {
	Read(addr uint64) Word
	Write(addr uint64, w Word)
	Capacity() uint64
}

// WordAddress converts a byte address to a word address and wraps it into the
// addressable range of a memory with capacity words.
func WordAddress(byteAddr uint64, capacity uint64) uint64 {
	if capacity == 0 {
		panic("memory capacity must not be zero")
	}

	return (byteAddr >> Log2WordByteSize) % capacity
}

// ByteAddress returns the byte address of the first byte of a word.
func ByteAddress(wordAddr uint64) uint64 {
	return wordAddr << Log2WordByteSize
}
