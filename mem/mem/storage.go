package mem

import "fmt"

const defaultUnitSize uint64 = 1024

// A Storage keeps the words of the main memory.
//
// The storage manages words in units, similar to pages in memory management.
// Units that are never touched by Read or Write are not allocated, so a large
// capacity costs nothing until it is used.
type Storage struct {
	unitSize uint64
	capacity uint64
	data     map[uint64][]Word
}

// NewStorage creates a storage that holds capacity words.
func NewStorage(capacity uint64) *Storage {
	if capacity == 0 {
		panic("storage capacity must not be zero")
	}

	s := new(Storage)
	s.unitSize = defaultUnitSize
	s.capacity = capacity
	s.data = make(map[uint64][]Word)

	return s
}

// Capacity returns the number of words the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

func (s *Storage) mustBeInRange(addr uint64) {
	if addr >= s.capacity {
		panic(fmt.Sprintf(
			"accessing word address 0x%x beyond the storage capacity 0x%x",
			addr, s.capacity))
	}
}

func (s *Storage) getOrCreateUnit(addr uint64) []Word {
	baseAddr, _ := s.parseAddress(addr)

	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]Word, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit
}

// Read returns the word at addr. Words never written read as zero.
func (s *Storage) Read(addr uint64) Word {
	s.mustBeInRange(addr)

	baseAddr, inUnitAddr := s.parseAddress(addr)

	unit, ok := s.data[baseAddr]
	if !ok {
		return 0
	}

	return unit[inUnitAddr]
}

// Write sets the word at addr.
func (s *Storage) Write(addr uint64, w Word) {
	s.mustBeInRange(addr)

	unit := s.getOrCreateUnit(addr)
	_, inUnitAddr := s.parseAddress(addr)
	unit[inUnitAddr] = w
}

// NumAllocatedUnits returns how many units have been materialized.
func (s *Storage) NumAllocatedUnits() int {
	return len(s.data)
}
