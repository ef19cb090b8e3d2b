// Package tagging holds the lines of a cache together with their metadata.
package tagging

import (
	"fmt"

	"github.com/sarchlab/compcache/mem/cache/internal/codec"
	"github.com/sarchlab/compcache/mem/mem"
)

// A Handle names one line slot of the storage.
type Handle struct {
	SetID int
	WayID int
}

// A Block is the metadata associated with a line.
type Block struct {
	Tag     uint64
	SetID   int
	WayID   int
	IsValid bool
	IsDirty bool
}

type line struct {
	Block
	pairs []codec.Pair
}

// LineInfo describes the state of a line.
type LineInfo struct {
	Block

	// Compacted reports, for each word of the line, whether it is stored in
	// packed form.
	Compacted []bool

	// Footprint is the number of physical slots the line occupies.
	Footprint int
}

// An Eviction carries everything needed to write a victim line back.
type Eviction struct {
	Dirty bool
	Tag   uint64
	Words []mem.Word
}

// A Storage keeps the lines of a cache, organized in sets and ways. Words
// pass through a codec on their way in and out.
type Storage struct {
	NumSets      int
	NumWays      int
	WordsPerLine int

	codec codec.Codec
	lines []line
}

// NewStorage creates an empty storage. wordsPerLine must be even, since words
// are encoded in pairs.
func NewStorage(
	numSets, numWays, wordsPerLine int,
	c codec.Codec,
) *Storage {
	if numSets <= 0 || numWays <= 0 {
		panic(fmt.Sprintf("invalid storage geometry %d sets x %d ways",
			numSets, numWays))
	}

	if wordsPerLine <= 0 || wordsPerLine%2 != 0 {
		panic(fmt.Sprintf("words per line must be positive and even, got %d",
			wordsPerLine))
	}

	s := &Storage{
		NumSets:      numSets,
		NumWays:      numWays,
		WordsPerLine: wordsPerLine,
		codec:        c,
	}

	s.Reset()

	return s
}

// Reset invalidates every line.
func (s *Storage) Reset() {
	s.lines = make([]line, s.NumSets*s.NumWays)

	for setID := 0; setID < s.NumSets; setID++ {
		for wayID := 0; wayID < s.NumWays; wayID++ {
			l := s.line(Handle{SetID: setID, WayID: wayID})
			l.SetID = setID
			l.WayID = wayID
		}
	}
}

// Codec returns the codec that encodes the words of the storage.
func (s *Storage) Codec() codec.Codec {
	return s.codec
}

// TotalSlots returns the number of physical word slots of the storage, not
// the number of lines. It is the unit that Footprint and UsedSlots count in.
func (s *Storage) TotalSlots() int {
	return s.NumSets * s.NumWays * s.WordsPerLine
}

func (s *Storage) line(h Handle) *line {
	if h.SetID < 0 || h.SetID >= s.NumSets ||
		h.WayID < 0 || h.WayID >= s.NumWays {
		panic(fmt.Sprintf("line (%d, %d) out of range", h.SetID, h.WayID))
	}

	return &s.lines[h.SetID*s.NumWays+h.WayID]
}

func (s *Storage) validLine(h Handle) *line {
	l := s.line(h)
	if !l.IsValid {
		panic(fmt.Sprintf("line (%d, %d) is not valid", h.SetID, h.WayID))
	}

	return l
}

// Lookup finds the valid line of the set that holds the tag.
func (s *Storage) Lookup(setID int, tag uint64) (Handle, bool) {
	found := false
	h := Handle{}

	for wayID := 0; wayID < s.NumWays; wayID++ {
		l := s.line(Handle{SetID: setID, WayID: wayID})
		if !l.IsValid || l.Tag != tag {
			continue
		}

		if found {
			panic(fmt.Sprintf("tag 0x%x is held by ways %d and %d of set %d",
				tag, h.WayID, wayID, setID))
		}

		found = true
		h = Handle{SetID: setID, WayID: wayID}
	}

	return h, found
}

// FindEmpty returns an invalid line of the set, if there is one.
func (s *Storage) FindEmpty(setID int) (Handle, bool) {
	for wayID := 0; wayID < s.NumWays; wayID++ {
		h := Handle{SetID: setID, WayID: wayID}
		if !s.line(h).IsValid {
			return h, true
		}
	}

	return Handle{}, false
}

// Allocate makes an invalid line hold the tag. The new line is clean and its
// words are zero.
func (s *Storage) Allocate(h Handle, tag uint64) {
	l := s.line(h)
	if l.IsValid {
		panic(fmt.Sprintf("allocating valid line (%d, %d)", h.SetID, h.WayID))
	}

	if other, ok := s.Lookup(h.SetID, tag); ok {
		panic(fmt.Sprintf("tag 0x%x is already held by way %d of set %d",
			tag, other.WayID, other.SetID))
	}

	l.Tag = tag
	l.IsValid = true
	l.IsDirty = false
	l.pairs = make([]codec.Pair, s.WordsPerLine/2)

	for i := range l.pairs {
		l.pairs[i] = s.codec.Encode(0, 0)
	}
}

// Fill stores all the words of a line as fetched from memory. Each pair is
// compacted when possible. The dirty bit is left untouched.
func (s *Storage) Fill(h Handle, words []mem.Word) {
	l := s.validLine(h)

	if len(words) != s.WordsPerLine {
		panic(fmt.Sprintf("filling %d words into a %d-word line",
			len(words), s.WordsPerLine))
	}

	for i := range l.pairs {
		l.pairs[i] = s.codec.Encode(words[2*i], words[2*i+1])
	}
}

func (s *Storage) mustBeOffset(offset int) {
	if offset < 0 || offset >= s.WordsPerLine {
		panic(fmt.Sprintf("offset %d out of a %d-word line",
			offset, s.WordsPerLine))
	}
}

// WriteSub replaces one word of a valid line.
func (s *Storage) WriteSub(h Handle, offset int, w mem.Word) {
	l := s.validLine(h)
	s.mustBeOffset(offset)

	p := offset / 2
	l.pairs[p] = s.codec.Store(l.pairs[p], offset%2, w)
}

// ReadSub decodes one word of a valid line.
func (s *Storage) ReadSub(h Handle, offset int) mem.Word {
	l := s.validLine(h)
	s.mustBeOffset(offset)

	return s.codec.Word(l.pairs[offset/2], offset%2)
}

// MarkDirty records that the line is more recent than the memory.
func (s *Storage) MarkDirty(h Handle) {
	s.validLine(h).IsDirty = true
}

// MarkClean records that the memory holds the content of the line.
func (s *Storage) MarkClean(h Handle) {
	s.validLine(h).IsDirty = false
}

// Words decodes all the words of a valid line.
func (s *Storage) Words(h Handle) []mem.Word {
	l := s.validLine(h)
	words := make([]mem.Word, 0, s.WordsPerLine)

	for _, p := range l.pairs {
		a, b := s.codec.Words(p)
		words = append(words, a, b)
	}

	return words
}

// Evict invalidates a valid line and returns the words it held.
func (s *Storage) Evict(h Handle) Eviction {
	words := s.Words(h)
	l := s.line(h)

	e := Eviction{
		Dirty: l.IsDirty,
		Tag:   l.Tag,
		Words: words,
	}

	l.IsValid = false
	l.IsDirty = false
	l.pairs = nil

	return e
}

// Line returns the state of a line.
func (s *Storage) Line(h Handle) LineInfo {
	l := s.line(h)

	info := LineInfo{Block: l.Block}
	if !l.IsValid {
		return info
	}

	info.Compacted = make([]bool, 0, s.WordsPerLine)

	for _, p := range l.pairs {
		flags := s.codec.Flags(p)
		info.Compacted = append(info.Compacted, flags[0], flags[1])
		info.Footprint += s.codec.Footprint(p)
	}

	return info
}

// Visit calls fn on every valid line, set by set and way by way.
func (s *Storage) Visit(fn func(h Handle, info LineInfo)) {
	for setID := 0; setID < s.NumSets; setID++ {
		for wayID := 0; wayID < s.NumWays; wayID++ {
			h := Handle{SetID: setID, WayID: wayID}
			if !s.line(h).IsValid {
				continue
			}

			fn(h, s.Line(h))
		}
	}
}

// UsedSlots returns the number of physical slots occupied by valid lines.
func (s *Storage) UsedSlots() int {
	used := 0

	s.Visit(func(_ Handle, info LineInfo) {
		used += info.Footprint
	})

	return used
}

// CompressionRatio returns the fraction of valid lines whose words are all
// stored compacted. It is zero when no line is valid.
func (s *Storage) CompressionRatio() float64 {
	valid, compacted := 0, 0

	s.Visit(func(_ Handle, info LineInfo) {
		valid++

		for _, c := range info.Compacted {
			if !c {
				return
			}
		}

		compacted++
	})

	if valid == 0 {
		return 0
	}

	return float64(compacted) / float64(valid)
}
