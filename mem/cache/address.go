package cache

import "github.com/sarchlab/compcache/mem/mem"

// location is a word address decomposed against the cache geometry.
type location struct {
	wordAddr uint64
	tag      uint64
	setID    int
	offset   int
}

func (c *Comp) locate(byteAddr uint64) location {
	wordAddr := mem.WordAddress(byteAddr, c.backend.Capacity())
	block := wordAddr / uint64(c.wordsPerLine)

	return location{
		wordAddr: wordAddr,
		tag:      block / uint64(c.numSets),
		setID:    int(block % uint64(c.numSets)),
		offset:   int(wordAddr % uint64(c.wordsPerLine)),
	}
}

// blockBase returns the word address of the first word of the block that a
// line with the tag caches in the set.
func (c *Comp) blockBase(setID int, tag uint64) uint64 {
	block := tag*uint64(c.numSets) + uint64(setID)

	return block * uint64(c.wordsPerLine)
}
