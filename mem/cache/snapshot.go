package cache

import (
	"github.com/sarchlab/compcache/mem/cache/internal/tagging"
	"github.com/sarchlab/compcache/mem/mem"
)

// A LineSnapshot is a copy of the state of a valid line.
type LineSnapshot struct {
	SetID        int
	WayID        int
	Tag          uint64
	BlockAddress uint64
	Dirty        bool
	Compacted    []bool
	Footprint    int
	Words        []mem.Word
}

// A Snapshot is a copy of the content of the cache.
type Snapshot struct {
	Name             string
	NumSets          int
	NumWays          int
	WordsPerLine     int
	UsedSlots        int
	TotalSlots       int // word slots, not lines
	CompressionRatio float64
	Stats            Stats
	Lines            []LineSnapshot
}

// Snapshot copies the content of every valid line. It is meant for
// inspection between requests.
func (c *Comp) Snapshot() Snapshot {
	s := Snapshot{
		Name:             c.name,
		NumSets:          c.numSets,
		NumWays:          c.numWays,
		WordsPerLine:     c.wordsPerLine,
		UsedSlots:        c.storage.UsedSlots(),
		TotalSlots:       c.storage.TotalSlots(),
		CompressionRatio: c.storage.CompressionRatio(),
		Stats:            c.stats,
	}

	c.storage.Visit(func(h tagging.Handle, info tagging.LineInfo) {
		s.Lines = append(s.Lines, LineSnapshot{
			SetID:        h.SetID,
			WayID:        h.WayID,
			Tag:          info.Tag,
			BlockAddress: c.blockBase(h.SetID, info.Tag),
			Dirty:        info.IsDirty,
			Compacted:    info.Compacted,
			Footprint:    info.Footprint,
			Words:        c.storage.Words(h),
		})
	})

	return s
}
