package cache

// Stats counts what the controller has done since it was built or reset.
type Stats struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	WriteBacks uint64
	Fills      uint64

	// WordsWrittenBack counts the individual word writes to memory.
	WordsWrittenBack uint64

	// Cycles counts the ticks during which a request was outstanding.
	Cycles uint64
}

// Requests returns the number of requests that have been looked up.
func (s Stats) Requests() uint64 {
	return s.Hits + s.Misses
}

// HitRate returns the fraction of requests whose first lookup hit.
func (s Stats) HitRate() float64 {
	if s.Requests() == 0 {
		return 0
	}

	return float64(s.Hits) / float64(s.Requests())
}
