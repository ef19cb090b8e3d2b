package cache

import "github.com/sarchlab/compcache/mem/cache/internal/tagging"

// Flush writes every dirty line back to memory. With invalidate, every line
// is dropped afterwards; otherwise lines stay valid and become clean. Flush
// fails with ErrBusy if a request is outstanding. It returns the number of
// lines written back.
func (c *Comp) Flush(invalidate bool) (int, error) {
	if !c.Done() {
		return 0, ErrBusy
	}

	written := 0

	c.storage.Visit(func(h tagging.Handle, info tagging.LineInfo) {
		if !info.IsDirty {
			if invalidate {
				c.drop(h)
			}

			return
		}

		words := c.storage.Words(h)
		base := c.blockBase(h.SetID, info.Tag)

		for i, w := range words {
			c.backend.Write(base+uint64(i), w)
		}

		c.stats.WriteBacks++
		c.stats.WordsWrittenBack += uint64(len(words))
		written++

		c.invokeHook(HookCtx{
			Domain: c,
			Pos:    HookPosWriteBack,
			Detail: LineTransfer{
				SetID:     h.SetID,
				WayID:     h.WayID,
				Address:   base,
				Words:     words,
				Compacted: info.Compacted,
			},
		})

		if invalidate {
			c.drop(h)
		} else {
			c.storage.MarkClean(h)
		}
	})

	return written, nil
}

func (c *Comp) drop(h tagging.Handle) {
	c.storage.Evict(h)
	c.lru.Remove(h.SetID, h.WayID)
}
