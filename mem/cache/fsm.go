package cache

import (
	"fmt"

	"github.com/sarchlab/compcache/mem/cache/internal/tagging"
	"github.com/sarchlab/compcache/mem/mem"
)

func (c *Comp) lookup() {
	t := c.trans

	h, found := c.storage.Lookup(t.loc.setID, t.loc.tag)
	if found {
		c.hit(h)
		return
	}

	if t.retried {
		panic(fmt.Sprintf("request %s missed after its line was filled",
			t.req.ID))
	}

	c.stats.Misses++
	c.invokeHook(HookCtx{Domain: c, Pos: HookPosReqMiss, Item: t.req})

	if empty, ok := c.storage.FindEmpty(t.loc.setID); ok {
		t.target = empty
		c.state = StateMissFill

		return
	}

	t.target.SetID = t.loc.setID
	t.target.WayID = c.lru.Victim(t.loc.setID)
	c.state = StateMissEvict
}

func (c *Comp) hit(h tagging.Handle) {
	t := c.trans
	c.state = StateHit

	if !t.retried {
		t.hit = true
		c.stats.Hits++
		c.invokeHook(HookCtx{Domain: c, Pos: HookPosReqHit, Item: t.req})
	}

	if t.req.IsRead() {
		t.data = c.storage.ReadSub(h, t.loc.offset)
		c.signals.ReadData = t.data
	} else {
		c.storage.WriteSub(h, t.loc.offset, t.req.Data)
		c.storage.MarkDirty(h)
	}

	c.lru.Touch(h.SetID, h.WayID)
	c.signals.CacheHit = true
	c.complete()
}

func (c *Comp) complete() {
	t := c.trans

	c.response = &Response{
		Request: t.req,
		Data:    t.data,
		Hit:     t.hit,
		Cycles:  t.cycles,
	}
	c.state = StateComplete

	c.invokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosReqEnd,
		Item:   t.req,
		Detail: *c.response,
	})
}

// evict removes the victim on the first tick and writes back one word per
// tick while the victim is dirty.
func (c *Comp) evict() {
	t := c.trans

	if t.eviction == nil {
		info := c.storage.Line(t.target)
		e := c.storage.Evict(t.target)
		c.lru.Remove(t.target.SetID, t.target.WayID)
		c.stats.Evictions++

		t.eviction = &e
		t.evictedCompacted = info.Compacted
		t.evictionBase = c.blockBase(t.target.SetID, e.Tag)

		if !e.Dirty {
			c.state = StateMissFill
			return
		}
	}

	e := t.eviction
	c.backend.Write(
		t.evictionBase+uint64(t.nextWriteBack),
		e.Words[t.nextWriteBack],
	)
	c.signals.MemoryWriteEn = true
	c.stats.WordsWrittenBack++
	t.nextWriteBack++

	if t.nextWriteBack < len(e.Words) {
		return
	}

	c.stats.WriteBacks++
	c.invokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosWriteBack,
		Item:   t.req,
		Detail: LineTransfer{
			SetID:     t.target.SetID,
			WayID:     t.target.WayID,
			Address:   t.evictionBase,
			Words:     e.Words,
			Compacted: t.evictedCompacted,
		},
	})
	c.state = StateMissFill
}

func (c *Comp) fill() {
	t := c.trans

	base := c.blockBase(t.loc.setID, t.loc.tag)
	words := make([]mem.Word, c.wordsPerLine)

	for i := range words {
		words[i] = c.backend.Read(base + uint64(i))
	}

	c.storage.Allocate(t.target, t.loc.tag)
	c.storage.Fill(t.target, words)
	c.lru.Touch(t.target.SetID, t.target.WayID)
	c.stats.Fills++

	c.invokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosFill,
		Item:   t.req,
		Detail: LineTransfer{
			SetID:     t.target.SetID,
			WayID:     t.target.WayID,
			Address:   base,
			Words:     words,
			Compacted: c.storage.Line(t.target).Compacted,
		},
	})

	t.retried = true
	c.state = StateLookup
}
