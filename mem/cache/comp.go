// Package cache implements a word-addressable write-back cache that compacts
// narrow values and replaces lines in least-recently-used order.
//
// The controller is a sequential state machine. A request is issued with
// Issue and advanced one step per Tick until Done reports completion:
//
//	Idle -> Lookup -> Hit -> Complete
//	Idle -> Lookup -> [MissEvict ->] MissFill -> Lookup -> Hit -> Complete
package cache

import (
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sarchlab/compcache/mem/cache/internal/replacement"
	"github.com/sarchlab/compcache/mem/cache/internal/tagging"
	"github.com/sarchlab/compcache/mem/mem"
)

// ErrBusy is returned when a request is issued while another one is still
// outstanding.
var ErrBusy = errors.New("cache: a request is already outstanding")

// State is a state of the controller.
type State int

// States of the controller.
const (
	StateIdle State = iota
	StateLookup
	StateHit
	StateMissEvict
	StateMissFill
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLookup:
		return "Lookup"
	case StateHit:
		return "Hit"
	case StateMissEvict:
		return "MissEvict"
	case StateMissFill:
		return "MissFill"
	case StateComplete:
		return "Complete"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// transaction is the context of the request in flight.
type transaction struct {
	req Request
	loc location

	hit     bool
	retried bool
	cycles  uint64
	data    mem.Word

	target tagging.Handle

	eviction         *tagging.Eviction
	evictedCompacted []bool
	evictionBase     uint64
	nextWriteBack    int
}

// A Comp is the cache controller.
type Comp struct {
	hookableBase

	name         string
	numSets      int
	numWays      int
	wordsPerLine int

	backend mem.Backend
	storage *tagging.Storage
	lru     *replacement.LRU

	state    State
	trans    *transaction
	signals  Signals
	response *Response
	stats    Stats
}

// Name returns the name of the cache.
func (c *Comp) Name() string {
	return c.name
}

// State returns the current state of the controller.
func (c *Comp) State() State {
	return c.state
}

// Signals returns the outputs of the last tick.
func (c *Comp) Signals() Signals {
	return c.signals
}

// Stats returns the counters of the controller.
func (c *Comp) Stats() Stats {
	return c.stats
}

// CompressionRatio returns the fraction of valid lines whose words are all
// stored compacted.
func (c *Comp) CompressionRatio() float64 {
	return c.storage.CompressionRatio()
}

// Backend returns the memory behind the cache.
func (c *Comp) Backend() mem.Backend {
	return c.backend
}

// Done returns true if no request is outstanding.
func (c *Comp) Done() bool {
	return c.state == StateIdle || c.state == StateComplete
}

// Response returns the result of the last completed request.
func (c *Comp) Response() (Response, bool) {
	if c.response == nil {
		return Response{}, false
	}

	return *c.response, true
}

// Issue starts a request. It fails with ErrBusy if a request is outstanding.
// A request without an ID gets a generated one.
func (c *Comp) Issue(req Request) error {
	if !c.Done() {
		return ErrBusy
	}

	if req.Op != OpRead && req.Op != OpWrite {
		return fmt.Errorf("cache: unknown op %s", req.Op)
	}

	if req.ID == "" {
		req.ID = xid.New().String()
	}

	c.trans = &transaction{
		req: req,
		loc: c.locate(req.Address),
	}
	c.response = nil
	c.state = StateLookup

	if req.IsRead() {
		c.stats.Reads++
	} else {
		c.stats.Writes++
	}

	c.invokeHook(HookCtx{Domain: c, Pos: HookPosReqStart, Item: req})

	return nil
}

// Access issues a request and ticks until it completes.
func (c *Comp) Access(req Request) (Response, error) {
	if err := c.Issue(req); err != nil {
		return Response{}, err
	}

	limit := 4 + c.wordsPerLine

	for steps := 0; !c.Done(); steps++ {
		if steps > limit {
			panic(fmt.Sprintf("request %s did not complete in %d ticks",
				req.ID, limit))
		}

		c.Tick()
	}

	rsp, _ := c.Response()

	return rsp, nil
}

// Tick advances the controller by one step. It returns true if progress was
// made.
func (c *Comp) Tick() bool {
	c.signals = Signals{}

	switch c.state {
	case StateIdle:
		return false
	case StateComplete:
		c.state = StateIdle
		c.trans = nil

		return true
	}

	c.trans.cycles++
	c.stats.Cycles++

	switch c.state {
	case StateLookup:
		c.lookup()
	case StateMissEvict:
		c.evict()
	case StateMissFill:
		c.fill()
	default:
		panic(fmt.Sprintf("controller ticked in state %s", c.state))
	}

	return true
}

// Reset invalidates every line without writing anything back and clears the
// counters.
func (c *Comp) Reset() {
	c.storage.Reset()
	c.lru.Reset()
	c.state = StateIdle
	c.trans = nil
	c.signals = Signals{}
	c.response = nil
	c.stats = Stats{}
}
