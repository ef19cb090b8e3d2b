// Package refcheck validates a cache against an independent reference model
// of the memory.
package refcheck

import (
	"fmt"

	"github.com/sarchlab/compcache/mem/cache"
	"github.com/sarchlab/compcache/mem/mem"
)

// A MismatchError reports a word observed through the cache or in the backing
// store that differs from the reference model.
type MismatchError struct {
	RequestID string
	WordAddr  uint64
	Got       mem.Word
	Want      mem.Word
}

func (e *MismatchError) Error() string {
	if e.RequestID == "" {
		return fmt.Sprintf("word 0x%x in memory is %d, expected %d",
			e.WordAddr, e.Got, e.Want)
	}

	return fmt.Sprintf("request %s read %d from word 0x%x, expected %d",
		e.RequestID, e.Got, e.WordAddr, e.Want)
}

// A Checker forwards requests to a cache and checks every read against the
// value the requester last wrote, or the initial memory content.
type Checker struct {
	cache *cache.Comp
	known []mem.Word

	NumReads  int
	NumWrites int
}

// NewChecker copies the current content of the cache's backing store as the
// initial reference. It must be created before the first request.
func NewChecker(c *cache.Comp) *Checker {
	backend := c.Backend()
	known := make([]mem.Word, backend.Capacity())

	for addr := range known {
		known[addr] = backend.Read(uint64(addr))
	}

	return &Checker{
		cache: c,
		known: known,
	}
}

// Expected returns the value the reference model holds for a byte address.
func (k *Checker) Expected(byteAddr uint64) mem.Word {
	return k.known[mem.WordAddress(byteAddr, uint64(len(k.known)))]
}

// Access runs a request to completion and checks the result.
func (k *Checker) Access(req cache.Request) (cache.Response, error) {
	rsp, err := k.cache.Access(req)
	if err != nil {
		return rsp, err
	}

	wordAddr := mem.WordAddress(req.Address, uint64(len(k.known)))

	if req.IsRead() {
		k.NumReads++

		if rsp.Data != k.known[wordAddr] {
			return rsp, &MismatchError{
				RequestID: rsp.Request.ID,
				WordAddr:  wordAddr,
				Got:       rsp.Data,
				Want:      k.known[wordAddr],
			}
		}

		return rsp, nil
	}

	k.NumWrites++
	k.known[wordAddr] = req.Data

	return rsp, nil
}

// VerifyBackend compares the backing store with the reference model. Dirty
// lines must be flushed first for the comparison to be meaningful.
func (k *Checker) VerifyBackend() error {
	backend := k.cache.Backend()

	for addr, want := range k.known {
		got := backend.Read(uint64(addr))
		if got != want {
			return &MismatchError{WordAddr: uint64(addr), Got: got, Want: want}
		}
	}

	return nil
}
