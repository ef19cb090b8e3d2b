package cache

import (
	"fmt"

	"github.com/sarchlab/compcache/mem/mem"
)

// An Op is the kind of access a request performs.
type Op int

// Ops that a requester can issue.
const (
	OpRead Op = iota
	OpWrite
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// A Request is an access issued by the requester. Address is a byte address;
// Data is only meaningful for writes.
type Request struct {
	ID      string
	Op      Op
	Address uint64
	Data    mem.Word
}

// IsRead returns true if the request reads.
func (r Request) IsRead() bool {
	return r.Op == OpRead
}

// A Response is the result of a completed request.
type Response struct {
	Request Request

	// Data is the word read. It is zero for writes.
	Data mem.Word

	// Hit is true if the first lookup of the request found the line.
	Hit bool

	// Cycles is the number of ticks the request was outstanding.
	Cycles uint64
}

// Signals are the per-cycle outputs of the controller.
type Signals struct {
	// ReadData is valid only while CacheHit is asserted on a read.
	ReadData mem.Word

	// CacheHit is asserted on the cycle a request resolves.
	CacheHit bool

	// MemoryWriteEn is asserted while a dirty victim is written back.
	MemoryWriteEn bool
}
