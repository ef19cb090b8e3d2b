package cache

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/compcache/mem/mem"
)

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// Positions where the controller invokes hooks.
var (
	// HookPosReqStart fires when a request is accepted. Item is the Request.
	HookPosReqStart = &HookPos{Name: "ReqStart"}

	// HookPosReqHit fires when the first lookup of a request hits.
	HookPosReqHit = &HookPos{Name: "ReqHit"}

	// HookPosReqMiss fires when the first lookup of a request misses.
	HookPosReqMiss = &HookPos{Name: "ReqMiss"}

	// HookPosWriteBack fires after a dirty line is written back. Detail is a
	// LineTransfer.
	HookPosWriteBack = &HookPos{Name: "WriteBack"}

	// HookPosFill fires after a line is filled from memory. Detail is a
	// LineTransfer.
	HookPosFill = &HookPos{Name: "Fill"}

	// HookPosReqEnd fires when a request completes. Detail is the Response.
	HookPosReqEnd = &HookPos{Name: "ReqEnd"}
)

// HookCtx is the context that holds all the information about the site that a
// hook is triggered.
type HookCtx struct {
	Domain *Comp
	Pos    *HookPos
	Item   Request
	Detail interface{}
}

// A LineTransfer describes a line moving between the cache and the memory.
type LineTransfer struct {
	SetID     int
	WayID     int
	Address   uint64
	Words     []mem.Word
	Compacted []bool
}

// Hook is a short piece of program that can be invoked by the controller.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

type hookableBase struct {
	hookList []Hook
}

// NumHooks returns the number of hooks registered.
func (h *hookableBase) NumHooks() int {
	return len(h.hookList)
}

// AcceptHook registers a hook. Hooks must be comparable, such as pointers,
// so that duplicates can be detected. Registering the same hook twice, or a
// hook that cannot be compared, panics.
func (h *hookableBase) AcceptHook(hook Hook) {
	if hook == nil || !reflect.TypeOf(hook).Comparable() {
		panic(fmt.Sprintf("hook of type %T cannot be registered", hook))
	}

	for _, registered := range h.hookList {
		if registered == hook {
			panic("duplicated hook")
		}
	}

	h.hookList = append(h.hookList, hook)
}

func (h *hookableBase) invokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}
