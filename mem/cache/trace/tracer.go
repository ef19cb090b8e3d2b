// Package trace provides hooks that record what a cache does.
package trace

import (
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/compcache/datarecording"
	"github.com/sarchlab/compcache/mem/cache"
)

// Table names used by the DB tracer.
const (
	RequestTable  = "cache_requests"
	TransferTable = "cache_line_transfers"
)

// RequestEntry is a row of the request table.
type RequestEntry struct {
	ID         string `json:"id" akita_data:"unique"`
	Cache      string `json:"cache" akita_data:"index"`
	Op         string `json:"op" akita_data:"index"`
	Address    uint64 `json:"address" akita_data:"index"`
	Data       int32  `json:"data"`
	Hit        bool   `json:"hit" akita_data:"index"`
	StartCycle uint64 `json:"start_cycle" akita_data:"index"`
	EndCycle   uint64 `json:"end_cycle" akita_data:"index"`
}

// TransferEntry is a row of the line transfer table.
type TransferEntry struct {
	ID           string `json:"id" akita_data:"unique"`
	Cache        string `json:"cache" akita_data:"index"`
	RequestID    string `json:"request_id" akita_data:"index"`
	What         string `json:"what" akita_data:"index"`
	Cycle        uint64 `json:"cycle" akita_data:"index"`
	SetID        int    `json:"set_id"`
	WayID        int    `json:"way_id"`
	Address      uint64 `json:"address" akita_data:"index"`
	NumWords     int    `json:"num_words"`
	NumCompacted int    `json:"num_compacted"`
}

// A logTracer is a hook that writes the actions of a cache to a logger.
type logTracer struct {
	logger logrus.FieldLogger
}

// NewLogTracer creates a hook that logs completed requests at debug level and
// line transfers at trace level.
func NewLogTracer(logger logrus.FieldLogger) cache.Hook {
	return &logTracer{logger: logger}
}

func (t *logTracer) Func(ctx cache.HookCtx) {
	switch ctx.Pos {
	case cache.HookPosReqEnd:
		rsp := ctx.Detail.(cache.Response)
		t.logger.WithFields(logrus.Fields{
			"cache":   ctx.Domain.Name(),
			"id":      rsp.Request.ID,
			"op":      rsp.Request.Op.String(),
			"address": rsp.Request.Address,
			"data":    dataOf(rsp),
			"hit":     rsp.Hit,
			"cycles":  rsp.Cycles,
		}).Debug("request completed")
	case cache.HookPosWriteBack, cache.HookPosFill:
		transfer := ctx.Detail.(cache.LineTransfer)
		t.logger.WithFields(logrus.Fields{
			"cache":     ctx.Domain.Name(),
			"id":        ctx.Item.ID,
			"set":       transfer.SetID,
			"way":       transfer.WayID,
			"address":   transfer.Address,
			"compacted": countCompacted(transfer.Compacted),
		}).Trace(ctx.Pos.Name)
	}
}

// A dbTracer is a hook that records the actions of a cache into a database
// using the data recorder.
type dbTracer struct {
	dataRecorder datarecording.DataRecorder
	pending      map[string]*RequestEntry
}

// NewDBTracer creates a hook that stores requests and line transfers.
func NewDBTracer(dataRecorder datarecording.DataRecorder) cache.Hook {
	t := &dbTracer{
		dataRecorder: dataRecorder,
		pending:      make(map[string]*RequestEntry),
	}

	t.dataRecorder.CreateTable(RequestTable, RequestEntry{})
	t.dataRecorder.CreateTable(TransferTable, TransferEntry{})

	return t
}

func (t *dbTracer) Func(ctx cache.HookCtx) {
	switch ctx.Pos {
	case cache.HookPosReqStart:
		t.startRequest(ctx)
	case cache.HookPosReqEnd:
		t.endRequest(ctx)
	case cache.HookPosWriteBack, cache.HookPosFill:
		t.recordTransfer(ctx)
	}
}

func (t *dbTracer) startRequest(ctx cache.HookCtx) {
	t.pending[ctx.Item.ID] = &RequestEntry{
		ID:         ctx.Item.ID,
		Cache:      ctx.Domain.Name(),
		Op:         ctx.Item.Op.String(),
		Address:    ctx.Item.Address,
		StartCycle: ctx.Domain.Stats().Cycles,
	}
}

func (t *dbTracer) endRequest(ctx cache.HookCtx) {
	entry, exists := t.pending[ctx.Item.ID]
	if !exists {
		return
	}

	rsp := ctx.Detail.(cache.Response)
	entry.Data = int32(dataOf(rsp))
	entry.Hit = rsp.Hit
	entry.EndCycle = entry.StartCycle + rsp.Cycles

	t.dataRecorder.InsertData(RequestTable, *entry)
	delete(t.pending, ctx.Item.ID)
}

func (t *dbTracer) recordTransfer(ctx cache.HookCtx) {
	transfer := ctx.Detail.(cache.LineTransfer)

	t.dataRecorder.InsertData(TransferTable, TransferEntry{
		ID:           xid.New().String(),
		Cache:        ctx.Domain.Name(),
		RequestID:    ctx.Item.ID,
		What:         ctx.Pos.Name,
		Cycle:        ctx.Domain.Stats().Cycles,
		SetID:        transfer.SetID,
		WayID:        transfer.WayID,
		Address:      transfer.Address,
		NumWords:     len(transfer.Words),
		NumCompacted: countCompacted(transfer.Compacted),
	})
}

func dataOf(rsp cache.Response) int32 {
	if rsp.Request.IsRead() {
		return int32(rsp.Data)
	}

	return int32(rsp.Request.Data)
}

func countCompacted(flags []bool) int {
	n := 0

	for _, f := range flags {
		if f {
			n++
		}
	}

	return n
}
