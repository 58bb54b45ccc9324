package dma

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/tpusim/util"
)

var (
	// HookPosDMAStart fires when a background load is issued.
	HookPosDMAStart = &sim.HookPos{Name: "DMAStart"}
	// HookPosDMAComplete fires on the cycle a background load lands.
	HookPosDMAComplete = &sim.HookPos{Name: "DMAComplete"}
	// HookPosSwitch fires after a buffer switch.
	HookPosSwitch = &sim.HookPos{Name: "BufferSwitch"}
	// HookPosLoad fires after a blocking load from off-chip memory.
	HookPosLoad = &sim.HookPos{Name: "Load"}
	// HookPosStore fires after a blocking store to off-chip memory.
	HookPosStore = &sim.HookPos{Name: "Store"}
	// HookPosStall fires when a wait finishes, with the stalled cycles as
	// detail.
	HookPosStall = &sim.HookPos{Name: "Stall"}
)

// Transfer describes one DMA transfer. It is the Item of every hook
// context fired by the engine, except switches.
type Transfer struct {
	Buffer  string
	DRAM    uint64
	Offset  int
	Size    int
	Cycles  uint64
	IssueAt uint64
}

// TraceHook writes every engine event to the trace log.
type TraceHook struct{}

// Func logs the hook context.
func (TraceHook) Func(ctx sim.HookCtx) {
	args := []any{"Behavior", ctx.Pos.Name}

	switch item := ctx.Item.(type) {
	case Transfer:
		args = append(args,
			"Buffer", item.Buffer,
			"DRAM", item.DRAM,
			"Offset", item.Offset,
			"Size", item.Size,
			"Cycles", item.Cycles,
			"IssueAt", item.IssueAt,
		)
	case string:
		args = append(args, "Buffer", item)
	}

	if ctx.Detail != nil {
		args = append(args, "Detail", ctx.Detail)
	}

	util.Trace("Memory", args...)
}
