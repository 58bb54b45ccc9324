// Package dma models the memory subsystem of the accelerator: off-chip
// memory, the on-chip scratchpads, and the DMA transfers between them.
package dma

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/tpusim/config"
	"github.com/sarchlab/tpusim/memory"
	"github.com/sarchlab/tpusim/spad"
)

// Engine owns the off-chip memory, the scratchpads, the global cycle count
// and the statistics. It is single-threaded; time only moves forward through
// Tick, WaitFor, Compute and the blocking stores.
type Engine struct {
	sim.HookableBase

	name    string
	cfg     config.Config
	dram    *memory.Space
	latency memory.LatencyPolicy

	weights     *spad.DoubleBuffer
	activations *spad.DoubleBuffer
	accumulator *spad.SingleBuffer

	cycle    uint64
	stats    Stats
	inFlight map[*spad.DoubleBuffer]Transfer
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return e.name
}

// DRAM returns the off-chip address space.
func (e *Engine) DRAM() *memory.Space {
	return e.dram
}

// Weights returns the weight double buffer.
func (e *Engine) Weights() *spad.DoubleBuffer {
	return e.weights
}

// Activations returns the activation double buffer.
func (e *Engine) Activations() *spad.DoubleBuffer {
	return e.activations
}

// Accumulator returns the accumulator buffer.
func (e *Engine) Accumulator() *spad.SingleBuffer {
	return e.accumulator
}

// Cycle returns the current cycle.
func (e *Engine) Cycle() uint64 {
	return e.cycle
}

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

func (e *Engine) fire(pos *sim.HookPos, item, detail interface{}) {
	if e.NumHooks() == 0 {
		return
	}

	e.InvokeHook(sim.HookCtx{
		Domain: e,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}

// HostWrite lets the host seed off-chip memory through the word bus. It
// costs no cycles but, like every off-chip access, moves the open DRAM row.
func (e *Engine) HostWrite(addr uint64, data []byte) {
	e.latency.Latency(addr, len(data))
	e.dram.WriteBytes(addr, data)
	e.stats.DRAMBytesWritten += uint64(len(data))
}

// HostRead lets the host read off-chip memory through the word bus without
// timing. The open DRAM row still moves.
func (e *Engine) HostRead(addr uint64, n int) []byte {
	e.latency.Latency(addr, n)
	return e.dram.ReadBytes(addr, n)
}

// ReadOffChip reads off-chip memory and returns the access latency. The
// caller is responsible for charging it.
func (e *Engine) ReadOffChip(addr uint64, n int) ([]byte, uint64) {
	lat := e.latency.Latency(addr, n)
	data := e.dram.Read(addr, n)
	e.stats.DRAMBytesRead += uint64(n)

	return data, lat
}

// WriteOffChip writes off-chip memory and returns the access latency.
func (e *Engine) WriteOffChip(addr uint64, data []byte) uint64 {
	lat := e.latency.Latency(addr, len(data))
	e.dram.Write(addr, data)
	e.stats.DRAMBytesWritten += uint64(len(data))

	return lat
}

// Load starts a background transfer of size bytes from dramAddr into the
// loading side of buf at bufOffset. The transfer takes the DMA setup cycles
// plus the DRAM latency. A busy buffer rejects the request before anything
// is read.
func (e *Engine) Load(
	buf *spad.DoubleBuffer,
	dramAddr uint64,
	size int,
	bufOffset int,
) error {
	if buf.DMARunning() {
		return fmt.Errorf("%s: %w", buf.Name(), spad.ErrBufferBusy)
	}

	if bufOffset < 0 || size < 0 || bufOffset+size > buf.Size() {
		return fmt.Errorf("%s: %w: offset %d size %d capacity %d",
			buf.Name(), spad.ErrOutOfRange, bufOffset, size, buf.Size())
	}

	data, lat := e.ReadOffChip(dramAddr, size)
	total := uint64(e.cfg.DMASetupCycles) + lat

	if err := buf.StartDMA(data, bufOffset, int(total)); err != nil {
		return err
	}

	e.stats.DMATransfers++

	t := Transfer{
		Buffer:  buf.Name(),
		DRAM:    dramAddr,
		Offset:  bufOffset,
		Size:    size,
		Cycles:  total,
		IssueAt: e.cycle,
	}
	e.inFlight[buf] = t
	e.fire(HookPosDMAStart, t, nil)

	return nil
}

// LoadWeights starts a transfer into the weight buffer.
func (e *Engine) LoadWeights(dramAddr uint64, size, bufOffset int) error {
	return e.Load(e.weights, dramAddr, size, bufOffset)
}

// LoadActivations starts a transfer into the activation buffer.
func (e *Engine) LoadActivations(dramAddr uint64, size, bufOffset int) error {
	return e.Load(e.activations, dramAddr, size, bufOffset)
}

// LoadBlocking reads size bytes from dramAddr without going through a
// scratchpad. The setup and DRAM latency are charged immediately as stall
// time.
func (e *Engine) LoadBlocking(dramAddr uint64, size int) []byte {
	data, lat := e.ReadOffChip(dramAddr, size)
	total := uint64(e.cfg.DMASetupCycles) + lat

	e.cycle += total
	e.stats.TotalCycles += total
	e.stats.StallCycles += total
	e.stats.DMATransfers++

	e.fire(HookPosLoad, Transfer{
		Buffer:  "Direct",
		DRAM:    dramAddr,
		Size:    size,
		Cycles:  total,
		IssueAt: e.cycle - total,
	}, nil)

	return data
}

// StoreBlocking copies size bytes of the accumulator at bufOffset to
// dramAddr. It does not run in the background: the write latency is charged
// immediately as stall time.
func (e *Engine) StoreBlocking(dramAddr uint64, bufOffset, size int) error {
	data, err := e.accumulator.Read(bufOffset, size)
	if err != nil {
		return err
	}

	e.store(e.accumulator.Name(), dramAddr, bufOffset, data, 0)

	return nil
}

// StoreData writes data read from an on-chip slot to dramAddr, charging one
// SRAM access plus the DRAM write latency.
func (e *Engine) StoreData(dramAddr uint64, data []byte) {
	e.store("Slot", dramAddr, 0, data, uint64(e.cfg.SRAMLatency))
}

func (e *Engine) store(
	src string,
	dramAddr uint64,
	offset int,
	data []byte,
	extra uint64,
) {
	lat := e.WriteOffChip(dramAddr, data) + extra

	e.cycle += lat
	e.stats.TotalCycles += lat
	e.stats.StallCycles += lat
	e.stats.DMATransfers++

	e.fire(HookPosStore, Transfer{
		Buffer:  src,
		DRAM:    dramAddr,
		Offset:  offset,
		Size:    len(data),
		Cycles:  lat,
		IssueAt: e.cycle - lat,
	}, nil)
}

// Tick advances the global clock by n cycles, moving every in-flight DMA.
func (e *Engine) Tick(n int) {
	for i := 0; i < n; i++ {
		e.cycle++
		e.stats.TotalCycles++
		e.tickBuffer(e.weights)
		e.tickBuffer(e.activations)
	}
}

func (e *Engine) tickBuffer(buf *spad.DoubleBuffer) {
	if !buf.Tick() {
		return
	}

	t := e.inFlight[buf]
	delete(e.inFlight, buf)
	e.fire(HookPosDMAComplete, t, e.cycle)
}

// WaitFor ticks until the DMA on buf completes and returns the number of
// stalled cycles. It returns immediately if nothing is in flight.
func (e *Engine) WaitFor(buf *spad.DoubleBuffer) uint64 {
	stalls := uint64(0)
	for buf.DMARunning() {
		e.Tick(1)
		stalls++
		e.stats.StallCycles++
	}

	if stalls > 0 {
		e.fire(HookPosStall, buf.Name(), stalls)
	}

	return stalls
}

// WaitForWeights waits on the weight buffer.
func (e *Engine) WaitForWeights() uint64 {
	return e.WaitFor(e.weights)
}

// WaitForActivations waits on the activation buffer.
func (e *Engine) WaitForActivations() uint64 {
	return e.WaitFor(e.activations)
}

// Switch swaps the sides of buf.
func (e *Engine) Switch(buf *spad.DoubleBuffer) error {
	if err := buf.Switch(); err != nil {
		return err
	}

	e.stats.BufferSwitches++
	e.fire(HookPosSwitch, buf.Name(), e.cycle)

	return nil
}

// Compute charges n cycles of array work. In-flight DMAs progress in the
// background.
func (e *Engine) Compute(n int) {
	for i := 0; i < n; i++ {
		e.Tick(1)
		e.stats.ComputeCycles++
	}
}
