// Package core implements the control unit that executes the accelerator's
// instruction stream against the memory subsystem and the systolic array.
package core

import (
	"encoding/binary"
	"fmt"
	"maps"
	"slices"

	"github.com/sarchlab/tpusim/config"
	"github.com/sarchlab/tpusim/dma"
	"github.com/sarchlab/tpusim/quant"
	"github.com/sarchlab/tpusim/queue"
	"github.com/sarchlab/tpusim/spad"
	"github.com/sarchlab/tpusim/systolic"
	"github.com/sarchlab/tpusim/tensor"
	"github.com/sarchlab/tpusim/util"
)

// Mode selects how the unit moves data between off-chip memory and the
// scratchpads.
type Mode int

const (
	// ModeFunctional performs every transfer synchronously and charges its
	// latency as stall time where it is issued.
	ModeFunctional Mode = iota
	// ModeTimed routes activation and weight loads through the DMA engine.
	// They land in the loading side of the double buffers and become
	// visible when an instruction first needs them.
	ModeTimed
)

func (m Mode) String() string {
	switch m {
	case ModeFunctional:
		return "functional"
	case ModeTimed:
		return "timed"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "functional", "":
		return ModeFunctional, nil
	case "timed":
		return ModeTimed, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", name)
	}
}

type span struct {
	offset, size int
}

// Unit is the instruction execution engine. It executes instructions
// strictly in program order.
type Unit struct {
	name string
	cfg  config.Config
	mode Mode

	mem   *dma.Engine
	array *systolic.Array
	fifo  *queue.WeightFIFO
	out   *queue.OutputCollector
	sram  *spad.SingleBuffer
	slots *spad.Arena
	acc   *accumulator

	bias, zp, qsf *channelVector

	stagedSlots   map[int]int
	stagedWeights []span
	weightOffset  int
	executed      int
}

// Name returns the name of the unit.
func (u *Unit) Name() string {
	return u.name
}

// Config returns the configuration the unit was built with.
func (u *Unit) Config() config.Config {
	return u.cfg
}

// Mode returns the execution mode.
func (u *Unit) Mode() Mode {
	return u.mode
}

// Memory returns the memory subsystem.
func (u *Unit) Memory() *dma.Engine {
	return u.mem
}

// Stats returns a snapshot of the memory subsystem counters.
func (u *Unit) Stats() dma.Stats {
	return u.mem.Stats()
}

// Cycle returns the current cycle.
func (u *Unit) Cycle() uint64 {
	return u.mem.Cycle()
}

// Executed returns the number of instructions completed.
func (u *Unit) Executed() int {
	return u.executed
}

// FIFOLen returns the number of weight bytes waiting in the FIFO.
func (u *Unit) FIFOLen() int {
	return u.fifo.Len()
}

// Accumulator returns a snapshot of the partial-sum register.
func (u *Unit) Accumulator() AccumulatorSnapshot {
	return u.acc.snapshot()
}

// Params describes the staged per-channel registers.
func (u *Unit) Params() Params {
	return Params{
		BiasShape: shapeOf(u.bias),
		ZPShape:   shapeOf(u.zp),
		QSFShape:  shapeOf(u.qsf),
		FloatQSF:  u.qsf != nil && u.qsf.floats != nil,
	}
}

// HostStore writes off-chip memory directly, bypassing timing.
func (u *Unit) HostStore(addr uint64, data []byte) {
	u.mem.HostWrite(addr, data)
}

// HostStoreInt8 preloads an int8 matrix.
func (u *Unit) HostStoreInt8(addr uint64, m [][]int8) {
	u.HostStore(addr, tensor.Int8Bytes(m))
}

// HostStoreInt32 preloads an int32 matrix.
func (u *Unit) HostStoreInt32(addr uint64, m [][]int32) {
	u.HostStore(addr, tensor.Int32Bytes(m))
}

// HostStoreFloat32 preloads a float32 vector.
func (u *Unit) HostStoreFloat32(addr uint64, v []float32) {
	u.HostStore(addr, tensor.Float32VectorBytes(v))
}

// HostRead reads off-chip memory directly, bypassing timing.
func (u *Unit) HostRead(addr uint64, n int) []byte {
	return u.mem.HostRead(addr, n)
}

// HostReadInt8 reads back an int8 matrix.
func (u *Unit) HostReadInt8(addr uint64, rows, cols int) [][]int8 {
	return tensor.Int8Matrix(u.HostRead(addr, rows*cols), rows, cols)
}

// HostReadInt32 reads back an int32 matrix.
func (u *Unit) HostReadInt32(addr uint64, rows, cols int) [][]int32 {
	return tensor.Int32Matrix(u.HostRead(addr, 4*rows*cols), rows, cols)
}

// ReadSlot returns the first n bytes of an on-chip slot. Loads still staged
// in the activation buffer are not visible until an instruction uses the
// slot.
func (u *Unit) ReadSlot(slot, n int) ([]byte, error) {
	return u.slots.Read(slot, n)
}

// ReadSlotInt32 reads an int32 matrix from an on-chip slot.
func (u *Unit) ReadSlotInt32(slot, rows, cols int) ([][]int32, error) {
	data, err := u.ReadSlot(slot, 4*rows*cols)
	if err != nil {
		return nil, err
	}

	return tensor.Int32Matrix(data, rows, cols), nil
}

// Run executes a program and then waits for any transfer still in flight.
// It stops at the first failing instruction.
func (u *Unit) Run(p Program) error {
	for i, inst := range p.Instructions {
		if err := u.Execute(inst); err != nil {
			return fmt.Errorf("instruction %d (%s): %w", i, inst.Opcode, err)
		}
	}

	u.Flush()

	return nil
}

// Flush waits for every in-flight DMA.
func (u *Unit) Flush() {
	u.mem.WaitForWeights()
	u.mem.WaitForActivations()
}

// Execute runs one instruction.
func (u *Unit) Execute(inst Instruction) error {
	var err error

	switch inst.Opcode {
	case OpGmem2Smem:
		err = u.gmem2smem(inst)
	case OpSmem2Gmem:
		err = u.smem2gmem(inst)
	case OpLoadBias:
		err = u.stage(&u.bias, inst, false)
	case OpLoadZP:
		err = u.stage(&u.zp, inst, false)
	case OpLoadQSF:
		err = u.stage(&u.qsf, inst, false)
	case OpLoadQSFF32:
		err = u.stage(&u.qsf, inst, true)
	case OpLoadWeights:
		err = u.loadWeights(inst)
	case OpDoMatmul:
		err = u.doMatmul(inst)
	case OpBeginTile:
		u.acc.begin()
	case OpEndTile:
		err = u.endTile()
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownOpcode, inst.Opcode)
	}

	if err != nil {
		return err
	}

	u.executed++

	util.Trace("Unit",
		"Behavior", "Execute",
		"Unit", u.name,
		"Inst", inst.String(),
		"Cycle", u.mem.Cycle(),
	)

	return nil
}

func (u *Unit) checkSlotSize(slot, size int) (int, error) {
	if size <= 0 || size > u.slots.SlotSize() {
		return 0, fmt.Errorf("%w: %d bytes, slot holds %d",
			ErrInvalidSize, size, u.slots.SlotSize())
	}

	return u.slots.Offset(slot, size)
}

func (u *Unit) gmem2smem(inst Instruction) error {
	off, err := u.checkSlotSize(inst.Slot, inst.Size)
	if err != nil {
		return err
	}

	if u.mode == ModeFunctional {
		data := u.mem.LoadBlocking(inst.Addr, inst.Size)
		return u.slots.Write(inst.Slot, data)
	}

	act := u.mem.Activations()
	u.mem.WaitFor(act)

	if err := u.mem.Load(act, inst.Addr, inst.Size, off); err != nil {
		return err
	}

	u.stagedSlots[inst.Slot] = max(u.stagedSlots[inst.Slot], inst.Size)

	return nil
}

// syncSlot makes a staged load of slot visible. The activation buffer is
// switched and every staged slot is copied out of its active side.
func (u *Unit) syncSlot(slot int) error {
	if _, ok := u.stagedSlots[slot]; !ok {
		return nil
	}

	act := u.mem.Activations()
	u.mem.WaitFor(act)

	if err := u.mem.Switch(act); err != nil {
		return err
	}

	for _, s := range slices.Sorted(maps.Keys(u.stagedSlots)) {
		size := u.stagedSlots[s]

		data, err := act.Read(s*u.slots.SlotSize(), size)
		if err != nil {
			return err
		}

		if err := u.slots.Write(s, data); err != nil {
			return err
		}

		delete(u.stagedSlots, s)
	}

	return nil
}

func (u *Unit) smem2gmem(inst Instruction) error {
	if _, err := u.checkSlotSize(inst.Slot, inst.Size); err != nil {
		return err
	}

	if err := u.syncSlot(inst.Slot); err != nil {
		return err
	}

	data, err := u.slots.Read(inst.Slot, inst.Size)
	if err != nil {
		return err
	}

	u.mem.StoreData(inst.Addr, data)

	return nil
}

// stage replaces *dst only when the load succeeds.
func (u *Unit) stage(dst **channelVector, inst Instruction, float bool) error {
	v, err := u.loadVector(inst, float)
	if err != nil {
		return err
	}

	*dst = v

	return nil
}

func (u *Unit) loadVector(inst Instruction, float bool) (*channelVector, error) {
	rows, cols, err := parseShape(inst.Shape, u.cfg.ArraySize)
	if err != nil {
		return nil, err
	}

	n := rows * cols
	data := u.mem.LoadBlocking(inst.Addr, 4*n)

	v := &channelVector{rows: rows, cols: cols}
	if float {
		v.floats = tensor.Float32Vector(data, n)
	} else {
		v.ints = tensor.Int32Vector(data, n)
	}

	return v, nil
}

func (u *Unit) loadWeights(inst Instruction) error {
	if inst.Size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, inst.Size)
	}

	if inst.FromSlot {
		return u.loadWeightsFromSlot(inst)
	}

	wb := u.mem.Weights()
	if inst.Size > wb.Size() {
		return fmt.Errorf("%w: %d bytes, weight buffer holds %d",
			ErrInvalidSize, inst.Size, wb.Size())
	}

	if u.mode == ModeFunctional {
		u.fifo.PushBytes(u.mem.LoadBlocking(inst.Addr, inst.Size))
		return nil
	}

	if u.weightOffset+inst.Size > wb.Size() {
		if err := u.syncWeights(); err != nil {
			return err
		}
	}

	u.mem.WaitFor(wb)

	if err := u.mem.Load(wb, inst.Addr, inst.Size, u.weightOffset); err != nil {
		return err
	}

	u.stagedWeights = append(u.stagedWeights, span{u.weightOffset, inst.Size})
	u.weightOffset += inst.Size

	return nil
}

func (u *Unit) loadWeightsFromSlot(inst Instruction) error {
	if _, err := u.checkSlotSize(inst.Slot, inst.Size); err != nil {
		return err
	}

	// Staged weights were issued first and must reach the FIFO first.
	if err := u.syncWeights(); err != nil {
		return err
	}

	if err := u.syncSlot(inst.Slot); err != nil {
		return err
	}

	data, err := u.slots.Read(inst.Slot, inst.Size)
	if err != nil {
		return err
	}

	u.mem.Tick(u.cfg.SRAMLatency)
	u.fifo.PushBytes(data)

	return nil
}

// syncWeights switches the weight buffer and moves every staged load into
// the FIFO in issue order.
func (u *Unit) syncWeights() error {
	if len(u.stagedWeights) == 0 {
		return nil
	}

	wb := u.mem.Weights()
	u.mem.WaitFor(wb)

	if err := u.mem.Switch(wb); err != nil {
		return err
	}

	for _, s := range u.stagedWeights {
		data, err := wb.Read(s.offset, s.size)
		if err != nil {
			return err
		}

		u.fifo.PushBytes(data)
	}

	u.stagedWeights = u.stagedWeights[:0]
	u.weightOffset = 0

	return nil
}

func (u *Unit) outputBytes() int {
	if u.cfg.OutputFormat == config.OutputInt8 {
		return u.cfg.TileBytes()
	}

	return 4 * u.cfg.TileBytes()
}

func (u *Unit) checkFinish(t StoreTarget) error {
	n := u.cfg.ArraySize
	for _, p := range []struct {
		name string
		v    *channelVector
	}{{"bias", u.bias}, {"zero point", u.zp}, {"multiplier", u.qsf}} {
		if err := p.v.check(p.name, n); err != nil {
			return err
		}
	}

	switch t.Space {
	case OnChip:
		_, err := u.slots.Offset(t.Slot, u.outputBytes())
		return err
	case OffChip, "":
		return nil
	default:
		return fmt.Errorf("%w: space %q", ErrInvalidStore, t.Space)
	}
}

func (u *Unit) doMatmul(inst Instruction) error {
	if inst.Feedback && inst.Store != nil {
		return ErrUnexpectedStore
	}
	if !inst.Feedback && inst.Store == nil {
		return ErrMissingStore
	}

	tile := u.cfg.TileBytes()
	if _, err := u.slots.Offset(inst.Slot, tile); err != nil {
		return err
	}

	if !inst.Feedback {
		if err := u.checkFinish(*inst.Store); err != nil {
			return err
		}
	}

	if err := u.syncSlot(inst.Slot); err != nil {
		return err
	}

	if u.fifo.Len() < tile {
		if err := u.syncWeights(); err != nil {
			return err
		}
	}

	act, err := u.slots.Read(inst.Slot, tile)
	if err != nil {
		return err
	}

	n := u.cfg.ArraySize
	product, ticks, err := u.array.MatMul(
		tensor.Int8Matrix(act, n, n),
		tensor.Int8Matrix(u.fifo.PopN(tile), n, n),
	)
	if err != nil {
		return err
	}

	u.mem.Compute(ticks)
	u.acc.add(product)

	if inst.Feedback {
		return nil
	}

	return u.finishTile(*inst.Store)
}

// finishTile post-processes the running sum, drains it to the store target
// and resets the register.
func (u *Unit) finishTile(t StoreTarget) error {
	n := u.cfg.ArraySize
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			p := quant.Params{
				Bias:       u.bias.intAt(i, j),
				ZeroPoint:  u.zp.intAt(i, j),
				Multiplier: u.qsf.multiplier(i, j, u.cfg.QuantShift),
			}
			v := quant.Requantize(u.acc.sum[i][j], p)

			if u.cfg.OutputFormat == config.OutputInt8 {
				u.out.PushByte(quant.ToByte(quant.SaturateInt8(v)))
				continue
			}

			var word [4]byte
			binary.LittleEndian.PutUint32(word[:], uint32(quant.SaturateInt32(v)))
			for _, b := range word {
				u.out.PushByte(b)
			}
		}
	}

	var err error
	if t.Space == OnChip {
		err = u.out.DrainTo(slotSink{u}, uint64(t.Slot))
	} else {
		err = u.out.DrainTo(u.offChipSink(), t.Addr)
	}

	if err != nil {
		return err
	}

	util.Trace("Unit",
		"Behavior", "TileDone",
		"Unit", u.name,
		"Steps", u.acc.steps,
		"Store", t.String(),
		"Cycle", u.mem.Cycle(),
	)

	u.acc.finish()

	return nil
}

func (u *Unit) endTile() error {
	if u.acc.state == AccAccumulating {
		return fmt.Errorf("%w: %d steps accumulated", ErrTileOpen, u.acc.steps)
	}

	u.acc.explicit = false

	return nil
}

func (u *Unit) offChipSink() queue.Sink {
	if u.mode == ModeTimed {
		return accumulatorSink{u.mem}
	}

	return directSink{u.mem}
}

// slotSink writes a drained tile into an on-chip slot.
type slotSink struct {
	u *Unit
}

func (s slotSink) Write(addr uint64, data []byte) error {
	slot := int(addr)

	// A staged load issued earlier must not land on top of this result.
	if err := s.u.syncSlot(slot); err != nil {
		return err
	}

	if err := s.u.slots.Write(slot, data); err != nil {
		return err
	}

	s.u.mem.Tick(s.u.cfg.SRAMLatency)

	return nil
}

// directSink writes a drained tile straight to off-chip memory.
type directSink struct {
	mem *dma.Engine
}

func (s directSink) Write(addr uint64, data []byte) error {
	s.mem.StoreData(addr, data)
	return nil
}

// accumulatorSink moves a drained tile through the accumulator buffer and
// stores it with a blocking DMA.
type accumulatorSink struct {
	mem *dma.Engine
}

func (s accumulatorSink) Write(addr uint64, data []byte) error {
	if err := s.mem.Accumulator().Write(0, data); err != nil {
		return err
	}

	return s.mem.StoreBlocking(addr, 0, len(data))
}
