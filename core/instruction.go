package core

import (
	"fmt"
	"strings"
)

// Opcode represents the operation code for an instruction
type Opcode string

const (
	OpGmem2Smem   Opcode = "gmem2smem"
	OpSmem2Gmem   Opcode = "smem2gmem"
	OpLoadBias    Opcode = "load_bias"
	OpLoadZP      Opcode = "load_zp"
	OpLoadQSF     Opcode = "load_qsf"
	OpLoadQSFF32  Opcode = "load_qsf_f32"
	OpLoadWeights Opcode = "load_weights"
	OpDoMatmul    Opcode = "do_matmul"
	OpBeginTile   Opcode = "begin_tile"
	OpEndTile     Opcode = "end_tile"
)

// Valid reports whether the opcode belongs to the instruction set.
func (o Opcode) Valid() bool {
	switch o {
	case OpGmem2Smem, OpSmem2Gmem, OpLoadBias, OpLoadZP, OpLoadQSF,
		OpLoadQSFF32, OpLoadWeights, OpDoMatmul, OpBeginTile, OpEndTile:
		return true
	}

	return false
}

// Space names where a finished tile is written.
type Space string

const (
	OnChip  Space = "onchip"
	OffChip Space = "offchip"
)

// StoreTarget is the destination of a finished output tile. On-chip targets
// are slots, off-chip targets are byte addresses.
type StoreTarget struct {
	Space Space  `yaml:"space"`
	Addr  uint64 `yaml:"addr,omitempty"`
	Slot  int    `yaml:"slot,omitempty"`
}

func (t StoreTarget) String() string {
	if t.Space == OnChip {
		return fmt.Sprintf("onchip:slot%d", t.Slot)
	}

	return fmt.Sprintf("offchip:%#x", t.Addr)
}

// Instruction is one entry of the instruction stream. Only the fields used
// by its opcode are meaningful.
type Instruction struct {
	Opcode   Opcode       `yaml:"op"`
	Addr     uint64       `yaml:"addr,omitempty"`
	Slot     int          `yaml:"slot,omitempty"`
	Size     int          `yaml:"size,omitempty"`
	Shape    []int        `yaml:"shape,omitempty,flow"`
	FromSlot bool         `yaml:"from_slot,omitempty"`
	Feedback bool         `yaml:"feedback,omitempty"`
	Store    *StoreTarget `yaml:"store,omitempty"`
}

// Gmem2Smem copies size bytes at addr into slot.
func Gmem2Smem(addr uint64, slot, size int) Instruction {
	return Instruction{Opcode: OpGmem2Smem, Addr: addr, Slot: slot, Size: size}
}

// Smem2Gmem copies size bytes of slot to addr.
func Smem2Gmem(slot int, addr uint64, size int) Instruction {
	return Instruction{Opcode: OpSmem2Gmem, Addr: addr, Slot: slot, Size: size}
}

// LoadBias stages a rows x cols int32 bias vector.
func LoadBias(addr uint64, rows, cols int) Instruction {
	return Instruction{Opcode: OpLoadBias, Addr: addr, Shape: []int{rows, cols}}
}

// LoadZP stages a rows x cols int32 zero-point vector.
func LoadZP(addr uint64, rows, cols int) Instruction {
	return Instruction{Opcode: OpLoadZP, Addr: addr, Shape: []int{rows, cols}}
}

// LoadQSF stages a rows x cols int32 multiplier vector.
func LoadQSF(addr uint64, rows, cols int) Instruction {
	return Instruction{Opcode: OpLoadQSF, Addr: addr, Shape: []int{rows, cols}}
}

// LoadQSFF32 stages a rows x cols float32 multiplier vector.
func LoadQSFF32(addr uint64, rows, cols int) Instruction {
	return Instruction{Opcode: OpLoadQSFF32, Addr: addr, Shape: []int{rows, cols}}
}

// LoadWeights enqueues size bytes at addr into the weight FIFO.
func LoadWeights(addr uint64, size int) Instruction {
	return Instruction{Opcode: OpLoadWeights, Addr: addr, Size: size}
}

// LoadWeightsFromSlot enqueues size bytes of an on-chip slot.
func LoadWeightsFromSlot(slot, size int) Instruction {
	return Instruction{Opcode: OpLoadWeights, Slot: slot, Size: size, FromSlot: true}
}

// Accumulate is a do_matmul that folds one reduction step into the running
// sum.
func Accumulate(slot int) Instruction {
	return Instruction{Opcode: OpDoMatmul, Slot: slot, Feedback: true}
}

// Finish is a do_matmul that adds the last reduction step, post-processes
// the sum and stores it.
func Finish(slot int, store StoreTarget) Instruction {
	return Instruction{Opcode: OpDoMatmul, Slot: slot, Store: &store}
}

// BeginTile zeroes the running sum and opens a tile.
func BeginTile() Instruction {
	return Instruction{Opcode: OpBeginTile}
}

// EndTile checks that no reduction is left open.
func EndTile() Instruction {
	return Instruction{Opcode: OpEndTile}
}

// ToSlot targets an on-chip slot.
func ToSlot(slot int) StoreTarget {
	return StoreTarget{Space: OnChip, Slot: slot}
}

// ToAddr targets an off-chip address.
func ToAddr(addr uint64) StoreTarget {
	return StoreTarget{Space: OffChip, Addr: addr}
}

func (i Instruction) String() string {
	var b strings.Builder

	b.WriteString(string(i.Opcode))

	switch i.Opcode {
	case OpGmem2Smem:
		fmt.Fprintf(&b, " %#x -> slot%d, %d", i.Addr, i.Slot, i.Size)
	case OpSmem2Gmem:
		fmt.Fprintf(&b, " slot%d -> %#x, %d", i.Slot, i.Addr, i.Size)
	case OpLoadBias, OpLoadZP, OpLoadQSF, OpLoadQSFF32:
		fmt.Fprintf(&b, " %#x, %v", i.Addr, i.Shape)
	case OpLoadWeights:
		if i.FromSlot {
			fmt.Fprintf(&b, " slot%d, %d", i.Slot, i.Size)
		} else {
			fmt.Fprintf(&b, " %#x, %d", i.Addr, i.Size)
		}
	case OpDoMatmul:
		fmt.Fprintf(&b, " slot%d, feedback=%t", i.Slot, i.Feedback)
		if i.Store != nil {
			fmt.Fprintf(&b, ", store=%s", i.Store)
		}
	}

	return b.String()
}
