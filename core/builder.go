package core

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/tpusim/config"
	"github.com/sarchlab/tpusim/dma"
	"github.com/sarchlab/tpusim/memory"
	"github.com/sarchlab/tpusim/queue"
	"github.com/sarchlab/tpusim/spad"
	"github.com/sarchlab/tpusim/systolic"
)

// Builder can create control units.
type Builder struct {
	cfg     config.Config
	mode    Mode
	latency memory.LatencyPolicy
	hooks   []sim.Hook
}

// NewBuilder creates a builder with the default configuration in
// functional mode.
func NewBuilder() Builder {
	return Builder{cfg: config.DefaultConfig()}
}

// WithConfig sets the configuration.
func (b Builder) WithConfig(cfg config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithMode sets the execution mode.
func (b Builder) WithMode(mode Mode) Builder {
	b.mode = mode
	return b
}

// WithLatencyPolicy replaces the DRAM latency model.
func (b Builder) WithLatencyPolicy(p memory.LatencyPolicy) Builder {
	b.latency = p
	return b
}

// WithHook attaches a hook to the memory subsystem.
func (b Builder) WithHook(h sim.Hook) Builder {
	b.hooks = append(append([]sim.Hook(nil), b.hooks...), h)
	return b
}

// Build creates a unit. The configuration must be valid.
func (b Builder) Build(name string) *Unit {
	if err := b.cfg.Validate(); err != nil {
		panic(err)
	}

	m := dma.NewBuilder().
		WithConfig(b.cfg).
		WithLatencyPolicy(b.latency).
		Build(name + ".Memory")
	for _, h := range b.hooks {
		m.AcceptHook(h)
	}

	sram := spad.NewSingleBuffer(name+".SRAM", b.cfg.NumSlots*b.cfg.SlotSize())

	return &Unit{
		name:        name,
		cfg:         b.cfg,
		mode:        b.mode,
		mem:         m,
		array:       systolic.NewArray(b.cfg.ArraySize),
		fifo:        queue.NewWeightFIFO(),
		out:         queue.NewOutputCollector(),
		sram:        sram,
		slots:       spad.NewArena(sram, b.cfg.NumSlots, b.cfg.SlotSize()),
		acc:         newAccumulator(b.cfg.ArraySize),
		stagedSlots: make(map[int]int),
	}
}
