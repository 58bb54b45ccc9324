package dma

import (
	"github.com/sarchlab/tpusim/config"
	"github.com/sarchlab/tpusim/memory"
	"github.com/sarchlab/tpusim/spad"
)

// Builder can create memory engines.
type Builder struct {
	cfg     config.Config
	latency memory.LatencyPolicy
}

// NewBuilder creates a builder with the default configuration.
func NewBuilder() Builder {
	return Builder{cfg: config.DefaultConfig()}
}

// WithConfig sets the configuration.
func (b Builder) WithConfig(cfg config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithLatencyPolicy replaces the row-locality DRAM latency model.
func (b Builder) WithLatencyPolicy(p memory.LatencyPolicy) Builder {
	b.latency = p
	return b
}

// Build creates an engine.
func (b Builder) Build(name string) *Engine {
	latency := b.latency
	if latency == nil {
		latency = memory.NewRowLocality(
			uint64(b.cfg.RowSize),
			uint64(b.cfg.RowHitLatency),
			uint64(b.cfg.DRAMLatency),
			uint64(b.cfg.BurstBytes),
		)
	}

	return &Engine{
		name:    name,
		cfg:     b.cfg,
		dram:    memory.NewSpace(name+".DRAM", b.cfg.OffChipSize),
		latency: latency,
		weights: spad.NewDoubleBuffer(name+".WeightBuffer",
			b.cfg.WeightBufferSize),
		activations: spad.NewDoubleBuffer(name+".ActivationBuffer",
			b.cfg.ActivationBufferSize),
		accumulator: spad.NewSingleBuffer(name+".Accumulator",
			b.cfg.AccumulatorBufferSize),
		inFlight: make(map[*spad.DoubleBuffer]Transfer),
	}
}
