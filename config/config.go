// Package config provides the default configuration for the accelerator
// model.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/mem/mem"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate for malformed configurations.
var ErrInvalidConfig = errors.New("invalid config")

// OutputFormat selects how finished output tiles are stored.
type OutputFormat string

const (
	// OutputInt32 stores the requantized value as a little-endian int32
	// without clamping to the 8-bit range.
	OutputInt32 OutputFormat = "int32"
	// OutputInt8 stores the saturated int8 result.
	OutputInt8 OutputFormat = "int8"
)

// Config holds every capacity and timing knob of one simulation run. It is
// not modified after the simulator is built.
type Config struct {
	ArraySize int `yaml:"array_size"`

	WeightBufferSize      int    `yaml:"weight_buffer_size"`
	ActivationBufferSize  int    `yaml:"activation_buffer_size"`
	AccumulatorBufferSize int    `yaml:"accumulator_buffer_size"`
	OffChipSize           uint64 `yaml:"offchip_size"`

	SRAMLatency    int `yaml:"sram_latency"`
	DRAMLatency    int `yaml:"dram_latency"`
	DMASetupCycles int `yaml:"dma_setup_cycles"`
	RowSize        int `yaml:"row_size"`
	RowHitLatency  int `yaml:"row_hit_latency"`
	BurstBytes     int `yaml:"burst_bytes"`

	NumSlots     int          `yaml:"num_slots"`
	QuantShift   uint         `yaml:"quant_shift"`
	OutputFormat OutputFormat `yaml:"output_format"`
}

// DefaultConfig returns an 8x8 array with 2 KiB weight and activation
// buffers and an 80-cycle DRAM.
func DefaultConfig() Config {
	return Config{
		ArraySize:             8,
		WeightBufferSize:      2 * 1024,
		ActivationBufferSize:  2 * 1024,
		AccumulatorBufferSize: 4 * 1024,
		OffChipSize:           1 * mem.MB,
		SRAMLatency:           1,
		DRAMLatency:           80,
		DMASetupCycles:        10,
		RowSize:               8192,
		RowHitLatency:         10,
		BurstBytes:            64,
		NumSlots:              8,
		QuantShift:            0,
		OutputFormat:          OutputInt32,
	}
}

// TileBytes is the size of one int8 N x N tile.
func (c Config) TileBytes() int {
	return c.ArraySize * c.ArraySize
}

// SlotSize is the size of one on-chip slot. A slot holds an int32 tile so
// that finished outputs fit in any slot.
func (c Config) SlotSize() int {
	return c.ArraySize * c.ArraySize * 4
}

// Validate checks the configuration for values the simulator cannot run
// with.
func (c Config) Validate() error {
	switch {
	case c.ArraySize <= 0:
		return fmt.Errorf("%w: array_size must be positive, got %d",
			ErrInvalidConfig, c.ArraySize)
	case c.WeightBufferSize < c.TileBytes():
		return fmt.Errorf("%w: weight buffer (%d B) smaller than one tile (%d B)",
			ErrInvalidConfig, c.WeightBufferSize, c.TileBytes())
	case c.ActivationBufferSize < c.NumSlots*c.SlotSize():
		return fmt.Errorf("%w: activation buffer (%d B) cannot hold %d slots of %d B",
			ErrInvalidConfig, c.ActivationBufferSize, c.NumSlots, c.SlotSize())
	case c.AccumulatorBufferSize < c.SlotSize():
		return fmt.Errorf("%w: accumulator (%d B) smaller than one output tile (%d B)",
			ErrInvalidConfig, c.AccumulatorBufferSize, c.SlotSize())
	case c.OffChipSize == 0:
		return fmt.Errorf("%w: offchip_size must be positive", ErrInvalidConfig)
	case c.NumSlots <= 0:
		return fmt.Errorf("%w: num_slots must be positive, got %d",
			ErrInvalidConfig, c.NumSlots)
	case c.SRAMLatency < 0 || c.DRAMLatency < 0 || c.DMASetupCycles < 0 ||
		c.RowHitLatency < 0:
		return fmt.Errorf("%w: latencies must not be negative", ErrInvalidConfig)
	case c.RowSize <= 0 || c.BurstBytes <= 0:
		return fmt.Errorf("%w: row_size and burst_bytes must be positive",
			ErrInvalidConfig)
	case c.QuantShift > 62:
		return fmt.Errorf("%w: quant_shift %d too large", ErrInvalidConfig,
			c.QuantShift)
	}

	switch c.OutputFormat {
	case OutputInt8, OutputInt32:
	default:
		return fmt.Errorf("%w: unknown output_format %q", ErrInvalidConfig,
			c.OutputFormat)
	}

	return nil
}

// Parse reads a YAML document on top of the defaults. Fields absent from the
// document keep their default values.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFile reads a YAML config file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}
