package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/tpusim/config"
)

var _ = Describe("Config", func() {
	It("should carry the default timing", func() {
		cfg := config.DefaultConfig()
		Expect(cfg.ArraySize).To(Equal(8))
		Expect(cfg.DRAMLatency).To(Equal(80))
		Expect(cfg.DMASetupCycles).To(Equal(10))
		Expect(cfg.RowSize).To(Equal(8192))
		Expect(cfg.Validate()).To(Succeed())
	})

	It("should size slots for int32 tiles", func() {
		cfg := config.DefaultConfig()
		cfg.ArraySize = 2
		Expect(cfg.TileBytes()).To(Equal(4))
		Expect(cfg.SlotSize()).To(Equal(16))
	})

	It("should reject a non-positive array", func() {
		cfg := config.DefaultConfig()
		cfg.ArraySize = 0
		Expect(cfg.Validate()).To(MatchError(config.ErrInvalidConfig))
	})

	It("should reject slots that do not fit the activation buffer", func() {
		cfg := config.DefaultConfig()
		cfg.NumSlots = 1000
		Expect(cfg.Validate()).To(MatchError(config.ErrInvalidConfig))
	})

	It("should reject unknown output formats", func() {
		cfg := config.DefaultConfig()
		cfg.OutputFormat = "fp16"
		Expect(cfg.Validate()).To(MatchError(config.ErrInvalidConfig))
	})

	It("should overlay YAML on the defaults", func() {
		cfg, err := config.Parse([]byte("array_size: 2\ndram_latency: 40\noutput_format: int8\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.ArraySize).To(Equal(2))
		Expect(cfg.DRAMLatency).To(Equal(40))
		Expect(cfg.OutputFormat).To(Equal(config.OutputInt8))
		Expect(cfg.DMASetupCycles).To(Equal(10))
	})

	It("should load from a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "tpu.yaml")
		Expect(os.WriteFile(path, []byte("num_slots: 4\n"), 0o644)).To(Succeed())

		cfg, err := config.LoadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.NumSlots).To(Equal(4))
	})

	It("should report a missing file", func() {
		_, err := config.LoadFile(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
		Expect(err).To(HaveOccurred())
	})
})
