package core_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/tpusim/core"
)

var _ = Describe("Program", func() {
	It("should parse every field", func() {
		p, err := core.ParseProgram([]byte(`
name: fields
instructions:
  - {op: gmem2smem, addr: 0x40, slot: 3, size: 16}
  - {op: load_qsf_f32, addr: 0x220, shape: [1, 8]}
  - {op: load_weights, slot: 2, size: 64, from_slot: true}
  - {op: do_matmul, slot: 3, feedback: true}
  - {op: do_matmul, slot: 3, store: {space: offchip, addr: 0x1000}}
  - {op: begin_tile}
`))

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Name).To(Equal("fields"))
		Expect(p.Instructions).To(Equal([]core.Instruction{
			core.Gmem2Smem(0x40, 3, 16),
			core.LoadQSFF32(0x220, 1, 8),
			core.LoadWeightsFromSlot(2, 64),
			core.Accumulate(3),
			core.Finish(3, core.ToAddr(0x1000)),
			core.BeginTile(),
		}))
	})

	It("should reject unknown opcodes", func() {
		_, err := core.ParseProgram([]byte("instructions:\n  - {op: gemm}\n"))

		Expect(err).To(MatchError(core.ErrUnknownOpcode))
		Expect(err.Error()).To(ContainSubstring("instruction 0"))
	})

	It("should reject malformed documents", func() {
		_, err := core.ParseProgram([]byte("instructions: {op: [}"))

		Expect(err).To(HaveOccurred())
	})

	It("should survive a save and load", func() {
		p := program4x4(func(mi, ni int) core.StoreTarget {
			return core.ToAddr(uint64(0x400 + (mi*2+ni)*0x20))
		})
		path := filepath.Join(GinkgoT().TempDir(), "prog.yaml")

		Expect(core.SaveProgramFile(p, path)).To(Succeed())
		loaded, err := core.LoadProgramFile(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(p))
	})

	It("should fail on a missing file", func() {
		_, err := core.LoadProgramFile(filepath.Join(os.TempDir(), "does-not-exist.yaml"))

		Expect(err).To(HaveOccurred())
	})

	It("should print instructions", func() {
		Expect(core.Gmem2Smem(0x10, 1, 4).String()).To(Equal("gmem2smem 0x10 -> slot1, 4"))
		Expect(core.Finish(1, core.ToSlot(16)).String()).
			To(Equal("do_matmul slot1, feedback=false, store=onchip:slot16"))
		Expect(core.LoadBias(0x200, 2, 1).String()).To(Equal("load_bias 0x200, [2 1]"))
	})
})
