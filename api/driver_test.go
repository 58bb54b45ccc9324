package api_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/tpusim/api"
	"github.com/sarchlab/tpusim/config"
	"github.com/sarchlab/tpusim/core"
	"github.com/sarchlab/tpusim/spad"
)

func tinyConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.ArraySize = 2
	cfg.NumSlots = 4
	cfg.ActivationBufferSize = 64
	cfg.WeightBufferSize = 16
	cfg.AccumulatorBufferSize = 16
	cfg.OffChipSize = 4096
	return cfg
}

func tileProgram(name string, out uint64) core.Program {
	p := core.Program{Name: name}
	p.Append(
		core.LoadBias(0x200, 1, 1),
		core.LoadZP(0x210, 1, 1),
		core.LoadQSF(0x220, 1, 1),
		core.Gmem2Smem(0x00, 0, 4),
		core.LoadWeights(0x10, 4),
		core.Finish(0, core.ToAddr(out)),
	)
	return p
}

var _ = Describe("Driver", func() {
	var (
		engine sim.Engine
		unit   *core.Unit
		driver api.Driver
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		unit = core.NewBuilder().
			WithConfig(tinyConfig()).
			WithMode(core.ModeTimed).
			Build("TPU")
		driver = api.DriverBuilder{}.
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithUnit(unit).
			Build("Driver")

		unit.HostStoreInt8(0x00, [][]int8{{1, 2}, {3, 4}})
		unit.HostStoreInt8(0x10, [][]int8{{1, 1}, {0, 1}})
		unit.HostStoreInt32(0x200, [][]int32{{0}})
		unit.HostStoreInt32(0x210, [][]int32{{0}})
		unit.HostStoreInt32(0x220, [][]int32{{3}})
	})

	It("should run one instruction per tick", func() {
		driver.Enqueue(tileProgram("tile", 0x300))

		Expect(driver.Run()).To(Succeed())

		Expect(unit.HostReadInt32(0x300, 2, 2)).
			To(Equal([][]int32{{3, 9}, {9, 21}}))

		records := driver.Records()
		Expect(records).To(HaveLen(6))
		for i := 1; i < len(records); i++ {
			Expect(records[i].Index).To(Equal(i))
			Expect(records[i].Time).To(BeNumerically(">", records[i-1].Time))
			Expect(records[i].Cycle).To(BeNumerically(">=", records[i-1].Cycle))
		}
		Expect(records[5].Opcode).To(Equal(core.OpDoMatmul))
	})

	It("should run programs in order", func() {
		driver.Enqueue(tileProgram("first", 0x300))
		driver.Enqueue(tileProgram("second", 0x340))

		Expect(driver.Run()).To(Succeed())

		Expect(driver.Records()).To(HaveLen(12))
		Expect(driver.Records()[6].Program).To(Equal("second"))
		Expect(unit.HostReadInt32(0x340, 2, 2)).
			To(Equal(unit.HostReadInt32(0x300, 2, 2)))
		Expect(unit.Accumulator().TilesDone).To(Equal(2))
	})

	It("should stop at the first failing instruction", func() {
		p := tileProgram("bad", 0x300)
		p.Instructions[3] = core.Gmem2Smem(0x00, 9, 4)
		driver.Enqueue(p)
		driver.Enqueue(tileProgram("never", 0x340))

		err := driver.Run()

		Expect(err).To(MatchError(spad.ErrInvalidSlot))
		Expect(err.Error()).To(ContainSubstring("bad: instruction 3"))
		Expect(driver.Records()).To(HaveLen(4))
		Expect(unit.HostReadInt32(0x340, 2, 2)).To(Equal([][]int32{{0, 0}, {0, 0}}))
	})

	It("should need a unit", func() {
		Expect(func() {
			api.DriverBuilder{}.WithEngine(engine).WithFreq(1 * sim.GHz).Build("Driver")
		}).To(Panic())
	})
})
