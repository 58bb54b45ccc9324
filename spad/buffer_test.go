package spad_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/tpusim/spad"
)

var _ = Describe("DoubleBuffer", func() {
	var b *spad.DoubleBuffer

	BeforeEach(func() {
		b = spad.NewDoubleBuffer("WeightBuffer", 64)
	})

	It("should read and write the active side", func() {
		Expect(b.Write(4, []byte{1, 2, 3})).To(Succeed())
		data, err := b.Read(4, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte{1, 2, 3}))
	})

	It("should reject accesses past the end", func() {
		Expect(b.Write(62, []byte{1, 2, 3})).To(MatchError(spad.ErrOutOfRange))
		_, err := b.Read(-1, 2)
		Expect(err).To(MatchError(spad.ErrOutOfRange))
	})

	It("should land a DMA in the loading side after the given cycles", func() {
		Expect(b.StartDMA([]byte{9, 8}, 0, 3)).To(Succeed())
		Expect(b.DMARunning()).To(BeTrue())
		Expect(b.DMACyclesRemaining()).To(Equal(3))

		Expect(b.Tick()).To(BeFalse())
		Expect(b.Tick()).To(BeFalse())
		Expect(b.Tick()).To(BeTrue())
		Expect(b.DMARunning()).To(BeFalse())
		Expect(b.DMACyclesRemaining()).To(Equal(0))

		active, _ := b.Read(0, 2)
		Expect(active).To(Equal([]byte{0, 0}))

		Expect(b.Switch()).To(Succeed())
		active, _ = b.Read(0, 2)
		Expect(active).To(Equal([]byte{9, 8}))
	})

	It("should not tick without a DMA", func() {
		Expect(b.Tick()).To(BeFalse())
	})

	It("should reject a second DMA without touching the first", func() {
		Expect(b.StartDMA([]byte{1, 1}, 0, 2)).To(Succeed())
		b.Tick()

		err := b.StartDMA([]byte{2, 2}, 8, 10)
		Expect(err).To(MatchError(spad.ErrBufferBusy))
		Expect(b.DMACyclesRemaining()).To(Equal(1))

		Expect(b.Tick()).To(BeTrue())
		Expect(b.Switch()).To(Succeed())
		data, _ := b.Read(0, 2)
		Expect(data).To(Equal([]byte{1, 1}))
		data, _ = b.Read(8, 2)
		Expect(data).To(Equal([]byte{0, 0}))
	})

	It("should reject a switch while a DMA is in flight", func() {
		Expect(b.StartDMA([]byte{5}, 0, 4)).To(Succeed())
		Expect(b.CanSwitch()).To(BeFalse())

		err := b.Switch()
		Expect(err).To(MatchError(spad.ErrSwitchWhileBusy))
		Expect(b.Active()).To(Equal(0))
		Expect(b.Loading()).To(Equal(1))
		Expect(b.DMARunning()).To(BeTrue())
	})

	It("should swap sides on switch", func() {
		Expect(b.Switch()).To(Succeed())
		Expect(b.Active()).To(Equal(1))
		Expect(b.Loading()).To(Equal(0))
	})

	It("should not alias the caller's DMA payload", func() {
		payload := []byte{1, 2}
		Expect(b.StartDMA(payload, 0, 1)).To(Succeed())
		payload[0] = 99
		b.Tick()
		Expect(b.Switch()).To(Succeed())
		data, _ := b.Read(0, 2)
		Expect(data).To(Equal([]byte{1, 2}))
	})

	It("should reject a DMA that does not fit", func() {
		Expect(b.StartDMA(make([]byte, 8), 60, 1)).To(MatchError(spad.ErrOutOfRange))
		Expect(b.DMARunning()).To(BeFalse())
	})
})

var _ = Describe("SingleBuffer", func() {
	It("should read, write and clear", func() {
		b := spad.NewSingleBuffer("Accumulator", 16)
		Expect(b.Write(0, []byte{1, 2, 3, 4})).To(Succeed())
		data, err := b.Read(0, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte{1, 2, 3, 4}))

		b.Clear()
		data, _ = b.Read(0, 4)
		Expect(data).To(Equal([]byte{0, 0, 0, 0}))
		Expect(b.Write(15, []byte{1, 2})).To(MatchError(spad.ErrOutOfRange))
	})
})
