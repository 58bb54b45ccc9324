package spad_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/tpusim/spad"
)

var _ = Describe("Arena", func() {
	var (
		sram  *spad.SingleBuffer
		arena *spad.Arena
	)

	BeforeEach(func() {
		sram = spad.NewSingleBuffer("SRAM", 64)
		arena = spad.NewArena(sram, 4, 16)
	})

	It("should map slots to fixed offsets", func() {
		Expect(arena.Write(2, []byte{7, 7})).To(Succeed())
		raw, _ := sram.Read(32, 2)
		Expect(raw).To(Equal([]byte{7, 7}))

		data, err := arena.Read(2, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte{7, 7}))
	})

	It("should reject slots outside the table", func() {
		_, err := arena.Read(4, 1)
		Expect(err).To(MatchError(spad.ErrInvalidSlot))
		Expect(arena.Write(-1, []byte{1})).To(MatchError(spad.ErrInvalidSlot))
	})

	It("should reject sizes larger than a slot", func() {
		_, err := arena.Read(0, 17)
		Expect(err).To(MatchError(spad.ErrOutOfRange))
	})

	It("should work on top of a double buffer", func() {
		db := spad.NewDoubleBuffer("ActivationBuffer", 64)
		a := spad.NewArena(db, 4, 16)
		Expect(a.Write(1, []byte{3})).To(Succeed())
		Expect(db.Switch()).To(Succeed())
		data, _ := a.Read(1, 1)
		Expect(data).To(Equal([]byte{0}))
	})
})
