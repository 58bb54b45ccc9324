package memory_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/tpusim/memory"
)

var _ = Describe("Space", func() {
	var s *memory.Space

	BeforeEach(func() {
		s = memory.NewSpace("DRAM", 4096)
	})

	It("should read zeros from untouched memory", func() {
		Expect(s.Read(100, 4)).To(Equal([]byte{0, 0, 0, 0}))
	})

	It("should read back written bytes", func() {
		s.Write(10, []byte{1, 2, 3})
		Expect(s.Read(9, 5)).To(Equal([]byte{0, 1, 2, 3, 0}))
	})

	It("should zero-fill reads past the end", func() {
		s.Write(4094, []byte{7, 8})
		Expect(s.Read(4094, 4)).To(Equal([]byte{7, 8, 0, 0}))
		Expect(s.Read(5000, 3)).To(Equal([]byte{0, 0, 0}))
	})

	It("should truncate writes past the end", func() {
		s.Write(4095, []byte{9, 9, 9})
		Expect(s.Read(4095, 1)).To(Equal([]byte{9}))
		s.Write(8000, []byte{1})
		Expect(s.Read(0, 1)).To(Equal([]byte{0}))
	})

	Context("word transactions", func() {
		It("should keep unselected lanes across complementary writes", func() {
			s.WriteWord(0x40, 0x00000000, 0xF)
			s.WriteWord(0x40, 0x000000AA, 0x1)
			s.WriteWord(0x40, 0x0000BB00, 0x2)

			Expect(s.ReadWord(0x40)).To(Equal(uint32(0x0000BBAA)))
		})

		It("should not bleed into neighbouring bytes", func() {
			s.Write(0x3C, []byte{0x11, 0x22, 0x33, 0x44})
			s.Write(0x44, []byte{0x55})

			s.WriteWord(0x40, 0xDDCCBBAA, 0x5)

			Expect(s.Read(0x3C, 9)).To(Equal([]byte{
				0x11, 0x22, 0x33, 0x44,
				0xAA, 0x00, 0xCC, 0x00,
				0x55,
			}))
		})

		It("should treat an empty mask as a no-op", func() {
			s.WriteWord(0, 0x01020304, 0xF)
			s.WriteWord(0, 0xFFFFFFFF, 0x0)
			Expect(s.ReadWord(0)).To(Equal(uint32(0x01020304)))
		})

		It("should not require alignment", func() {
			s.WriteWord(0x13, 0x44332211, 0xF)
			Expect(s.Read(0x13, 4)).To(Equal([]byte{0x11, 0x22, 0x33, 0x44}))
		})

		It("should move blocks through the bus path", func() {
			data := []byte{1, 2, 3, 4, 5, 6}
			s.Write(0x106, []byte{0xEE, 0xEE})
			s.WriteBytes(0x100, data)

			Expect(s.ReadBytes(0x100, 8)).To(Equal([]byte{1, 2, 3, 4, 5, 6, 0xEE, 0xEE}))
		})

		It("should return the updated word from a write transaction", func() {
			got := s.Do(memory.Txn{Addr: 8, Data: 0x000000FF, Sel: 0x1, Write: true})
			Expect(got).To(Equal(uint32(0xFF)))
		})
	})
})
