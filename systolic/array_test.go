package systolic_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/tpusim/systolic"
	"github.com/sarchlab/tpusim/util"
)

func directMatMul(a, b [][]int8) [][]int32 {
	n := len(a)
	c := make([][]int32, n)
	for i := range c {
		c[i] = make([]int32, n)
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				c[i][j] += int32(a[i][k]) * int32(b[k][j])
			}
		}
	}
	return c
}

var _ = Describe("Array", func() {
	It("should compute the 2x2 product", func() {
		arr := systolic.NewArray(2)
		a := [][]int8{{10, 2}, {3, 4}}
		b := [][]int8{{5, 6}, {7, 8}}

		c, ticks, err := arr.MatMul(a, b)

		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal([][]int32{{64, 76}, {43, 50}}))
		Expect(ticks).To(Equal(4))
		Expect(arr.FeedTicks()).To(Equal(3))
		Expect(arr.DrainTicks()).To(Equal(1))
	})

	It("should produce 19, 22, 43, 50 for the canonical pair", func() {
		arr := systolic.NewArray(2)

		c, _, err := arr.MatMul([][]int8{{1, 2}, {3, 4}}, [][]int8{{5, 6}, {7, 8}})

		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal([][]int32{{19, 22}, {43, 50}}))
	})

	It("should accumulate only when both operands are valid", func() {
		arr := systolic.NewArray(2)
		west := []systolic.Operand{{Value: 3, Valid: true}, {}}
		north := []systolic.Operand{{Value: 5, Valid: true}, {}}

		arr.Tick(west, north)

		Expect(arr.PE(0, 0).PSum).To(Equal(int32(15)))
		Expect(arr.PE(0, 1).PSum).To(Equal(int32(0)))

		arr.Tick(make([]systolic.Operand, 2), make([]systolic.Operand, 2))

		// The input moved east and the weight moved south, but each
		// arrives alone.
		Expect(arr.PE(0, 1).Input).To(Equal(int8(3)))
		Expect(arr.PE(0, 1).InputValid).To(BeTrue())
		Expect(arr.PE(0, 1).WeightValid).To(BeFalse())
		Expect(arr.PE(1, 0).Weight).To(Equal(int8(5)))
		Expect(arr.PE(1, 0).WeightValid).To(BeTrue())
		Expect(arr.PE(0, 1).PSum).To(Equal(int32(0)))
		Expect(arr.PE(1, 0).PSum).To(Equal(int32(0)))
		Expect(arr.PE(0, 0).PSum).To(Equal(int32(15)))
		Expect(arr.Ticks()).To(Equal(uint64(2)))
	})

	It("should hold partial results before the drain completes", func() {
		arr := systolic.NewArray(2)
		west := []systolic.Operand{{Value: 10, Valid: true}, {}}
		north := []systolic.Operand{{Value: 5, Valid: true}, {}}

		arr.Tick(west, north)

		Expect(arr.Results()).To(Equal([][]int32{{50, 0}, {0, 0}}))
	})

	It("should reset between products", func() {
		arr := systolic.NewArray(2)
		a := [][]int8{{1, 1}, {1, 1}}

		_, _, err := arr.MatMul(a, a)
		Expect(err).NotTo(HaveOccurred())
		c, _, err := arr.MatMul(a, a)

		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal([][]int32{{2, 2}, {2, 2}}))
	})

	It("should handle negative operands", func() {
		arr := systolic.NewArray(2)
		a := [][]int8{{-128, 127}, {-1, 0}}
		b := [][]int8{{-128, 1}, {127, -1}}

		c, _, err := arr.MatMul(a, b)

		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(directMatMul(a, b)))
	})

	It("should reject mismatched shapes", func() {
		arr := systolic.NewArray(2)

		_, _, err := arr.MatMul([][]int8{{1, 2}}, [][]int8{{1, 2}, {3, 4}})
		Expect(err).To(MatchError(systolic.ErrShape))

		_, _, err = arr.MatMul([][]int8{{1, 2}, {3, 4}}, [][]int8{{1, 2}, {3}})
		Expect(err).To(MatchError(systolic.ErrShape))
	})

	DescribeTable("should match a direct product",
		func(n int, seed int64) {
			arr := systolic.NewArray(n)
			a := util.FillMatrix(n, n, util.MakeRandomGen(seed, -20, 20))
			b := util.FillMatrix(n, n, util.MakeRandomGen(seed+1, -20, 20))

			c, ticks, err := arr.MatMul(a, b)

			Expect(err).NotTo(HaveOccurred())
			Expect(c).To(Equal(directMatMul(a, b)))
			Expect(ticks).To(Equal(3*n - 2))
		},
		Entry("1x1", 1, int64(1)),
		Entry("3x3", 3, int64(7)),
		Entry("4x4", 4, int64(42)),
		Entry("8x8", 8, int64(2024)),
	)
})
