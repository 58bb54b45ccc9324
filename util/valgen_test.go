package util_test

import (
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/tpusim/util"
)

var _ = Describe("ValGen", func() {
	It("should return a constant", func() {
		gen := util.MakeConstGen(7)
		Expect(gen()).To(Equal(int8(7)))
		Expect(gen()).To(Equal(int8(7)))
	})

	It("should count up and wrap", func() {
		gen := util.MakeIncreasingGen(2, 1, 3)
		got := []int8{gen(), gen(), gen(), gen()}
		Expect(got).To(Equal([]int8{2, 3, 1, 2}))
	})

	It("should be reproducible for a seed", func() {
		a := util.FillMatrix(3, 4, util.MakeRandomGen(42, -4, 4))
		b := util.FillMatrix(3, 4, util.MakeRandomGen(42, -4, 4))
		Expect(a).To(Equal(b))
		for _, row := range a {
			for _, v := range row {
				Expect(v).To(BeNumerically(">=", -4))
				Expect(v).To(BeNumerically("<=", 4))
			}
		}
	})

	It("should parse log levels", func() {
		Expect(util.ParseLevel("trace")).To(Equal(util.LevelTrace))
		Expect(util.ParseLevel("debug")).To(Equal(slog.LevelDebug))
		Expect(util.ParseLevel("bogus")).To(Equal(slog.LevelInfo))
	})
})
