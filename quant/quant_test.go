package quant_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/tpusim/quant"
)

var _ = Describe("Fixed multiplier", func() {
	const shift = 16

	It("should round half up at the boundary", func() {
		Expect(quant.QuantizerMul(1, 32768, shift)).To(Equal(byte(1)))
		Expect(quant.QuantizerMul(1, 32767, shift)).To(Equal(byte(0)))
	})

	It("should pass 1.0 through", func() {
		one := int32(1 << shift)
		Expect(quant.QuantizerMul(100, one, shift)).To(Equal(byte(100)))
		Expect(quant.FromByte(quant.QuantizerMul(-1, one, shift))).To(Equal(int8(-1)))
	})

	It("should shift negative products arithmetically", func() {
		// -3 * 0.5 = -1.5 rounds half up to -1.
		Expect(quant.FromByte(quant.QuantizerMul(-3, 1<<(shift-1), shift))).
			To(Equal(int8(-1)))
	})

	It("should saturate instead of wrapping", func() {
		one := int32(1 << shift)
		Expect(quant.FromByte(quant.QuantizerMul(128, one, shift))).To(Equal(int8(127)))
		Expect(quant.FromByte(quant.QuantizerMul(1000, one, shift))).To(Equal(int8(127)))
		Expect(quant.FromByte(quant.QuantizerMul(-129, one, shift))).To(Equal(int8(-128)))
		Expect(quant.FromByte(quant.QuantizerMul(-5000, 3*one, shift))).To(Equal(int8(-128)))
	})

	It("should not overflow on wide products", func() {
		v := quant.Fixed{M0: 1 << 30, Shift: 31}.Apply(1 << 30)
		Expect(v).To(Equal(int64(1) << 29))
	})

	It("should treat shift 0 as an integer multiply", func() {
		Expect(quant.Fixed{M0: 2}.Apply(21)).To(Equal(int64(42)))
	})

	It("should encode floats", func() {
		Expect(quant.FixedFromFloat(0.5, 16)).To(Equal(quant.Fixed{M0: 32768, Shift: 16}))
		Expect(quant.FixedFromFloat(0.25, 31).M0).To(Equal(int32(1 << 29)))
	})
})

var _ = Describe("Pipeline", func() {
	It("should apply bias, ReLU and zero point", func() {
		p := quant.Params{Bias: 1, ZeroPoint: -1, Multiplier: quant.Fixed{M0: 2}}
		Expect(quant.Requantize(9, p)).To(Equal(int64(22)))
		Expect(quant.Requantize(-50, p)).To(Equal(int64(2)))
	})

	It("should wrap the bias and zero-point steps like an int32 register", func() {
		Expect(quant.Center(math.MaxInt32, quant.Params{Bias: 1})).To(Equal(int32(0)))
		Expect(quant.Center(0, quant.Params{ZeroPoint: math.MinInt32})).
			To(Equal(int32(math.MinInt32)))
		Expect(quant.Center(math.MaxInt32, quant.Params{ZeroPoint: -1})).
			To(Equal(int32(math.MinInt32)))
	})

	It("should widen the fixed multiply to int64", func() {
		m := quant.Fixed{M0: math.MaxInt32}
		Expect(m.Apply(math.MaxInt32)).To(Equal(int64(math.MaxInt32) * math.MaxInt32))
	})

	It("should saturate the int8 result", func() {
		p := quant.Params{Multiplier: quant.Fixed{M0: 1000}}
		Expect(quant.Quantize(5, p)).To(Equal(int8(127)))

		p = quant.Params{ZeroPoint: 10, Multiplier: quant.Fixed{M0: 100}}
		Expect(quant.Quantize(0, p)).To(Equal(int8(-128)))
	})

	It("should truncate float products toward zero", func() {
		Expect(quant.Float(0.25).Apply(7)).To(Equal(int64(1)))
		Expect(quant.Float(0.25).Apply(-7)).To(Equal(int64(-1)))
	})

	DescribeTable("float and fixed multipliers agree on exact products",
		func(psum, bias, zp int32, m float64) {
			f := quant.Params{Bias: bias, ZeroPoint: zp, Multiplier: quant.Float(m)}
			x := quant.Params{Bias: bias, ZeroPoint: zp,
				Multiplier: quant.FixedFromFloat(m, 16)}

			Expect(quant.Quantize(psum, x)).To(Equal(quant.Quantize(psum, f)))
		},
		Entry("unit", int32(5), int32(0), int32(0), 1.0),
		Entry("half of even", int32(40), int32(2), int32(-2), 0.5),
		Entry("quarter", int32(100), int32(0), int32(4), 0.25),
		Entry("double", int32(30), int32(1), int32(-1), 2.0),
		Entry("saturating", int32(500), int32(0), int32(0), 1.0),
		Entry("relu to zero point", int32(-90), int32(0), int32(16), 0.5),
		Entry("negative centered", int32(0), int32(0), int32(64), 0.125),
	)

	It("should round-trip the bus encoding", func() {
		for v := -128; v <= 127; v++ {
			Expect(quant.FromByte(quant.ToByte(int8(v)))).To(Equal(int8(v)))
		}
		Expect(quant.ToByte(-1)).To(Equal(byte(0xFF)))
	})

	It("should clamp to int32", func() {
		Expect(quant.SaturateInt32(1 << 40)).To(Equal(int32(2147483647)))
		Expect(quant.SaturateInt32(-(1 << 40))).To(Equal(int32(-2147483648)))
	})
})
