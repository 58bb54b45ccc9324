// Package quant implements the per-element requantization pipeline that
// turns an int32 accumulator into an 8-bit output:
//
//	biased   = psum + bias
//	relu     = max(0, biased)
//	centered = relu - zeroPoint
//	out      = saturate(centered * M)
//
// M is either a float multiplier, truncated toward zero after the multiply,
// or a fixed-point M0 with a right shift, rounded half up before the shift.
//
// The bias and zero-point steps are int32 arithmetic and wrap on overflow,
// the same as an int32 accumulator register. Only the multiply is widened to
// int64.
package quant

import (
	"math"
)

// Multiplier scales a centered accumulator value.
type Multiplier interface {
	Apply(centered int32) int64
}

// Float is a floating-point multiplier. The product is truncated toward
// zero.
type Float float32

// Apply multiplies and truncates.
func (m Float) Apply(centered int32) int64 {
	return int64(math.Trunc(float64(centered) * float64(m)))
}

// Fixed is a fixed-point multiplier M0 / 2^Shift. A zero shift is a plain
// integer multiply.
type Fixed struct {
	M0    int32
	Shift uint
}

// Apply computes (centered * M0 + 2^(Shift-1)) >> Shift with an arithmetic
// shift.
func (m Fixed) Apply(centered int32) int64 {
	product := int64(centered) * int64(m.M0)
	if m.Shift == 0 {
		return product
	}

	return (product + int64(1)<<(m.Shift-1)) >> m.Shift
}

// FixedFromFloat encodes m with the given shift, rounding to nearest. A Q31
// encoding uses shift 31.
func FixedFromFloat(m float64, shift uint) Fixed {
	scaled := math.Round(m * math.Ldexp(1, int(shift)))
	if scaled > math.MaxInt32 {
		scaled = math.MaxInt32
	}
	if scaled < math.MinInt32 {
		scaled = math.MinInt32
	}

	return Fixed{M0: int32(scaled), Shift: shift}
}

// Params are the per-channel parameters of one output element.
type Params struct {
	Bias       int32
	ZeroPoint  int32
	Multiplier Multiplier
}

// Center applies bias, ReLU and the zero point in wrapping int32 arithmetic.
func Center(psum int32, p Params) int32 {
	biased := psum + p.Bias
	if biased < 0 {
		biased = 0
	}

	return biased - p.ZeroPoint
}

// Requantize runs the pipeline without the final saturation.
func Requantize(psum int32, p Params) int64 {
	return p.Multiplier.Apply(Center(psum, p))
}

// Quantize runs the full pipeline and returns the saturated int8 result.
func Quantize(psum int32, p Params) int8 {
	return SaturateInt8(Requantize(psum, p))
}

// SaturateInt8 clamps v to [-128, 127].
func SaturateInt8(v int64) int8 {
	switch {
	case v > math.MaxInt8:
		return math.MaxInt8
	case v < math.MinInt8:
		return math.MinInt8
	default:
		return int8(v)
	}
}

// SaturateInt32 clamps v to the int32 range.
func SaturateInt32(v int64) int32 {
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	default:
		return int32(v)
	}
}

// ToByte returns the unsigned bus encoding of an int8.
func ToByte(v int8) byte {
	return byte(v)
}

// FromByte decodes the unsigned bus encoding.
func FromByte(b byte) int8 {
	return int8(b)
}

// QuantizerMul is the hardware multiply stage on its own: psum * m0 rounded
// half up, shifted right by shift, saturated, and returned in its bus
// encoding. There is no bias, ReLU or zero point, so negative sums pass
// through.
func QuantizerMul(psum, m0 int32, shift uint) byte {
	return ToByte(SaturateInt8(Fixed{M0: m0, Shift: shift}.Apply(psum)))
}
