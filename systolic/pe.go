package systolic

// Operand is a value travelling through the array together with its valid
// flag.
type Operand struct {
	Value int8
	Valid bool
}

// PE is one multiply-accumulate cell. The partial sum stays in place while
// the weight moves south and the input moves east.
type PE struct {
	Weight      int8
	Input       int8
	PSum        int32
	WeightValid bool
	InputValid  bool
}

// latch captures the operands arriving this tick and accumulates when both
// are valid. The registers are forwarded to the neighbours on the next tick
// whether or not an accumulation happened.
func (pe *PE) latch(in, w Operand) {
	pe.Input, pe.InputValid = in.Value, in.Valid
	pe.Weight, pe.WeightValid = w.Value, w.Valid

	if pe.InputValid && pe.WeightValid {
		pe.PSum += int32(pe.Input) * int32(pe.Weight)
	}
}

func (pe *PE) east() Operand {
	return Operand{Value: pe.Input, Valid: pe.InputValid}
}

func (pe *PE) south() Operand {
	return Operand{Value: pe.Weight, Valid: pe.WeightValid}
}

func (pe *PE) reset() {
	*pe = PE{}
}
