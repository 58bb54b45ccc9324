package core

import (
	"fmt"

	"github.com/sarchlab/tpusim/quant"
)

// channelVector is a staged per-channel register. A vector of shape
// [rows, cols] broadcasts over an N x N tile when each dimension is 1 or N.
type channelVector struct {
	rows, cols int
	ints       []int32
	floats     []float32
}

func (v *channelVector) loaded() bool {
	return v != nil && v.rows > 0 && v.cols > 0
}

func (v *channelVector) check(name string, n int) error {
	if !v.loaded() {
		return fmt.Errorf("%s: %w", name, ErrParamNotLoaded)
	}

	if (v.rows != 1 && v.rows != n) || (v.cols != 1 && v.cols != n) {
		return fmt.Errorf("%s: %w: [%d %d] does not broadcast to [%d %d]",
			name, ErrShapeMismatch, v.rows, v.cols, n, n)
	}

	return nil
}

func (v *channelVector) index(i, j int) int {
	if v.rows == 1 {
		i = 0
	}
	if v.cols == 1 {
		j = 0
	}

	return i*v.cols + j
}

func (v *channelVector) intAt(i, j int) int32 {
	return v.ints[v.index(i, j)]
}

func (v *channelVector) multiplier(i, j int, shift uint) quant.Multiplier {
	idx := v.index(i, j)
	if v.floats != nil {
		return quant.Float(v.floats[idx])
	}

	return quant.Fixed{M0: v.ints[idx], Shift: shift}
}

// Params is a snapshot of the staged per-channel registers.
type Params struct {
	BiasShape, ZPShape, QSFShape [2]int
	FloatQSF                     bool
}

func shapeOf(v *channelVector) [2]int {
	if v == nil {
		return [2]int{}
	}

	return [2]int{v.rows, v.cols}
}

// parseShape rejects shapes with a dimension outside [1, n]. Such a vector
// can never broadcast over an n x n tile.
func parseShape(shape []int, n int) (int, int, error) {
	if len(shape) != 2 ||
		shape[0] <= 0 || shape[1] <= 0 ||
		shape[0] > n || shape[1] > n {
		return 0, 0, fmt.Errorf("%w: shape %v", ErrShapeMismatch, shape)
	}

	return shape[0], shape[1], nil
}
