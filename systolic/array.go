// Package systolic models an NxN grid of processing elements computing a
// tile product by wavefront propagation.
package systolic

import (
	"errors"
	"fmt"

	"github.com/sarchlab/tpusim/util"
)

// ErrShape is returned when operands do not match the array dimension.
var ErrShape = errors.New("operand shape does not match array")

// Array is an output-stationary systolic array. Row i of the left operand
// enters PE(i,0) from the west and column j of the right operand enters
// PE(0,j) from the north. The boundary delays row i and column j by i and j
// ticks so that A[i][k] and B[k][j] meet in PE(i,j) on the same tick.
type Array struct {
	n     int
	pes   [][]PE
	ticks uint64
}

// NewArray creates an n x n array with cleared registers.
func NewArray(n int) *Array {
	if n <= 0 {
		panic("array dimension must be positive")
	}

	pes := make([][]PE, n)
	for i := range pes {
		pes[i] = make([]PE, n)
	}

	return &Array{n: n, pes: pes}
}

// Size returns the array dimension.
func (a *Array) Size() int {
	return a.n
}

// PE returns a copy of the registers of PE(i,j).
func (a *Array) PE(i, j int) PE {
	return a.pes[i][j]
}

// Ticks returns the number of ticks run since creation.
func (a *Array) Ticks() uint64 {
	return a.ticks
}

// FeedTicks is the number of ticks the skewed boundary needs to inject N
// columns of the left operand and N rows of the right operand.
func (a *Array) FeedTicks() int {
	return 2*a.n - 1
}

// DrainTicks is the number of ticks with no valid input needed after the
// feed for the last operand pair to reach PE(N-1,N-1).
func (a *Array) DrainTicks() int {
	return a.n - 1
}

// TileTicks is the full cost of one tile product.
func (a *Array) TileTicks() int {
	return a.FeedTicks() + a.DrainTicks()
}

// Reset clears every register.
func (a *Array) Reset() {
	for i := range a.pes {
		for j := range a.pes[i] {
			a.pes[i][j].reset()
		}
	}
}

// Tick advances the array by one step. west[i] enters PE(i,0) and north[j]
// enters PE(0,j). Every other PE takes the value its neighbour held before
// this tick, so PEs are updated from the bottom-right corner backwards.
func (a *Array) Tick(west, north []Operand) {
	for i := a.n - 1; i >= 0; i-- {
		for j := a.n - 1; j >= 0; j-- {
			var in, w Operand

			if j == 0 {
				in = west[i]
			} else {
				in = a.pes[i][j-1].east()
			}

			if i == 0 {
				w = north[j]
			} else {
				w = a.pes[i-1][j].south()
			}

			a.pes[i][j].latch(in, w)
		}
	}

	a.ticks++
}

// Results returns the partial sums held by the PEs.
func (a *Array) Results() [][]int32 {
	out := make([][]int32, a.n)
	for i := range out {
		out[i] = make([]int32, a.n)
		for j := range out[i] {
			out[i][j] = a.pes[i][j].PSum
		}
	}

	return out
}

// MatMul resets the array, streams lhs (N x N) and rhs (N x N) through it and
// returns lhs x rhs together with the number of ticks it took.
func (a *Array) MatMul(lhs, rhs [][]int8) ([][]int32, int, error) {
	if err := a.checkShape(lhs); err != nil {
		return nil, 0, fmt.Errorf("left operand: %w", err)
	}
	if err := a.checkShape(rhs); err != nil {
		return nil, 0, fmt.Errorf("right operand: %w", err)
	}

	a.Reset()

	west := make([]Operand, a.n)
	north := make([]Operand, a.n)
	total := a.TileTicks()

	for t := 0; t < total; t++ {
		for i := 0; i < a.n; i++ {
			west[i] = skewed(lhs, i, t-i, true)
			north[i] = skewed(rhs, t-i, i, false)
		}

		a.Tick(west, north)
	}

	util.Trace("Systolic",
		"Behavior", "TileDone",
		"Size", a.n,
		"Ticks", total,
	)

	return a.Results(), total, nil
}

// skewed returns m[r][c] as a valid operand, or an invalid one when the
// stream index falls outside the operand.
func skewed(m [][]int8, r, c int, byRow bool) Operand {
	k := c
	if !byRow {
		k = r
	}
	if k < 0 || k >= len(m) {
		return Operand{}
	}

	return Operand{Value: m[r][c], Valid: true}
}

func (a *Array) checkShape(m [][]int8) error {
	if len(m) != a.n {
		return fmt.Errorf("%w: %d rows, want %d", ErrShape, len(m), a.n)
	}
	for i, row := range m {
		if len(row) != a.n {
			return fmt.Errorf("%w: row %d has %d columns, want %d",
				ErrShape, i, len(row), a.n)
		}
	}

	return nil
}
