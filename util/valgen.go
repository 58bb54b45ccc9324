// Package util holds small helpers shared by the simulator packages.
package util

import "math/rand"

// ValGen produces one operand value per call.
type ValGen func() int8

// MakeConstGen always returns the same value.
func MakeConstGen(constant int8) ValGen {
	return func() int8 {
		return constant
	}
}

// MakeIncreasingGen counts up from start, wrapping within [lo, hi].
func MakeIncreasingGen(start, lo, hi int8) ValGen {
	current := start
	return func() int8 {
		v := current
		if current >= hi {
			current = lo
		} else {
			current++
		}
		return v
	}
}

// MakeRandomGen draws uniformly from [lo, hi] with a fixed seed so runs are
// reproducible.
func MakeRandomGen(seed int64, lo, hi int8) ValGen {
	r := rand.New(rand.NewSource(seed))
	span := int(hi) - int(lo) + 1
	return func() int8 {
		return int8(int(lo) + r.Intn(span))
	}
}

// FillMatrix builds a rows x cols matrix from gen, row-major.
func FillMatrix(rows, cols int, gen ValGen) [][]int8 {
	m := make([][]int8, rows)
	for i := range m {
		m[i] = make([]int8, cols)
		for j := range m[i] {
			m[i][j] = gen()
		}
	}
	return m
}
