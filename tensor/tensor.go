// Package tensor converts matrices to and from the little-endian byte blobs
// that the host preloads into off-chip memory.
package tensor

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Int8Bytes returns the row-major encoding of m, one byte per element.
func Int8Bytes(m [][]int8) []byte {
	out := make([]byte, 0, elems(len(m), m))
	for _, row := range m {
		for _, v := range row {
			out = append(out, byte(v))
		}
	}

	return out
}

// Int8Matrix decodes a rows x cols int8 matrix. Missing bytes read as zero.
func Int8Matrix(data []byte, rows, cols int) [][]int8 {
	m := make([][]int8, rows)
	for i := range m {
		m[i] = make([]int8, cols)
		for j := range m[i] {
			idx := i*cols + j
			if idx < len(data) {
				m[i][j] = int8(data[idx])
			}
		}
	}

	return m
}

// Int32Bytes returns the row-major little-endian encoding of m.
func Int32Bytes(m [][]int32) []byte {
	out := make([]byte, 0, 4*elems(len(m), m))
	for _, row := range m {
		for _, v := range row {
			out = binary.LittleEndian.AppendUint32(out, uint32(v))
		}
	}

	return out
}

// Int32Matrix decodes a rows x cols int32 matrix. Missing words read as zero.
func Int32Matrix(data []byte, rows, cols int) [][]int32 {
	m := make([][]int32, rows)
	for i := range m {
		m[i] = make([]int32, cols)
		for j := range m[i] {
			off := 4 * (i*cols + j)
			if off+4 <= len(data) {
				m[i][j] = int32(binary.LittleEndian.Uint32(data[off:]))
			}
		}
	}

	return m
}

// Int32VectorBytes encodes a flat int32 vector.
func Int32VectorBytes(v []int32) []byte {
	return Int32Bytes([][]int32{v})
}

// Int32Vector decodes n int32 values.
func Int32Vector(data []byte, n int) []int32 {
	return Int32Matrix(data, 1, n)[0]
}

// Float32VectorBytes encodes a flat float32 vector.
func Float32VectorBytes(v []float32) []byte {
	out := make([]byte, 0, 4*len(v))
	for _, f := range v {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}

	return out
}

// Float32Vector decodes n float32 values.
func Float32Vector(data []byte, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		off := 4 * i
		if off+4 <= len(data) {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		}
	}

	return out
}

// Tile cuts the n x n block at tile coordinates (ti, tj) out of m. Elements
// outside m are zero.
func Tile(m [][]int8, ti, tj, n int) [][]int8 {
	t := make([][]int8, n)
	for i := range t {
		t[i] = make([]int8, n)
		r := ti*n + i
		if r >= len(m) {
			continue
		}
		for j := range t[i] {
			c := tj*n + j
			if c < len(m[r]) {
				t[i][j] = m[r][c]
			}
		}
	}

	return t
}

// Place copies the n x n tile into dst at tile coordinates (ti, tj),
// dropping elements that fall outside dst.
func Place[T any](dst [][]T, tile [][]T, ti, tj int) {
	n := len(tile)
	for i := 0; i < n; i++ {
		r := ti*n + i
		if r >= len(dst) {
			return
		}
		for j := 0; j < len(tile[i]); j++ {
			c := tj*n + j
			if c < len(dst[r]) {
				dst[r][c] = tile[i][j]
			}
		}
	}
}

// Zeros allocates a rows x cols matrix.
func Zeros[T any](rows, cols int) [][]T {
	m := make([][]T, rows)
	for i := range m {
		m[i] = make([]T, cols)
	}

	return m
}

// Shape reports the dimensions of a rectangular matrix.
func Shape[T any](m [][]T) (int, int, error) {
	if len(m) == 0 {
		return 0, 0, nil
	}

	cols := len(m[0])
	for i, row := range m {
		if len(row) != cols {
			return 0, 0, fmt.Errorf("row %d has %d columns, want %d", i, len(row), cols)
		}
	}

	return len(m), cols, nil
}

func elems[T any](rows int, m [][]T) int {
	if rows == 0 {
		return 0
	}

	return rows * len(m[0])
}
