// Package verify checks the accelerator model against a direct integer
// computation.
//
// Verification runs in two stages, the same way for hand-written and
// generated instruction streams:
//
// 1. Static lint (lint.go): structural checks on every instruction and a
// dry run of the sequencing state (weight FIFO depth, staged parameters,
// open reductions). The control unit itself treats sequencing as the
// caller's responsibility, so this is where such mistakes surface.
//
// 2. Simulation (Check): the program runs on a core.Unit and the output
// tiles are compared element by element with Reference.
//
// # Tiling
//
// TiledMatmul lays an M x K by K x N problem out in off-chip memory as
// N-by-N tiles (zero padded at the edges) and emits, for every output tile,
// one do_matmul per K tile. All but the last carry the feedback flag; the
// last stores the requantized tile off-chip.
//
// # Usage Example
//
//	p := verify.Problem{A: a, W: w, Bias: bias, ZeroPoint: zp, QSF: qsf}
//	res, err := verify.Check(p, cfg, core.ModeTimed)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !res.OK() {
//	    res.Report().WriteReport(os.Stdout)
//	}
package verify

import (
	"fmt"

	"github.com/sarchlab/tpusim/config"
	"github.com/sarchlab/tpusim/quant"
	"github.com/sarchlab/tpusim/tensor"
)

// Problem is one quantized layer, out = requant(A x W + Bias). The
// per-channel vectors have one entry per output column. When QSFFloat is
// set it replaces QSF.
type Problem struct {
	A         [][]int8
	W         [][]int8
	Bias      []int32
	ZeroPoint []int32
	QSF       []int32
	QSFFloat  []float32
}

// Dims returns M, K and N.
func (p Problem) Dims() (int, int, int, error) {
	m, k, err := tensor.Shape(p.A)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("activations: %w", err)
	}

	k2, n, err := tensor.Shape(p.W)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("weights: %w", err)
	}

	if k != k2 {
		return 0, 0, 0, fmt.Errorf("inner dimensions differ: %d vs %d", k, k2)
	}

	if m == 0 || k == 0 || n == 0 {
		return 0, 0, 0, fmt.Errorf("empty problem %dx%dx%d", m, k, n)
	}

	if len(p.Bias) != n || len(p.ZeroPoint) != n {
		return 0, 0, 0, fmt.Errorf("bias and zero point need %d entries", n)
	}

	if p.QSFFloat != nil {
		if len(p.QSFFloat) != n {
			return 0, 0, 0, fmt.Errorf("float multiplier needs %d entries", n)
		}
	} else if len(p.QSF) != n {
		return 0, 0, 0, fmt.Errorf("multiplier needs %d entries", n)
	}

	return m, k, n, nil
}

func (p Problem) params(j int, shift uint) quant.Params {
	var mul quant.Multiplier = quant.Fixed{M0: p.QSF[j], Shift: shift}
	if p.QSFFloat != nil {
		mul = quant.Float(p.QSFFloat[j])
	}

	return quant.Params{
		Bias:       p.Bias[j],
		ZeroPoint:  p.ZeroPoint[j],
		Multiplier: mul,
	}
}

// Reference computes the expected output directly, without tiling. Values
// are widened to int32 whatever the output format.
func Reference(p Problem, cfg config.Config) ([][]int32, error) {
	m, k, n, err := p.Dims()
	if err != nil {
		return nil, err
	}

	out := tensor.Zeros[int32](m, n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var psum int32
			for x := 0; x < k; x++ {
				psum += int32(p.A[i][x]) * int32(p.W[x][j])
			}

			v := quant.Requantize(psum, p.params(j, cfg.QuantShift))
			if cfg.OutputFormat == config.OutputInt8 {
				out[i][j] = int32(quant.SaturateInt8(v))
			} else {
				out[i][j] = quant.SaturateInt32(v)
			}
		}
	}

	return out, nil
}
