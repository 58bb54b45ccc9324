package verify

import (
	"fmt"

	"github.com/sarchlab/tpusim/config"
	"github.com/sarchlab/tpusim/core"
	"github.com/sarchlab/tpusim/tensor"
)

const regionAlign = 64

// AddressMap places the operands of a tiled problem in off-chip memory.
// Activation tiles are stored row-major by (m tile, k tile), weight tiles
// by (k tile, n tile) and output tiles by (m tile, n tile).
type AddressMap struct {
	Act, Wt, Bias, ZP, QSF, Out uint64

	TileBytes, OutBytes int
	MT, KT, NT          int
	N                   int

	// FloatQSF selects load_qsf_f32 for the multiplier vector.
	FloatQSF bool
}

func align(v uint64) uint64 {
	return (v + regionAlign - 1) / regionAlign * regionAlign
}

// Layout packs the regions back to back from address 0.
func Layout(p Problem, cfg config.Config) (AddressMap, error) {
	m, k, n, err := p.Dims()
	if err != nil {
		return AddressMap{}, err
	}

	dim := cfg.ArraySize
	am := AddressMap{
		TileBytes: cfg.TileBytes(),
		OutBytes:  4 * cfg.TileBytes(),
		MT:        ceilDiv(m, dim),
		KT:        ceilDiv(k, dim),
		NT:        ceilDiv(n, dim),
		N:         dim,
		FloatQSF:  p.QSFFloat != nil,
	}
	if cfg.OutputFormat == config.OutputInt8 {
		am.OutBytes = cfg.TileBytes()
	}

	vec := uint64(am.NT * dim * 4)
	am.Act = 0
	am.Wt = align(am.Act + uint64(am.MT*am.KT*am.TileBytes))
	am.Bias = align(am.Wt + uint64(am.KT*am.NT*am.TileBytes))
	am.ZP = align(am.Bias + vec)
	am.QSF = align(am.ZP + vec)
	am.Out = align(am.QSF + vec)

	end := am.Out + uint64(am.MT*am.NT*am.OutBytes)
	if end > cfg.OffChipSize {
		return AddressMap{}, fmt.Errorf("problem needs %d bytes of off-chip memory, have %d",
			end, cfg.OffChipSize)
	}

	return am, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// ActTile returns the address of activation tile (mi, ki).
func (am AddressMap) ActTile(mi, ki int) uint64 {
	return am.Act + uint64((mi*am.KT+ki)*am.TileBytes)
}

// WtTile returns the address of weight tile (ki, ni).
func (am AddressMap) WtTile(ki, ni int) uint64 {
	return am.Wt + uint64((ki*am.NT+ni)*am.TileBytes)
}

// Vector returns the address of the per-channel slice for n tile ni.
func (am AddressMap) Vector(base uint64, ni int) uint64 {
	return base + uint64(ni*am.N*4)
}

// OutTile returns the address of output tile (mi, ni).
func (am AddressMap) OutTile(mi, ni int) uint64 {
	return am.Out + uint64((mi*am.NT+ni)*am.OutBytes)
}

// Preload writes the tiled operands and padded per-channel vectors through
// the host interface.
func Preload(u *core.Unit, p Problem, am AddressMap) {
	for mi := 0; mi < am.MT; mi++ {
		for ki := 0; ki < am.KT; ki++ {
			u.HostStoreInt8(am.ActTile(mi, ki), tensor.Tile(p.A, mi, ki, am.N))
		}
	}

	for ki := 0; ki < am.KT; ki++ {
		for ni := 0; ni < am.NT; ni++ {
			u.HostStoreInt8(am.WtTile(ki, ni), tensor.Tile(p.W, ki, ni, am.N))
		}
	}

	cols := am.NT * am.N
	u.HostStore(am.Bias, tensor.Int32VectorBytes(pad(p.Bias, cols)))
	u.HostStore(am.ZP, tensor.Int32VectorBytes(pad(p.ZeroPoint, cols)))

	if am.FloatQSF {
		f := make([]float32, cols)
		copy(f, p.QSFFloat)
		u.HostStoreFloat32(am.QSF, f)
	} else {
		u.HostStore(am.QSF, tensor.Int32VectorBytes(pad(p.QSF, cols)))
	}
}

func pad(v []int32, n int) []int32 {
	out := make([]int32, n)
	copy(out, v)

	return out
}

// ReadOutput gathers the output tiles and drops the padding.
func ReadOutput(u *core.Unit, am AddressMap, m, n int) [][]int32 {
	out := tensor.Zeros[int32](m, n)

	for mi := 0; mi < am.MT; mi++ {
		for ni := 0; ni < am.NT; ni++ {
			var tile [][]int32
			if am.OutBytes == am.TileBytes {
				tile = widen(u.HostReadInt8(am.OutTile(mi, ni), am.N, am.N))
			} else {
				tile = u.HostReadInt32(am.OutTile(mi, ni), am.N, am.N)
			}

			tensor.Place(out, tile, mi, ni)
		}
	}

	return out
}

func widen(m [][]int8) [][]int32 {
	out := tensor.Zeros[int32](len(m), len(m[0]))
	for i := range m {
		for j := range m[i] {
			out[i][j] = int32(m[i][j])
		}
	}

	return out
}
