package verify

import (
	"github.com/sarchlab/tpusim/config"
	"github.com/sarchlab/tpusim/core"
)

// TilingOptions tune the generated instruction stream.
type TilingOptions struct {
	// ExplicitTiles wraps every output tile in begin_tile / end_tile.
	ExplicitTiles bool
}

// TiledMatmul emits the instruction stream for the layout in am. When the K
// tiles of one activation row fit in the slot table they are loaded once
// and reused for every n tile; otherwise each K step reloads its tile into
// one of two alternating slots.
func TiledMatmul(am AddressMap, cfg config.Config, opts TilingOptions) core.Program {
	p := core.Program{Name: "tiled-matmul"}
	reuse := am.KT <= cfg.NumSlots

	loadQSF := core.LoadQSF
	if am.FloatQSF {
		loadQSF = core.LoadQSFF32
	}

	for mi := 0; mi < am.MT; mi++ {
		if reuse {
			for ki := 0; ki < am.KT; ki++ {
				p.Append(core.Gmem2Smem(am.ActTile(mi, ki), ki, am.TileBytes))
			}
		}

		for ni := 0; ni < am.NT; ni++ {
			p.Append(
				core.LoadBias(am.Vector(am.Bias, ni), 1, am.N),
				core.LoadZP(am.Vector(am.ZP, ni), 1, am.N),
				loadQSF(am.Vector(am.QSF, ni), 1, am.N),
			)

			if opts.ExplicitTiles {
				p.Append(core.BeginTile())
			}

			for ki := 0; ki < am.KT; ki++ {
				slot := ki
				if !reuse {
					slot = ki % min(2, cfg.NumSlots)
					p.Append(core.Gmem2Smem(am.ActTile(mi, ki), slot, am.TileBytes))
				}

				p.Append(core.LoadWeights(am.WtTile(ki, ni), am.TileBytes))

				if ki < am.KT-1 {
					p.Append(core.Accumulate(slot))
				} else {
					p.Append(core.Finish(slot, core.ToAddr(am.OutTile(mi, ni))))
				}
			}

			if opts.ExplicitTiles {
				p.Append(core.EndTile())
			}
		}
	}

	return p
}
