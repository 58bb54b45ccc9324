// Command matrixmulti multiplies two 4x4 int8 matrices on a 2x2 array. The
// output tiles are kept on chip, then copied out with smem2gmem.
package main

import (
	"fmt"

	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/tpusim/api"
	"github.com/sarchlab/tpusim/config"
	"github.com/sarchlab/tpusim/core"
	"github.com/sarchlab/tpusim/tensor"
	"github.com/sarchlab/tpusim/util"
	"github.com/tebeka/atexit"
)

const (
	size = 4
	dim  = 2

	actBase  = 0x000
	wtBase   = 0x100
	biasAddr = 0x200
	zpAddr   = 0x210
	qsfAddr  = 0x220
	outBase  = 0x300
	outSlot  = 8
)

func nativeMatrixMultiply(a, b [][]int8) [][]int32 {
	result := tensor.Zeros[int32](size, size)
	for i := range result {
		for j := range result[i] {
			for k := 0; k < size; k++ {
				result[i][j] += int32(a[i][k]) * int32(b[k][j])
			}
		}
	}
	return result
}

func printMatrix[T any](m [][]T) {
	for _, row := range m {
		fmt.Println(row)
	}
}

func tileAddr(base, ti, tj, bytes int) uint64 {
	return uint64(base + (ti*dim+tj)*bytes)
}

func buildProgram(tileBytes int) core.Program {
	p := core.Program{Name: "matrixmulti"}
	p.Append(
		core.LoadBias(biasAddr, 1, 1),
		core.LoadZP(zpAddr, 1, 1),
		core.LoadQSF(qsfAddr, 1, 1),
	)

	for mi := 0; mi < dim; mi++ {
		p.Append(
			core.Gmem2Smem(tileAddr(actBase, mi, 0, tileBytes), 0, tileBytes),
			core.Gmem2Smem(tileAddr(actBase, mi, 1, tileBytes), 1, tileBytes),
		)

		for ni := 0; ni < dim; ni++ {
			out := outSlot + mi*dim + ni
			p.Append(
				core.LoadWeights(tileAddr(wtBase, 0, ni, tileBytes), tileBytes),
				core.Accumulate(0),
				core.LoadWeights(tileAddr(wtBase, 1, ni, tileBytes), tileBytes),
				core.Finish(1, core.ToSlot(out)),
				core.Smem2Gmem(out, tileAddr(outBase, mi, ni, 4*tileBytes), 4*tileBytes),
			)
		}
	}

	return p
}

func main() {
	cfg := config.DefaultConfig()
	cfg.ArraySize = dim
	cfg.NumSlots = 16
	cfg.ActivationBufferSize = 16 * cfg.SlotSize()
	cfg.WeightBufferSize = 4 * cfg.TileBytes()
	cfg.AccumulatorBufferSize = cfg.SlotSize()

	monitor := monitoring.NewMonitor()
	engine := sim.NewSerialEngine()
	monitor.RegisterEngine(engine)

	unit := core.NewBuilder().
		WithConfig(cfg).
		WithMode(core.ModeTimed).
		Build("TPU")

	driver := api.DriverBuilder{}.
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		WithUnit(unit).
		Build("Driver")
	monitor.RegisterComponent(driver)
	monitor.StartServer()

	matrixA := util.FillMatrix(size, size, util.MakeRandomGen(7, -9, 9))
	matrixB := util.FillMatrix(size, size, util.MakeRandomGen(8, -9, 9))

	fmt.Println("Matrix A:")
	printMatrix(matrixA)
	fmt.Println("Matrix B:")
	printMatrix(matrixB)

	tileBytes := cfg.TileBytes()
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			unit.HostStoreInt8(tileAddr(actBase, i, j, tileBytes), tensor.Tile(matrixA, i, j, dim))
			unit.HostStoreInt8(tileAddr(wtBase, i, j, tileBytes), tensor.Tile(matrixB, i, j, dim))
		}
	}

	// Bias and zero point large enough that ReLU never clips.
	unit.HostStoreInt32(biasAddr, [][]int32{{1000}})
	unit.HostStoreInt32(zpAddr, [][]int32{{1000}})
	unit.HostStoreInt32(qsfAddr, [][]int32{{1}})

	driver.Enqueue(buildProgram(tileBytes))
	if err := driver.Run(); err != nil {
		fmt.Println("Run failed:", err)
		atexit.Exit(1)
	}

	result := tensor.Zeros[int32](size, size)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			tile := unit.HostReadInt32(tileAddr(outBase, i, j, 4*tileBytes), dim, dim)
			tensor.Place(result, tile, i, j)
		}
	}

	expected := nativeMatrixMultiply(matrixA, matrixB)

	fmt.Println("Result:")
	printMatrix(result)
	fmt.Println("Expected Result:")
	printMatrix(expected)

	mismatch := 0
	for i := range expected {
		for j := range expected[i] {
			if result[i][j] != expected[i][j] {
				mismatch++
			}
		}
	}

	stats := unit.Stats()
	fmt.Printf("Cycles: %d total, %d compute, %d stall\n",
		stats.TotalCycles, stats.ComputeCycles, stats.StallCycles)

	if mismatch != 0 {
		fmt.Printf("Mismatches: %d\n", mismatch)
		atexit.Exit(1)
	}

	fmt.Println("Result matches")
	atexit.Exit(0)
}
