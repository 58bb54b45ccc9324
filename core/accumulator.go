package core

// AccState is the state of the running partial-sum register.
type AccState int

const (
	// AccIdle means the register is zero and no reduction has started.
	AccIdle AccState = iota
	// AccAccumulating means at least one feedback step has been folded in
	// and the tile has not been finished.
	AccAccumulating
)

func (s AccState) String() string {
	switch s {
	case AccIdle:
		return "Idle"
	case AccAccumulating:
		return "Accumulating"
	default:
		return "Unknown"
	}
}

// AccumulatorSnapshot is a copy of the partial-sum register and its
// bookkeeping. Tests use it to assert reduction sequencing, which the unit
// itself does not enforce.
type AccumulatorSnapshot struct {
	State AccState
	// Steps counts the tile products folded into the current sum.
	Steps int
	// LastSteps counts the tile products that made up the most recently
	// finished tile.
	LastSteps int
	// Explicit is set between begin_tile and the end of the tile.
	Explicit bool
	// TilesDone counts finished output tiles.
	TilesDone int
	Values    [][]int32
}

type accumulator struct {
	n         int
	state     AccState
	steps     int
	lastSteps int
	explicit  bool
	tilesDone int
	sum       [][]int32
}

func newAccumulator(n int) *accumulator {
	a := &accumulator{n: n}
	a.sum = make([][]int32, n)
	for i := range a.sum {
		a.sum[i] = make([]int32, n)
	}

	return a
}

func (a *accumulator) zero() {
	for i := range a.sum {
		for j := range a.sum[i] {
			a.sum[i][j] = 0
		}
	}
}

func (a *accumulator) begin() {
	a.zero()
	a.state = AccIdle
	a.steps = 0
	a.explicit = true
}

func (a *accumulator) add(product [][]int32) {
	for i := range a.sum {
		for j := range a.sum[i] {
			a.sum[i][j] += product[i][j]
		}
	}

	a.steps++
	a.state = AccAccumulating
}

// finish closes the reduction and resets the register for the next tile.
func (a *accumulator) finish() {
	a.lastSteps = a.steps
	a.tilesDone++
	a.zero()
	a.steps = 0
	a.state = AccIdle
	a.explicit = false
}

func (a *accumulator) snapshot() AccumulatorSnapshot {
	values := make([][]int32, a.n)
	for i := range values {
		values[i] = append([]int32(nil), a.sum[i]...)
	}

	return AccumulatorSnapshot{
		State:     a.state,
		Steps:     a.steps,
		LastSteps: a.lastSteps,
		Explicit:  a.explicit,
		TilesDone: a.tilesDone,
		Values:    values,
	}
}
