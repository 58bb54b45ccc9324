package verify

import (
	"fmt"

	"github.com/rs/xid"
	"github.com/sarchlab/tpusim/config"
	"github.com/sarchlab/tpusim/core"
	"github.com/sarchlab/tpusim/dma"
)

// Mismatch is one output element that differs from the reference.
type Mismatch struct {
	Row, Col  int
	Got, Want int32
}

// Result is the outcome of one verification run.
type Result struct {
	RunID   xid.ID
	Mode    core.Mode
	Config  config.Config
	Program core.Program
	Issues  []Issue

	Got, Want  [][]int32
	Mismatches []Mismatch
	Stats      dma.Stats

	// SimErr is set when the unit rejected an instruction.
	SimErr error
}

// OK reports whether the run finished and matched the reference.
func (r *Result) OK() bool {
	return r.SimErr == nil && len(r.Mismatches) == 0
}

// Session is a prepared verification run: a fresh unit with the operands
// preloaded and the program that computes them. Callers execute Program on
// Unit however they like and pass the outcome to Collect.
type Session struct {
	Unit    *core.Unit
	Program core.Program
	Layout  AddressMap

	result *Result
	m, n   int
}

// NewSession tiles the problem, lints the generated program and builds a
// unit with the operands in place.
func NewSession(
	p Problem,
	cfg config.Config,
	mode core.Mode,
	opts TilingOptions,
) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m, _, n, err := p.Dims()
	if err != nil {
		return nil, err
	}

	am, err := Layout(p, cfg)
	if err != nil {
		return nil, err
	}

	want, err := Reference(p, cfg)
	if err != nil {
		return nil, err
	}

	prog := TiledMatmul(am, cfg, opts)
	res := &Result{
		RunID:   xid.New(),
		Mode:    mode,
		Config:  cfg,
		Program: prog,
		Issues:  RunLint(prog, cfg),
		Want:    want,
	}

	u := core.NewBuilder().
		WithConfig(cfg).
		WithMode(mode).
		Build(fmt.Sprintf("TPU.%s", res.RunID))

	Preload(u, p, am)

	return &Session{
		Unit:    u,
		Program: prog,
		Layout:  am,
		result:  res,
		m:       m,
		n:       n,
	}, nil
}

// Collect reads the output back and compares it with the reference. simErr
// is the error the program run returned, if any.
func (s *Session) Collect(simErr error) *Result {
	res := s.result
	res.SimErr = simErr
	res.Stats = s.Unit.Stats()

	if simErr != nil {
		return res
	}

	res.Got = ReadOutput(s.Unit, s.Layout, s.m, s.n)
	res.Mismatches = Compare(res.Got, res.Want)

	return res
}

// Check runs a session directly on its unit. The returned error covers
// problems that prevent a run at all; simulation failures land in
// Result.SimErr.
func Check(
	p Problem,
	cfg config.Config,
	mode core.Mode,
	opts TilingOptions,
) (*Result, error) {
	s, err := NewSession(p, cfg, mode, opts)
	if err != nil {
		return nil, err
	}

	return s.Collect(s.Unit.Run(s.Program)), nil
}

// Compare lists the elements where got and want differ. Missing rows or
// columns in got count as mismatches against zero.
func Compare(got, want [][]int32) []Mismatch {
	var out []Mismatch

	for i := range want {
		for j := range want[i] {
			var g int32
			if i < len(got) && j < len(got[i]) {
				g = got[i][j]
			}

			if g != want[i][j] {
				out = append(out, Mismatch{Row: i, Col: j, Got: g, Want: want[i][j]})
			}
		}
	}

	return out
}
