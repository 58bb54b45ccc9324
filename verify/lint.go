package verify

import (
	"fmt"

	"github.com/sarchlab/tpusim/config"
	"github.com/sarchlab/tpusim/core"
)

// IssueType classifies lint findings.
type IssueType string

const (
	// IssueStruct flags an instruction that is malformed on its own.
	IssueStruct IssueType = "STRUCT"
	// IssueSequence flags an instruction that is well formed but issued in
	// a state where it reads stale or missing data.
	IssueSequence IssueType = "SEQUENCE"
)

// Issue is one lint finding.
type Issue struct {
	Type    IssueType
	Index   int
	Opcode  core.Opcode
	Message string
	Details map[string]interface{}
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s #%d %s] %s", i.Type, i.Index, i.Opcode, i.Message)
}

// linter replays a program against a model of the sequencing state only.
type linter struct {
	cfg    config.Config
	issues []Issue

	fifo      int
	slotInit  map[int]bool
	params    map[core.Opcode]bool
	open      bool
	steps     int
	lastSteps int
}

// RunLint checks every instruction of p and returns the findings in
// program order.
func RunLint(p core.Program, cfg config.Config) []Issue {
	l := &linter{
		cfg:       cfg,
		slotInit:  make(map[int]bool),
		params:    make(map[core.Opcode]bool),
		lastSteps: -1,
	}

	for i, inst := range p.Instructions {
		l.check(i, inst)
	}

	end := len(p.Instructions)
	if l.open {
		l.report(IssueSequence, end, "", "program ends with an open reduction",
			map[string]interface{}{"steps": l.steps})
	}

	if l.fifo > 0 {
		l.report(IssueSequence, end, "", "weights left in the FIFO at program end",
			map[string]interface{}{"bytes": l.fifo})
	}

	return l.issues
}

func (l *linter) report(
	t IssueType,
	index int,
	op core.Opcode,
	msg string,
	details map[string]interface{},
) {
	l.issues = append(l.issues, Issue{
		Type:    t,
		Index:   index,
		Opcode:  op,
		Message: msg,
		Details: details,
	})
}

func (l *linter) structErr(i int, inst core.Instruction, format string, args ...any) {
	l.report(IssueStruct, i, inst.Opcode, fmt.Sprintf(format, args...), nil)
}

func (l *linter) seqErr(i int, inst core.Instruction, format string, args ...any) {
	l.report(IssueSequence, i, inst.Opcode, fmt.Sprintf(format, args...), nil)
}

func (l *linter) validSlot(i int, inst core.Instruction, slot int) bool {
	if slot < 0 || slot >= l.cfg.NumSlots {
		l.structErr(i, inst, "slot %d out of range [0, %d)", slot, l.cfg.NumSlots)
		return false
	}

	return true
}

func (l *linter) validSize(i int, inst core.Instruction, limit int) bool {
	if inst.Size <= 0 || inst.Size > limit {
		l.structErr(i, inst, "size %d outside (0, %d]", inst.Size, limit)
		return false
	}

	return true
}

func (l *linter) check(i int, inst core.Instruction) {
	switch inst.Opcode {
	case core.OpGmem2Smem:
		if l.validSlot(i, inst, inst.Slot) && l.validSize(i, inst, l.cfg.SlotSize()) {
			l.slotInit[inst.Slot] = true
		}
	case core.OpSmem2Gmem:
		if l.validSlot(i, inst, inst.Slot) && l.validSize(i, inst, l.cfg.SlotSize()) {
			l.readSlot(i, inst, inst.Slot)
		}
	case core.OpLoadBias, core.OpLoadZP, core.OpLoadQSF, core.OpLoadQSFF32:
		l.checkVector(i, inst)
	case core.OpLoadWeights:
		l.checkWeights(i, inst)
	case core.OpDoMatmul:
		l.checkMatmul(i, inst)
	case core.OpBeginTile:
		if l.open {
			l.seqErr(i, inst, "begin_tile discards %d accumulated steps", l.steps)
		}
		l.open = false
		l.steps = 0
	case core.OpEndTile:
		if l.open {
			l.seqErr(i, inst, "end_tile while %d steps are still accumulating", l.steps)
		}
	default:
		l.structErr(i, inst, "unknown opcode %q", inst.Opcode)
	}
}

func (l *linter) readSlot(i int, inst core.Instruction, slot int) {
	if !l.slotInit[slot] {
		l.seqErr(i, inst, "slot %d is read before it is written", slot)
	}
}

func (l *linter) checkVector(i int, inst core.Instruction) {
	n := l.cfg.ArraySize
	if len(inst.Shape) != 2 {
		l.structErr(i, inst, "shape %v is not [rows, cols]", inst.Shape)
		return
	}

	for _, d := range inst.Shape {
		if d != 1 && d != n {
			l.structErr(i, inst, "shape %v does not broadcast to %dx%d", inst.Shape, n, n)
			return
		}
	}

	op := inst.Opcode
	if op == core.OpLoadQSFF32 {
		op = core.OpLoadQSF
	}
	l.params[op] = true
}

func (l *linter) checkWeights(i int, inst core.Instruction) {
	if inst.FromSlot {
		if l.validSlot(i, inst, inst.Slot) && l.validSize(i, inst, l.cfg.SlotSize()) {
			l.readSlot(i, inst, inst.Slot)
			l.fifo += inst.Size
		}
		return
	}

	if l.validSize(i, inst, l.cfg.WeightBufferSize) {
		l.fifo += inst.Size
	}
}

func (l *linter) checkMatmul(i int, inst core.Instruction) {
	switch {
	case inst.Feedback && inst.Store != nil:
		l.structErr(i, inst, "accumulating step carries a store target")
	case !inst.Feedback && inst.Store == nil:
		l.structErr(i, inst, "final step has no store target")
	case inst.Store != nil:
		l.checkStore(i, inst)
	}

	if !l.validSlot(i, inst, inst.Slot) {
		return
	}
	l.readSlot(i, inst, inst.Slot)

	tile := l.cfg.TileBytes()
	if l.fifo < tile {
		l.report(IssueSequence, i, inst.Opcode, "weight FIFO underflow",
			map[string]interface{}{"have": l.fifo, "need": tile})
		l.fifo = 0
	} else {
		l.fifo -= tile
	}

	l.open = true
	l.steps++

	if inst.Feedback {
		return
	}

	for _, op := range []core.Opcode{core.OpLoadBias, core.OpLoadZP, core.OpLoadQSF} {
		if !l.params[op] {
			l.seqErr(i, inst, "%s not issued before the final step", op)
		}
	}

	if l.lastSteps >= 0 && l.steps != l.lastSteps {
		l.report(IssueSequence, i, inst.Opcode, "reduction length differs from the previous tile",
			map[string]interface{}{"steps": l.steps, "previous": l.lastSteps})
	}

	l.lastSteps = l.steps
	l.open = false
	l.steps = 0
}

func (l *linter) checkStore(i int, inst core.Instruction) {
	switch inst.Store.Space {
	case core.OnChip:
		if l.validSlot(i, inst, inst.Store.Slot) {
			l.slotInit[inst.Store.Slot] = true
		}
	case core.OffChip, "":
	default:
		l.structErr(i, inst, "unknown store space %q", inst.Store.Space)
	}
}
