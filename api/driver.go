// Package api defines the driver that feeds instruction streams to a
// control unit under an akita engine.
package api

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/tpusim/core"
	"github.com/sarchlab/tpusim/util"
)

// Driver provides the interface to control an accelerator.
type Driver interface {
	sim.Component

	// Unit returns the control unit the driver feeds.
	Unit() *core.Unit

	// Enqueue adds a program. Programs run in the order they are enqueued.
	Enqueue(p core.Program)

	// Run executes every enqueued program, one instruction per tick, and
	// returns the first execution error.
	Run() error

	// Records returns one record per executed instruction.
	Records() []Record
}

// Record is the issue time of one instruction.
type Record struct {
	Program string
	Index   int
	Opcode  core.Opcode
	Time    sim.VTimeInSec
	Cycle   uint64
}

type task struct {
	program core.Program
	pc      int
}

func (t *task) isFinished() bool {
	return t.pc >= t.program.Len()
}

type driverImpl struct {
	*sim.TickingComponent

	unit    *core.Unit
	tasks   []*task
	records []Record
	err     error
}

// Tick runs the driver for one cycle.
func (d *driverImpl) Tick() (madeProgress bool) {
	if d.err != nil || len(d.tasks) == 0 {
		return false
	}

	t := d.tasks[0]
	if t.isFinished() {
		d.unit.Flush()
		d.tasks = d.tasks[1:]

		return true
	}

	inst := t.program.Instructions[t.pc]
	d.records = append(d.records, Record{
		Program: t.program.Name,
		Index:   t.pc,
		Opcode:  inst.Opcode,
		Time:    d.Engine.CurrentTime(),
		Cycle:   d.unit.Cycle(),
	})

	if err := d.unit.Execute(inst); err != nil {
		d.err = fmt.Errorf("%s: instruction %d (%s): %w",
			t.program.Name, t.pc, inst.Opcode, err)
		util.Trace("Driver",
			"Behavior", "Abort",
			"Driver", d.Name(),
			"Error", d.err.Error(),
		)

		return false
	}

	t.pc++

	return true
}

func (d *driverImpl) Unit() *core.Unit {
	return d.unit
}

func (d *driverImpl) Enqueue(p core.Program) {
	d.tasks = append(d.tasks, &task{program: p})
}

func (d *driverImpl) Records() []Record {
	return d.records
}

// Run runs all the tasks in the driver.
func (d *driverImpl) Run() error {
	d.TickNow()

	if err := d.Engine.Run(); err != nil {
		return err
	}

	return d.err
}
