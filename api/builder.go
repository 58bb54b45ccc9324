package api

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/tpusim/core"
)

// DriverBuilder creates a new instance of Driver.
type DriverBuilder struct {
	engine sim.Engine
	freq   sim.Freq
	unit   *core.Unit
}

// WithEngine sets the engine.
func (b DriverBuilder) WithEngine(engine sim.Engine) DriverBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the driver.
func (b DriverBuilder) WithFreq(freq sim.Freq) DriverBuilder {
	b.freq = freq
	return b
}

// WithUnit sets the control unit that the driver feeds.
func (b DriverBuilder) WithUnit(unit *core.Unit) DriverBuilder {
	b.unit = unit
	return b
}

// Build create a driver.
func (b DriverBuilder) Build(name string) Driver {
	if b.unit == nil {
		panic("driver needs a control unit")
	}

	d := &driverImpl{
		unit: b.unit,
	}

	d.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, d)

	return d
}
