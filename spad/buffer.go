package spad

import "fmt"

type dmaState struct {
	running    bool
	cyclesLeft int
	data       []byte
	offset     int
}

// DoubleBuffer is a double-buffered SRAM scratchpad. Compute reads and
// writes the active side while a DMA fills the loading side. Switch swaps
// the two sides.
type DoubleBuffer struct {
	name    string
	size    int
	sides   [2]side
	active  int
	loading int
	dma     dmaState
}

// NewDoubleBuffer creates a double buffer with two sides of size bytes.
func NewDoubleBuffer(name string, size int) *DoubleBuffer {
	return &DoubleBuffer{
		name:    name,
		size:    size,
		sides:   [2]side{newSide(size), newSide(size)},
		active:  0,
		loading: 1,
	}
}

// Name returns the name of the buffer.
func (b *DoubleBuffer) Name() string {
	return b.name
}

// Size returns the size of one side.
func (b *DoubleBuffer) Size() int {
	return b.size
}

// Read reads from the active side.
func (b *DoubleBuffer) Read(offset, n int) ([]byte, error) {
	if err := b.sides[b.active].check(b.name, offset, n); err != nil {
		return nil, err
	}

	return b.sides[b.active].read(offset, n), nil
}

// Write writes to the active side.
func (b *DoubleBuffer) Write(offset int, data []byte) error {
	if err := b.sides[b.active].check(b.name, offset, len(data)); err != nil {
		return err
	}

	b.sides[b.active].write(offset, data)

	return nil
}

// StartDMA stages data for the loading side. The data lands after cycles
// ticks. A second DMA while one is in flight is rejected and leaves the
// in-flight transfer untouched.
func (b *DoubleBuffer) StartDMA(data []byte, offset, cycles int) error {
	if b.dma.running {
		return fmt.Errorf("%s: %w", b.name, ErrBufferBusy)
	}

	if err := b.sides[b.loading].check(b.name, offset, len(data)); err != nil {
		return err
	}

	staged := make([]byte, len(data))
	copy(staged, data)

	b.dma = dmaState{
		running:    true,
		cyclesLeft: cycles,
		data:       staged,
		offset:     offset,
	}

	return nil
}

// Tick advances the in-flight DMA by one cycle. It returns true on the
// cycle the payload is committed to the loading side.
func (b *DoubleBuffer) Tick() bool {
	if !b.dma.running {
		return false
	}

	b.dma.cyclesLeft--
	if b.dma.cyclesLeft > 0 {
		return false
	}

	b.sides[b.loading].write(b.dma.offset, b.dma.data)
	b.dma = dmaState{}

	return true
}

// DMARunning tells whether a DMA is in flight.
func (b *DoubleBuffer) DMARunning() bool {
	return b.dma.running
}

// DMACyclesRemaining returns the cycles left on the in-flight DMA, or 0.
func (b *DoubleBuffer) DMACyclesRemaining() int {
	if !b.dma.running {
		return 0
	}

	return b.dma.cyclesLeft
}

// CanSwitch is true iff no DMA is in flight.
func (b *DoubleBuffer) CanSwitch() bool {
	return !b.dma.running
}

// Switch exchanges the active and loading sides.
func (b *DoubleBuffer) Switch() error {
	if b.dma.running {
		return fmt.Errorf("%s: %w", b.name, ErrSwitchWhileBusy)
	}

	b.active, b.loading = b.loading, b.active

	return nil
}

// Active returns the index of the active side.
func (b *DoubleBuffer) Active() int {
	return b.active
}

// Loading returns the index of the loading side.
func (b *DoubleBuffer) Loading() int {
	return b.loading
}

// SingleBuffer is an SRAM without double buffering, used as the
// accumulator.
type SingleBuffer struct {
	name string
	buf  side
}

// NewSingleBuffer creates a single buffer of size bytes.
func NewSingleBuffer(name string, size int) *SingleBuffer {
	return &SingleBuffer{name: name, buf: newSide(size)}
}

// Name returns the name of the buffer.
func (b *SingleBuffer) Name() string {
	return b.name
}

// Size returns the capacity in bytes.
func (b *SingleBuffer) Size() int {
	return b.buf.size
}

// Read reads n bytes at offset.
func (b *SingleBuffer) Read(offset, n int) ([]byte, error) {
	if err := b.buf.check(b.name, offset, n); err != nil {
		return nil, err
	}

	return b.buf.read(offset, n), nil
}

// Write writes data at offset.
func (b *SingleBuffer) Write(offset int, data []byte) error {
	if err := b.buf.check(b.name, offset, len(data)); err != nil {
		return err
	}

	b.buf.write(offset, data)

	return nil
}

// Clear zero-fills the buffer.
func (b *SingleBuffer) Clear() {
	b.buf.clear()
}
