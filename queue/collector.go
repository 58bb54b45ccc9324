package queue

// Sink receives a drained block.
type Sink interface {
	Write(addr uint64, data []byte) error
}

// OutputCollector gathers result bytes from the compute pipeline until they
// are drained as one contiguous block.
type OutputCollector struct {
	data []byte
}

// NewOutputCollector creates an empty collector.
func NewOutputCollector() *OutputCollector {
	return &OutputCollector{}
}

// Push appends a 16-bit value as big-endian bytes.
func (c *OutputCollector) Push(high, low byte) {
	c.data = append(c.data, high, low)
}

// PushByte appends one byte.
func (c *OutputCollector) PushByte(b byte) {
	c.data = append(c.data, b)
}

// Bytes returns a copy of the collected bytes.
func (c *OutputCollector) Bytes() []byte {
	out := make([]byte, len(c.data))
	copy(out, c.data)

	return out
}

// Len returns the number of collected bytes.
func (c *OutputCollector) Len() int {
	return len(c.data)
}

// DrainTo writes everything collected to addr in a single write and then
// clears the collector. If the write fails the collector keeps its
// contents.
func (c *OutputCollector) DrainTo(s Sink, addr uint64) error {
	if err := s.Write(addr, c.Bytes()); err != nil {
		return err
	}

	c.data = c.data[:0]

	return nil
}
