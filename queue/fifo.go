// Package queue provides the ordered byte queues that feed and drain the
// systolic array.
package queue

// WeightFIFO is a strict first-in first-out byte queue feeding weights to
// the array.
type WeightFIFO struct {
	data []byte
	head int
}

// NewWeightFIFO creates an empty FIFO.
func NewWeightFIFO() *WeightFIFO {
	return &WeightFIFO{}
}

// PushBytes appends bytes in order.
func (f *WeightFIFO) PushBytes(b []byte) {
	if f.head > 0 && f.head == len(f.data) {
		f.data = f.data[:0]
		f.head = 0
	}

	f.data = append(f.data, b...)
}

// Pop removes and returns the oldest byte. An empty FIFO returns 0; the
// instruction stream is expected to push exactly what it pops.
func (f *WeightFIFO) Pop() byte {
	if f.head >= len(f.data) {
		return 0
	}

	b := f.data[f.head]
	f.head++

	return b
}

// PopN pops n bytes.
func (f *WeightFIFO) PopN(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = f.Pop()
	}

	return out
}

// Len returns the number of queued bytes.
func (f *WeightFIFO) Len() int {
	return len(f.data) - f.head
}
