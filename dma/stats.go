package dma

// Stats are the counters of the memory subsystem. They only ever grow.
type Stats struct {
	TotalCycles      uint64
	ComputeCycles    uint64
	StallCycles      uint64
	DMATransfers     uint64
	BufferSwitches   uint64
	DRAMBytesRead    uint64
	DRAMBytesWritten uint64
}

// Efficiency is the share of cycles spent computing.
func (s Stats) Efficiency() float64 {
	if s.TotalCycles == 0 {
		return 0
	}

	return float64(s.ComputeCycles) / float64(s.TotalCycles)
}
