package memory

// LatencyPolicy decides how many cycles an off-chip access costs. Policies
// may keep state; every access, read or write, goes through Latency exactly
// once.
type LatencyPolicy interface {
	Latency(addr uint64, size int) uint64
}

// RowLocality charges a low latency when an access falls in the currently
// open DRAM row and a high one otherwise, both plus one cycle per burst. It
// is a heuristic, not a DRAM timing model.
type RowLocality struct {
	RowSize     uint64
	HitLatency  uint64
	MissLatency uint64
	BurstBytes  uint64

	openRow int64
}

// NewRowLocality creates a policy with no open row.
func NewRowLocality(rowSize, hit, miss, burst uint64) *RowLocality {
	if rowSize == 0 || burst == 0 {
		panic("row size and burst size must be positive")
	}

	return &RowLocality{
		RowSize:     rowSize,
		HitLatency:  hit,
		MissLatency: miss,
		BurstBytes:  burst,
		openRow:     -1,
	}
}

// Latency returns the access cost and opens the row addr falls in.
func (p *RowLocality) Latency(addr uint64, size int) uint64 {
	row := int64(addr / p.RowSize)
	bursts := uint64(0)
	if size > 0 {
		bursts = uint64(size) / p.BurstBytes
	}

	if row == p.openRow {
		return p.HitLatency + bursts
	}

	p.openRow = row

	return p.MissLatency + bursts
}

// OpenRow returns the open row, or -1 before the first access.
func (p *RowLocality) OpenRow() int64 {
	return p.openRow
}

// FixedLatency charges the same cost for every access, as an SRAM would.
type FixedLatency struct {
	Cycles uint64
}

// Latency returns the fixed cost.
func (p FixedLatency) Latency(_ uint64, _ int) uint64 {
	return p.Cycles
}
