// Package memory models flat byte-addressable storage such as the off-chip
// DRAM of the accelerator.
package memory

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// Space is a fixed-size byte address space backed by a sparse akita storage.
//
// Accesses that run past Size are clipped: reads return zero bytes for the
// part outside the space and writes drop it. Nothing is allocated for pages
// that were never written.
type Space struct {
	name    string
	size    uint64
	storage *mem.Storage
}

// NewSpace creates an address space of size bytes.
func NewSpace(name string, size uint64) *Space {
	if size == 0 {
		panic("memory space must not be empty")
	}

	return &Space{
		name:    name,
		size:    size,
		storage: mem.NewStorage(size),
	}
}

// Name returns the name of the space.
func (s *Space) Name() string {
	return s.name
}

// Size returns the capacity in bytes.
func (s *Space) Size() uint64 {
	return s.size
}

// inRange returns how many of the n bytes starting at addr fall inside the
// space.
func (s *Space) inRange(addr uint64, n int) uint64 {
	if addr >= s.size || n <= 0 {
		return 0
	}

	if uint64(n) > s.size-addr {
		return s.size - addr
	}

	return uint64(n)
}

// Read returns n bytes starting at addr.
func (s *Space) Read(addr uint64, n int) []byte {
	if n <= 0 {
		return []byte{}
	}

	out := make([]byte, n)

	valid := s.inRange(addr, n)
	if valid == 0 {
		return out
	}

	data, err := s.storage.Read(addr, valid)
	if err != nil {
		panic(fmt.Sprintf("%s: read %d bytes at 0x%x: %v", s.name, valid, addr, err))
	}

	copy(out, data)

	return out
}

// Write stores data starting at addr. Bytes past the end of the space are
// dropped.
func (s *Space) Write(addr uint64, data []byte) {
	valid := s.inRange(addr, len(data))
	if valid == 0 {
		return
	}

	err := s.storage.Write(addr, data[:valid])
	if err != nil {
		panic(fmt.Sprintf("%s: write %d bytes at 0x%x: %v", s.name, valid, addr, err))
	}
}

// ReadWord reads the little-endian 32-bit word whose byte lane 0 is at addr.
func (s *Space) ReadWord(addr uint64) uint32 {
	return binary.LittleEndian.Uint32(s.Read(addr, 4))
}

// WriteWord performs a masked word write. Bit i of sel enables byte lane i,
// which lives at addr+i. Lanes that are not selected keep their contents.
func (s *Space) WriteWord(addr uint64, word uint32, sel uint8) {
	sel &= 0xF
	if sel == 0 {
		return
	}

	var lanes [4]byte
	binary.LittleEndian.PutUint32(lanes[:], word)

	if sel == 0xF {
		s.Write(addr, lanes[:])
		return
	}

	current := s.Read(addr, 4)
	for i := 0; i < 4; i++ {
		if sel&(1<<i) != 0 {
			current[i] = lanes[i]
		}
	}

	s.Write(addr, current)
}
