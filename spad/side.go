package spad

import (
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// side is one physical SRAM array.
type side struct {
	size    int
	storage *mem.Storage
}

func newSide(size int) side {
	return side{size: size, storage: mem.NewStorage(uint64(size))}
}

func (s side) check(name string, offset, n int) error {
	if offset < 0 || n < 0 || offset+n > s.size {
		return fmt.Errorf("%s: %w: offset %d size %d capacity %d",
			name, ErrOutOfRange, offset, n, s.size)
	}

	return nil
}

func (s side) read(offset, n int) []byte {
	if n == 0 {
		return []byte{}
	}

	data, err := s.storage.Read(uint64(offset), uint64(n))
	if err != nil {
		panic(err)
	}

	out := make([]byte, n)
	copy(out, data)

	return out
}

func (s side) write(offset int, data []byte) {
	if len(data) == 0 {
		return
	}

	if err := s.storage.Write(uint64(offset), data); err != nil {
		panic(err)
	}
}

func (s side) clear() {
	s.write(0, make([]byte, s.size))
}
