package spad

import "fmt"

// Storage is an on-chip byte store that slots can be carved from.
type Storage interface {
	Read(offset, n int) ([]byte, error)
	Write(offset int, data []byte) error
}

// Arena is a fixed table of equally sized on-chip slots addressed by small
// integers.
type Arena struct {
	store    Storage
	slotSize int
	numSlots int
}

// NewArena carves numSlots slots of slotSize bytes from store.
func NewArena(store Storage, numSlots, slotSize int) *Arena {
	if numSlots <= 0 || slotSize <= 0 {
		panic("arena needs at least one non-empty slot")
	}

	return &Arena{store: store, slotSize: slotSize, numSlots: numSlots}
}

// NumSlots returns the number of slots.
func (a *Arena) NumSlots() int {
	return a.numSlots
}

// SlotSize returns the size of each slot in bytes.
func (a *Arena) SlotSize() int {
	return a.slotSize
}

// Offset returns the byte offset of slot in the backing store after
// checking that n bytes fit in it.
func (a *Arena) Offset(slot, n int) (int, error) {
	if slot < 0 || slot >= a.numSlots {
		return 0, fmt.Errorf("%w: %d (have %d)", ErrInvalidSlot, slot, a.numSlots)
	}

	if n < 0 || n > a.slotSize {
		return 0, fmt.Errorf("%w: %d bytes into a %d-byte slot",
			ErrOutOfRange, n, a.slotSize)
	}

	return slot * a.slotSize, nil
}

// Read reads n bytes from the start of slot.
func (a *Arena) Read(slot, n int) ([]byte, error) {
	off, err := a.Offset(slot, n)
	if err != nil {
		return nil, err
	}

	return a.store.Read(off, n)
}

// Write writes data to the start of slot.
func (a *Arena) Write(slot int, data []byte) error {
	off, err := a.Offset(slot, len(data))
	if err != nil {
		return err
	}

	return a.store.Write(off, data)
}
