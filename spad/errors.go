// Package spad models the on-chip scratchpad buffers of the accelerator.
package spad

import "errors"

var (
	// ErrBufferBusy is returned when a DMA is started on a buffer that
	// already has one in flight.
	ErrBufferBusy = errors.New("buffer busy: DMA already in flight")

	// ErrSwitchWhileBusy is returned when a buffer switch is requested while
	// a DMA is in flight.
	ErrSwitchWhileBusy = errors.New("cannot switch buffer while DMA in flight")

	// ErrOutOfRange is returned for accesses that do not fit in a buffer.
	ErrOutOfRange = errors.New("access out of buffer range")

	// ErrInvalidSlot is returned for slot ids outside the slot table.
	ErrInvalidSlot = errors.New("invalid slot")
)
