package core

import "errors"

var (
	// ErrInvalidSize is returned when a transfer size does not fit its
	// destination.
	ErrInvalidSize = errors.New("invalid size")
	// ErrShapeMismatch is returned when a staged per-channel vector cannot
	// broadcast over the output tile.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrParamNotLoaded is returned when a tile is finished before bias,
	// zero point and multiplier are staged.
	ErrParamNotLoaded = errors.New("parameter not loaded")
	// ErrMissingStore is returned by a final do_matmul without a store
	// target.
	ErrMissingStore = errors.New("final matmul needs a store target")
	// ErrUnexpectedStore is returned by a feedback do_matmul that carries a
	// store target.
	ErrUnexpectedStore = errors.New("feedback matmul must not store")
	// ErrInvalidStore is returned for a store target in an unknown space.
	ErrInvalidStore = errors.New("invalid store target")
	// ErrUnknownOpcode is returned for opcodes outside the instruction set.
	ErrUnknownOpcode = errors.New("unknown opcode")
	// ErrTileOpen is returned by end_tile while a reduction is in progress.
	ErrTileOpen = errors.New("tile reduction still open")
)
