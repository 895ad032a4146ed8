package bitpack

import (
	"fmt"
)

// Streaming packs items one at a time through a two-block sliding window,
// emitting each completed 64-bit block via a callback. It never holds more
// than two blocks of state, so arbitrarily long item sequences can be packed
// without buffering them.
//
// The concatenation of all emitted blocks followed by the Finish remainder
// is identical to Packer.Pack applied to the same item sequence.
//
// Streaming is not safe for concurrent use; pushes must be serialized by the
// caller, in item order.
type Streaming struct {
	packer Packer

	// window holds the block being filled and, transiently, its successor
	// when an item straddles the boundary between them.
	window [2]uint64

	// offset is the write position in bits within the window; it stays
	// below 64 between pushes.
	offset int

	onBlock func(uint64)
}

// NewStreaming creates a streaming packer for the given item width.
// onBlock is invoked once per completed block, in order. Panics if
// bitsPerItem is outside [1, 64] or onBlock is nil.
func NewStreaming(bitsPerItem int, onBlock func(uint64)) *Streaming {
	if onBlock == nil {
		panic("bitpack: nil block callback")
	}
	return &Streaming{packer: New(bitsPerItem), onBlock: onBlock}
}

// BitsPerItem returns the configured item width in bits.
func (s *Streaming) BitsPerItem() int {
	return s.packer.BitsPerItem()
}

// Push crops item to the configured width and appends it to the stream,
// emitting a completed block if the write crosses the 64-bit boundary.
func (s *Streaming) Push(item []byte) {
	v := s.packer.cropUint64(item)
	shift := uint(s.offset)
	s.window[0] |= v << shift
	if int(shift)+s.packer.bitsPerItem > 64 {
		s.window[1] |= v >> (64 - shift)
	}
	s.offset += s.packer.bitsPerItem
	for s.offset >= 64 {
		s.onBlock(s.window[0])
		s.window[0] = s.window[1]
		s.window[1] = 0
		s.offset -= 64
	}
}

// Finish flushes the stream and returns any unemitted partial state. The
// first return is non-nil if any bits remain unflushed; the second is
// non-nil only if a full additional block remains, which cannot occur when
// pushes flush eagerly but is reported for completeness of the contract.
// The streaming packer must not be pushed to after Finish.
func (s *Streaming) Finish() (rem, overflow *uint64) {
	if s.offset == 0 {
		return nil, nil
	}
	first := s.window[0]
	rem = &first
	if s.offset >= 64 {
		second := s.window[1]
		overflow = &second
	}
	s.window = [2]uint64{}
	s.offset = 0
	return rem, overflow
}

// String describes the packer state; used only in test failure output.
func (s *Streaming) String() string {
	return fmt.Sprintf("bitpack.Streaming{width: %d, offset: %d}", s.packer.bitsPerItem, s.offset)
}
