package fingerprint

import (
	"github.com/rasterlabs/raster/pkg/bitpack"
)

// Accumulator grows a Fingerprint one item at a time. After any number of
// appends, the accumulated blocks are bit-identical to a single batch Pack
// over the same item sequence, which is what lets a trace commitment be
// built online as execution proceeds without buffering the whole trace.
//
// An Accumulator is single-writer: callers that record items from multiple
// goroutines must serialize them into one total order first, since each
// item's block position depends on every prior append.
type Accumulator struct {
	f Fingerprint
}

// NewAccumulator creates an empty accumulator for the given item width.
func NewAccumulator(bitsPerItem int) *Accumulator {
	return &Accumulator{f: Fingerprint{packer: bitpack.New(bitsPerItem)}}
}

// Resume continues accumulation from a previously produced fingerprint.
// Appending the remaining items yields the same blocks as packing the full
// combined sequence in one pass.
func Resume(f Fingerprint) *Accumulator {
	owned := Fingerprint{
		packer: f.packer,
		blocks: append([]uint64(nil), f.blocks...),
		length: f.length,
	}
	return &Accumulator{f: owned}
}

// Append crops item to the accumulator's width and packs it after all prior
// items, growing the block buffer by exactly the blocks the new item needs.
func (a *Accumulator) Append(item []byte) {
	need := a.f.packer.PackedLen(a.f.length + 1)
	for len(a.f.blocks) < need {
		a.f.blocks = append(a.f.blocks, 0)
	}
	a.f.packer.PackItem(a.f.blocks, a.f.length, item)
	a.f.length++
}

// Len returns the number of items appended so far, including any the
// accumulator was resumed with.
func (a *Accumulator) Len() int {
	return a.f.length
}

// Fingerprint consumes the accumulator and returns the built fingerprint.
// The accumulator must not be appended to afterwards.
func (a *Accumulator) Fingerprint() Fingerprint {
	return a.f
}
