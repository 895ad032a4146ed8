// Package fingerprint provides the dense bit-packed trace commitment and its
// incremental accumulator. A fingerprint is the packed sequence of per-item
// digests produced while recording a trace; it is what gets persisted and
// later compared bit-exactly against a replayed run.
package fingerprint

import (
	"fmt"

	"github.com/rasterlabs/raster/pkg/bitpack"
)

// Fingerprint owns a packed block buffer together with the item count and
// width it was packed with. Construct with Pack for a batch build, or grow
// one through an Accumulator.
type Fingerprint struct {
	packer bitpack.Packer
	blocks []uint64
	length int
}

// Pack builds a fingerprint in one batch call over the full item list.
func Pack(bitsPerItem int, items [][]byte) Fingerprint {
	packer := bitpack.New(bitsPerItem)
	return Fingerprint{
		packer: packer,
		blocks: packer.Pack(items),
		length: len(items),
	}
}

// FromBlocks reconstructs a fingerprint from a previously produced block
// sequence, e.g. one loaded from disk. The block count must exactly match
// what length items of the given width occupy.
func FromBlocks(bitsPerItem int, blocks []uint64, length int) (Fingerprint, error) {
	packer := bitpack.New(bitsPerItem)
	if want := packer.PackedLen(length); len(blocks) != want {
		return Fingerprint{}, &bitpack.LengthMismatchError{Expected: want, Actual: len(blocks)}
	}
	owned := append([]uint64(nil), blocks...)
	return Fingerprint{packer: packer, blocks: owned, length: length}, nil
}

// BitsPerItem returns the width each item was packed with.
func (f Fingerprint) BitsPerItem() int {
	return f.packer.BitsPerItem()
}

// Len returns the number of items packed into the fingerprint.
func (f Fingerprint) Len() int {
	return f.length
}

// Blocks returns the packed 64-bit blocks. The returned slice is the
// fingerprint's backing store and must not be modified.
func (f Fingerprint) Blocks() []uint64 {
	return f.blocks
}

// Get extracts the packed value of item index.
func (f Fingerprint) Get(index int) (uint64, error) {
	if index < 0 || index >= f.length {
		return 0, &bitpack.IndexOutOfBoundsError{Index: index, Max: f.length}
	}
	return f.packer.Get(index, f.blocks)
}

// Diff locates the first diverging item between this fingerprint and an
// expected block sequence. Returns nil if they match bit-for-bit, and a
// LengthMismatchError if the block counts differ.
func (f Fingerprint) Diff(expected []uint64) (*bitpack.Diff, error) {
	return f.packer.Diff(f.blocks, expected)
}

// String renders a short summary for logs.
func (f Fingerprint) String() string {
	return fmt.Sprintf("fingerprint{items: %d, width: %d, blocks: %d}", f.length, f.packer.BitsPerItem(), len(f.blocks))
}
