// Package bitpack packs fixed-width integer values into dense sequences of
// 64-bit blocks. Values are laid out in little-endian bit order: item i
// occupies bits [i*width, (i+1)*width) of the block sequence, and a value
// that crosses a 64-bit boundary splits across two consecutive blocks.
//
// The packer itself is stateless configuration; all functions operate on
// caller-provided buffers.
package bitpack

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// MaxBits is the largest supported item width in bits.
const MaxBits = 64

// Packer packs and unpacks values of a fixed bit width. The zero value is
// unusable; construct with New.
type Packer struct {
	bitsPerItem int
}

// New creates a Packer for the given item width.
// Panics if bitsPerItem is outside [1, 64]; a zero or oversized width is a
// programmer error, not a runtime condition.
func New(bitsPerItem int) Packer {
	if bitsPerItem < 1 || bitsPerItem > MaxBits {
		panic(fmt.Sprintf("bitpack: bits per item must be in [1, %d], got %d", MaxBits, bitsPerItem))
	}
	return Packer{bitsPerItem: bitsPerItem}
}

// BitsPerItem returns the configured item width in bits.
func (p Packer) BitsPerItem() int {
	return p.bitsPerItem
}

// PackedLen returns the number of 64-bit blocks needed to hold n items.
func (p Packer) PackedLen(n int) int {
	return (n*p.bitsPerItem + 63) / 64
}

// capacity returns the number of whole items that fit in blocks many blocks.
func (p Packer) capacity(blocks int) int {
	return blocks * 64 / p.bitsPerItem
}

// mask returns the low-order bit mask for the configured width.
func (p Packer) mask() uint64 {
	if p.bitsPerItem == 64 {
		return ^uint64(0)
	}
	return (uint64(1) << p.bitsPerItem) - 1
}

// cropUint64 interprets the first ceil(width/8) bytes of item as a
// little-endian integer and masks it to the configured width. Bytes beyond
// the needed prefix are ignored; a short item reads as if zero-padded.
func (p Packer) cropUint64(item []byte) uint64 {
	var buf [8]byte
	n := (p.bitsPerItem + 7) / 8
	if n > len(item) {
		n = len(item)
	}
	copy(buf[:], item[:n])
	return binary.LittleEndian.Uint64(buf[:]) & p.mask()
}

// writeItem writes value v (already cropped) for item index i into packed.
// packed must be large enough; this is the single packing step shared by
// Pack and the fingerprint accumulator.
func (p Packer) writeItem(packed []uint64, i int, v uint64) {
	offset := i * p.bitsPerItem
	block := offset / 64
	shift := uint(offset % 64)
	packed[block] |= v << shift
	if int(shift)+p.bitsPerItem > 64 {
		packed[block+1] |= v >> (64 - shift)
	}
}

// readItem extracts item i from packed without bounds checking beyond what
// slice indexing enforces for the first block; bits past the end of packed
// read as zero. Callers that need strict bounds use Get.
func (p Packer) readItem(packed []uint64, i int) uint64 {
	offset := i * p.bitsPerItem
	block := offset / 64
	shift := uint(offset % 64)
	v := packed[block] >> shift
	if int(shift)+p.bitsPerItem > 64 && block+1 < len(packed) {
		v |= packed[block+1] << (64 - shift)
	}
	return v & p.mask()
}

// Pack crops every item to the configured width and packs the values
// sequentially into a fresh block sequence of exactly PackedLen(len(items))
// blocks.
func (p Packer) Pack(items [][]byte) []uint64 {
	packed := make([]uint64, p.PackedLen(len(items)))
	for i, item := range items {
		p.writeItem(packed, i, p.cropUint64(item))
	}
	return packed
}

// PackItem crops item and writes it at the given index of packed. This is
// the per-item step of Pack, exposed for incremental packers that grow their
// buffer between writes. packed must already span the item's bits
// (len(packed) >= PackedLen(index+1)) and the item's slot must be zero.
func (p Packer) PackItem(packed []uint64, index int, item []byte) {
	p.writeItem(packed, index, p.cropUint64(item))
}

// Get extracts the value of item index from packed. It returns an
// IndexOutOfBoundsError if the item's bits extend past the end of packed.
func (p Packer) Get(index int, packed []uint64) (uint64, error) {
	if index < 0 || (index+1)*p.bitsPerItem > len(packed)*64 {
		return 0, &IndexOutOfBoundsError{Index: index, Max: p.capacity(len(packed))}
	}
	return p.readItem(packed, index), nil
}

// GetRange extracts items [start, end) from packed and repacks them into a
// fresh, zero-based block sequence, equivalent to Pack applied to the raw
// values at those indices. An empty range yields an empty block sequence.
// Returns an InvalidRangeError if start > end, either bound is negative, or
// the range extends past the end of packed.
func (p Packer) GetRange(start, end int, packed []uint64) ([]uint64, error) {
	max := p.capacity(len(packed))
	if start < 0 || end < start || end*p.bitsPerItem > len(packed)*64 {
		return nil, &InvalidRangeError{Start: start, End: end, Max: max}
	}
	// Per-item extract and repack. The direct block-arithmetic form has
	// intricate boundary cases for widths that are not powers of two; this
	// form is correct by construction against Pack.
	out := make([]uint64, p.PackedLen(end-start))
	for i := start; i < end; i++ {
		p.writeItem(out, i-start, p.readItem(packed, i))
	}
	return out, nil
}

// Diff compares two packed block sequences and locates the first (lowest
// index) item whose packed bits differ. It returns nil if the sequences are
// identical, and a LengthMismatchError if they have different block counts —
// a length mismatch means different item counts and cannot be localized.
//
// The reported values are the full packed values at the diverging index from
// each sequence, so callers can show actual vs. expected.
func (p Packer) Diff(l, r []uint64) (*Diff, error) {
	if len(l) != len(r) {
		return nil, &LengthMismatchError{Expected: len(l), Actual: len(r)}
	}
	for b := range l {
		x := l[b] ^ r[b]
		if x == 0 {
			continue
		}
		bitOffset := b*64 + bits.TrailingZeros64(x)
		index := bitOffset / p.bitsPerItem
		return &Diff{
			Index: index,
			Left:  p.readItem(l, index),
			Right: p.readItem(r, index),
		}, nil
	}
	return nil, nil
}

// Diff reports the first diverging item between two packed sequences.
type Diff struct {
	// Index is the item index of the first difference.
	Index int

	// Left and Right are the packed values at Index in each sequence.
	Left  uint64
	Right uint64
}

// Crop truncates b to exactly enough bytes to hold the given number of bits,
// masking the unused high bits of the final byte to zero. A short input is
// zero-extended to the required length. Panics if bits is not positive;
// cropping to zero bits has no meaningful result.
func Crop(b []byte, bitCount int) []byte {
	if bitCount <= 0 {
		panic(fmt.Sprintf("bitpack: crop to %d bits", bitCount))
	}
	n := (bitCount + 7) / 8
	out := make([]byte, n)
	copy(out, b)
	if rem := bitCount % 8; rem != 0 {
		out[n-1] &= byte(1<<rem) - 1
	}
	return out
}
