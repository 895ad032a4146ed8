package commitment

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// ErrInvalidFrontier is returned when a serialized frontier cannot be
// decoded.
var ErrInvalidFrontier = fmt.Errorf("commitment: invalid frontier encoding")

// frontierFormatVersion is the current serialization format version.
// Version 1: version(1) + position(8) + leaf(32) + ommerCount(4) + ommers(32 each)
const frontierFormatVersion byte = 1

// Frontier is the minimal append-state of a non-empty tree: the position and
// value of the rightmost leaf, plus the ommers (hashes of the completed left
// subtrees) needed to extend the tree without replaying history.
//
// Ommers are ordered lowest level first; there is exactly one per set bit of
// the position.
type Frontier struct {
	position uint64
	leaf     Hash
	ommers   []Hash
}

// NewFrontier creates the frontier of a tree holding a single leaf at
// position zero.
func NewFrontier(leaf Hash) *Frontier {
	return &Frontier{leaf: leaf}
}

// Position returns the index of the rightmost appended leaf.
func (f *Frontier) Position() uint64 {
	return f.position
}

// Leaf returns the rightmost appended leaf.
func (f *Frontier) Leaf() Hash {
	return f.leaf
}

// Ommers returns the uncle hashes, lowest level first. The returned slice
// must not be modified.
func (f *Frontier) Ommers() []Hash {
	return f.ommers
}

// Append advances the frontier by one leaf.
//
// If the current leaf is a left child (even position) it simply becomes the
// new level-0 ommer. If it is a right child, it closes a run of complete
// subtrees: the trailing ones of the position say how many low ommers merge
// with it into a single higher-level ommer.
func (f *Frontier) Append(leaf Hash) {
	if f.position%2 == 0 {
		f.ommers = append([]Hash{f.leaf}, f.ommers...)
	} else {
		carry := f.leaf
		trailing := bits.TrailingZeros64(^f.position)
		for level := 0; level < trailing; level++ {
			carry = combine(uint8(level+1), f.ommers[level], carry)
		}
		rest := f.ommers[trailing:]
		f.ommers = append([]Hash{carry}, rest...)
	}
	f.position++
	f.leaf = leaf
}

// Root computes the current tree root by walking from the leaf to the top,
// combining with an ommer wherever the position has a set bit and with the
// canonical empty node everywhere else.
func (f *Frontier) Root() Hash {
	cur := f.leaf
	pos := f.position
	next := 0
	for level := 1; level <= TreeDepth; level++ {
		if pos&1 == 1 {
			cur = combine(uint8(level), f.ommers[next], cur)
			next++
		} else {
			cur = combine(uint8(level), cur, emptyNodes[level-1])
		}
		pos >>= 1
	}
	return cur
}

// Clone returns an independent copy of the frontier.
func (f *Frontier) Clone() *Frontier {
	return &Frontier{
		position: f.position,
		leaf:     f.leaf,
		ommers:   append([]Hash(nil), f.ommers...),
	}
}

// MarshalBinary serializes the frontier to a flat byte buffer for transport
// across process or proof boundaries.
func (f *Frontier) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, 1+8+HashSize+4+len(f.ommers)*HashSize)
	out = append(out, frontierFormatVersion)
	out = binary.LittleEndian.AppendUint64(out, f.position)
	out = append(out, f.leaf[:]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(f.ommers)))
	for _, ommer := range f.ommers {
		out = append(out, ommer[:]...)
	}
	return out, nil
}

// UnmarshalBinary decodes a frontier produced by MarshalBinary.
func (f *Frontier) UnmarshalBinary(data []byte) error {
	const header = 1 + 8 + HashSize + 4
	if len(data) < header {
		return fmt.Errorf("%w: %d bytes", ErrInvalidFrontier, len(data))
	}
	if data[0] != frontierFormatVersion {
		return fmt.Errorf("%w: unsupported format version %d", ErrInvalidFrontier, data[0])
	}
	position := binary.LittleEndian.Uint64(data[1:9])
	leaf := HashFromBytes(data[9 : 9+HashSize])
	count := int(binary.LittleEndian.Uint32(data[9+HashSize : header]))
	if count > TreeDepth || len(data) != header+count*HashSize {
		return fmt.Errorf("%w: %d ommers in %d bytes", ErrInvalidFrontier, count, len(data))
	}
	ommers := make([]Hash, count)
	for i := range ommers {
		start := header + i*HashSize
		ommers[i] = HashFromBytes(data[start : start+HashSize])
	}
	f.position = position
	f.leaf = leaf
	f.ommers = ommers
	return nil
}
