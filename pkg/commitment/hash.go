// Package commitment implements the append-only Merkle commitment over
// hashed trace items. The tree is a fixed-depth bridge tree: appends advance
// a compact frontier (rightmost leaf plus uncle hashes) instead of storing
// the whole tree, and every append yields a new root.
package commitment

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// TreeDepth is the number of combine levels in the tree. With depth 32 the
// tree holds up to 2^32 leaves; empty subtrees are padded with the
// precomputed empty-node table.
const TreeDepth = 32

// HashSize is the byte length of tree nodes and leaves.
const HashSize = 32

// Hash is a tree node: the SHA-256 of a leaf's canonical serialization, or
// of an internal combine.
type Hash [HashSize]byte

// HashFromBytes copies b into a Hash. Short input is zero-padded, long input
// truncated; callers normally pass exactly HashSize bytes.
func HashFromBytes(b []byte) Hash {
	var h Hash
	copy(h[:], b)
	return h
}

// Cmp orders hashes lexicographically by byte value. The ordering is tree
// bookkeeping only, not security-relevant.
func (h Hash) Cmp(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// String renders the hash as lowercase hex.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// combine hashes two sibling nodes into their parent:
// SHA256(level || left || right). The level byte domain-separates the tree
// levels so a subtree collision cannot be replayed at a different height.
func combine(level uint8, left, right Hash) Hash {
	d := sha256.New()
	d.Write([]byte{level})
	d.Write(left[:])
	d.Write(right[:])
	return HashFromBytes(d.Sum(nil))
}

// HashLeaf hashes arbitrary serialized leaf content into a leaf node.
func HashLeaf(serialized []byte) Hash {
	return sha256.Sum256(serialized)
}
