package commitment

import (
	"errors"
	"fmt"
)

// ErrEmptyTrace is returned when a commitment is requested over zero items.
var ErrEmptyTrace = errors.New("commitment: empty trace")

// Hashable is anything that can be committed as a tree leaf. Implementations
// must produce a stable hash: the same value hashes identically across
// processes and runs.
type Hashable interface {
	CommitmentHash() (Hash, error)
}

// ExecutionCommitment is the sequence of tree roots produced while appending
// a trace, one root per item in append order. The seed leaf is not
// represented; roots start with the first real item.
type ExecutionCommitment struct {
	roots []Hash
}

// FromItems hashes every item, appends each hash to a fresh tree seeded with
// seed, and records the root after each append. It fails with ErrEmptyTrace
// on zero items and propagates item serialization errors.
func FromItems(items []Hashable, seed Hash) (*ExecutionCommitment, error) {
	if len(items) == 0 {
		return nil, ErrEmptyTrace
	}
	builder := NewBuilder(seed)
	for i, item := range items {
		if _, err := builder.Append(item); err != nil {
			return nil, fmt.Errorf("commitment: item %d: %w", i, err)
		}
	}
	return builder.Build(), nil
}

// FrontierAt replays only the first n items into a fresh tree seeded with
// seed and returns the resulting frontier. This is how a verifier resumes
// from a checkpoint without recomputing the full history. n of zero returns
// the seed-only frontier.
func FrontierAt(items []Hashable, n int, seed Hash) (*Frontier, error) {
	if n < 0 || n > len(items) {
		return nil, fmt.Errorf("commitment: frontier index %d out of range [0, %d]", n, len(items))
	}
	builder := NewBuilder(seed)
	for i := 0; i < n; i++ {
		if _, err := builder.Append(items[i]); err != nil {
			return nil, fmt.Errorf("commitment: item %d: %w", i, err)
		}
	}
	return builder.Frontier(), nil
}

// Roots returns one root per appended item, in order. The returned slice
// must not be modified.
func (c *ExecutionCommitment) Roots() []Hash {
	return c.roots
}

// Len returns the number of committed items.
func (c *ExecutionCommitment) Len() int {
	return len(c.roots)
}

// Root returns the root recorded after appending item index.
func (c *ExecutionCommitment) Root(index int) (Hash, error) {
	if index < 0 || index >= len(c.roots) {
		return Hash{}, fmt.Errorf("commitment: root index %d out of range [0, %d)", index, len(c.roots))
	}
	return c.roots[index], nil
}

// Builder constructs an ExecutionCommitment incrementally. Used append by
// append it produces byte-identical roots to FromItems over the same item
// list, which is what lets live tracing and after-the-fact verification
// agree.
//
// A Builder is single-writer; appends must arrive in one total order.
type Builder struct {
	frontier *Frontier
	roots    []Hash
}

// NewBuilder creates a builder over a fresh tree with seed as leaf zero.
// Seeding gives every commitment a deterministic non-empty starting
// frontier, so the all-empty root can never be mistaken for a committed
// trace. Use EmptyLeaf() as the canonical seed.
func NewBuilder(seed Hash) *Builder {
	return &Builder{frontier: NewFrontier(seed)}
}

// Append hashes item, appends the hash to the tree, records and returns the
// new root.
func (b *Builder) Append(item Hashable) (Hash, error) {
	leaf, err := item.CommitmentHash()
	if err != nil {
		return Hash{}, err
	}
	return b.AppendLeaf(leaf), nil
}

// AppendLeaf appends an already-hashed leaf, for callers that hash
// externally.
func (b *Builder) AppendLeaf(leaf Hash) Hash {
	b.frontier.Append(leaf)
	root := b.frontier.Root()
	b.roots = append(b.roots, root)
	return root
}

// CurrentRoot returns the root after the most recent append, or the
// seed-only root if nothing has been appended.
func (b *Builder) CurrentRoot() Hash {
	return b.frontier.Root()
}

// Len returns the number of items appended so far.
func (b *Builder) Len() int {
	return len(b.roots)
}

// Frontier returns an independent snapshot of the current frontier.
func (b *Builder) Frontier() *Frontier {
	return b.frontier.Clone()
}

// Build finalizes the builder into an ExecutionCommitment. The builder must
// not be appended to afterwards.
func (b *Builder) Build() *ExecutionCommitment {
	return &ExecutionCommitment{roots: b.roots}
}
