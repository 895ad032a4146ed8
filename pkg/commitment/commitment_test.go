package commitment

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testItem is a trivial Hashable whose hash is SHA-256 of its payload.
type testItem struct {
	payload []byte
	fail    bool
}

func (i testItem) CommitmentHash() (Hash, error) {
	if i.fail {
		return Hash{}, errors.New("hash failure")
	}
	return sha256.Sum256(i.payload), nil
}

func makeItems(n int) []Hashable {
	items := make([]Hashable, n)
	for i := range items {
		items[i] = testItem{payload: []byte(fmt.Sprintf("tile-call-%d", i))}
	}
	return items
}

// referenceRoot computes the depth-32 tree root over the given leaves by
// materializing every level, padding missing right siblings with the
// canonical empty node of the child level. It is deliberately naive; the
// frontier implementation must agree with it.
func referenceRoot(leaves []Hash) Hash {
	level := append([]Hash(nil), leaves...)
	for l := 1; l <= TreeDepth; l++ {
		next := make([]Hash, (len(level)+1)/2)
		for i := range next {
			left := level[2*i]
			right := emptyNodes[l-1]
			if 2*i+1 < len(level) {
				right = level[2*i+1]
			}
			next[i] = combine(uint8(l), left, right)
		}
		level = next
	}
	return level[0]
}

func TestEmptyNodeRecurrence(t *testing.T) {
	require.Equal(t, Hash{}, EmptyLeaf())
	for level := 1; level < TreeDepth; level++ {
		want := combine(uint8(level), EmptyNode(level-1), EmptyNode(level-1))
		require.Equal(t, want, EmptyNode(level), "level %d", level)
	}
}

func TestFrontierRootMatchesReference(t *testing.T) {
	leaves := make([]Hash, 0, 40)
	frontier := NewFrontier(EmptyLeaf())
	leaves = append(leaves, EmptyLeaf())
	require.Equal(t, referenceRoot(leaves), frontier.Root(), "seed only")

	for i := 0; i < 39; i++ {
		leaf := sha256.Sum256([]byte{byte(i), 0xA7})
		frontier.Append(leaf)
		leaves = append(leaves, leaf)
		require.Equal(t, referenceRoot(leaves), frontier.Root(), "after %d appends", i+1)
	}
}

func TestFrontierOmmerCount(t *testing.T) {
	frontier := NewFrontier(EmptyLeaf())
	for i := 0; i < 70; i++ {
		frontier.Append(sha256.Sum256([]byte{byte(i)}))
		// One ommer per set bit of the position.
		popcount := 0
		for p := frontier.Position(); p != 0; p >>= 1 {
			popcount += int(p & 1)
		}
		require.Len(t, frontier.Ommers(), popcount, "position %d", frontier.Position())
	}
}

func TestCommitmentDeterminism(t *testing.T) {
	items := makeItems(17)
	a, err := FromItems(items, EmptyLeaf())
	require.NoError(t, err)
	b, err := FromItems(items, EmptyLeaf())
	require.NoError(t, err)
	assert.Equal(t, a.Roots(), b.Roots())
}

func TestCommitmentMutationAffectsSuffixOnly(t *testing.T) {
	items := makeItems(12)
	base, err := FromItems(items, EmptyLeaf())
	require.NoError(t, err)

	mutated := append([]Hashable(nil), items...)
	mutated[5] = testItem{payload: []byte("tampered")}
	changed, err := FromItems(mutated, EmptyLeaf())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.Equal(t, base.Roots()[i], changed.Roots()[i], "root %d must be unchanged", i)
	}
	for i := 5; i < 12; i++ {
		assert.NotEqual(t, base.Roots()[i], changed.Roots()[i], "root %d must change", i)
	}
}

func TestBuilderMatchesBatch(t *testing.T) {
	items := makeItems(23)
	batch, err := FromItems(items, EmptyLeaf())
	require.NoError(t, err)

	builder := NewBuilder(EmptyLeaf())
	for i, item := range items {
		root, err := builder.Append(item)
		require.NoError(t, err)
		assert.Equal(t, batch.Roots()[i], root, "root %d", i)
		assert.Equal(t, root, builder.CurrentRoot())
	}
	incremental := builder.Build()
	assert.Equal(t, batch.Roots(), incremental.Roots())
}

func TestFromItemsEmptyTrace(t *testing.T) {
	_, err := FromItems(nil, EmptyLeaf())
	require.ErrorIs(t, err, ErrEmptyTrace)
}

func TestFromItemsPropagatesHashError(t *testing.T) {
	items := makeItems(4)
	items[2] = testItem{fail: true}
	_, err := FromItems(items, EmptyLeaf())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 2")
}

func TestFrontierAtResumesCleanly(t *testing.T) {
	items := makeItems(20)
	full, err := FromItems(items, EmptyLeaf())
	require.NoError(t, err)

	for _, n := range []int{0, 1, 7, 19, 20} {
		frontier, err := FrontierAt(items, n, EmptyLeaf())
		require.NoError(t, err)
		assert.Equal(t, uint64(n), frontier.Position(), "n=%d", n)

		// Continuing from the checkpointed frontier reproduces the
		// remaining roots exactly.
		resumed := &Builder{frontier: frontier}
		for i := n; i < len(items); i++ {
			root, err := resumed.Append(items[i])
			require.NoError(t, err)
			assert.Equal(t, full.Roots()[i], root, "n=%d root %d", n, i)
		}
	}

	_, err = FrontierAt(items, 21, EmptyLeaf())
	require.Error(t, err)
	_, err = FrontierAt(items, -1, EmptyLeaf())
	require.Error(t, err)
}

func TestRootIndexBounds(t *testing.T) {
	c, err := FromItems(makeItems(3), EmptyLeaf())
	require.NoError(t, err)

	root, err := c.Root(2)
	require.NoError(t, err)
	assert.Equal(t, c.Roots()[2], root)

	_, err = c.Root(3)
	require.Error(t, err)
	_, err = c.Root(-1)
	require.Error(t, err)
}

func TestSeedDistinguishesCommitments(t *testing.T) {
	items := makeItems(5)
	a, err := FromItems(items, EmptyLeaf())
	require.NoError(t, err)
	b, err := FromItems(items, sha256.Sum256([]byte("other seed")))
	require.NoError(t, err)
	assert.NotEqual(t, a.Roots()[0], b.Roots()[0])
}
