package commitment

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontierSerializationRoundTrip(t *testing.T) {
	frontier := NewFrontier(EmptyLeaf())
	for i := 0; i < 13; i++ {
		frontier.Append(sha256.Sum256([]byte{byte(i), 0x33}))

		data, err := frontier.MarshalBinary()
		require.NoError(t, err)

		var decoded Frontier
		require.NoError(t, decoded.UnmarshalBinary(data))
		assert.Equal(t, frontier.Position(), decoded.Position())
		assert.Equal(t, frontier.Leaf(), decoded.Leaf())
		assert.Equal(t, frontier.Ommers(), decoded.Ommers())
		assert.Equal(t, frontier.Root(), decoded.Root())
	}
}

func TestFrontierDecodedContinuesIdentically(t *testing.T) {
	original := NewFrontier(EmptyLeaf())
	for i := 0; i < 9; i++ {
		original.Append(sha256.Sum256([]byte{byte(i)}))
	}

	data, err := original.MarshalBinary()
	require.NoError(t, err)
	var restored Frontier
	require.NoError(t, restored.UnmarshalBinary(data))

	// Appending the same items to both must keep them in lockstep.
	for i := 9; i < 25; i++ {
		leaf := sha256.Sum256([]byte{byte(i)})
		original.Append(leaf)
		restored.Append(leaf)
		require.Equal(t, original.Root(), restored.Root(), "append %d", i)
	}
}

func TestFrontierUnmarshalRejectsMalformed(t *testing.T) {
	frontier := NewFrontier(EmptyLeaf())
	frontier.Append(sha256.Sum256([]byte("x")))
	data, err := frontier.MarshalBinary()
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "truncated header", data: data[:10]},
		{name: "truncated ommers", data: data[:len(data)-1]},
		{name: "trailing garbage", data: append(append([]byte(nil), data...), 0xFF)},
		{name: "bad version", data: append([]byte{0xEE}, data[1:]...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Frontier
			err := f.UnmarshalBinary(tt.data)
			require.ErrorIs(t, err, ErrInvalidFrontier)
		})
	}
}

func TestFrontierCloneIsIndependent(t *testing.T) {
	frontier := NewFrontier(EmptyLeaf())
	for i := 0; i < 6; i++ {
		frontier.Append(sha256.Sum256([]byte{byte(i)}))
	}
	snapshot := frontier.Clone()
	rootBefore := snapshot.Root()

	frontier.Append(sha256.Sum256([]byte("later")))
	assert.Equal(t, rootBefore, snapshot.Root())
	assert.NotEqual(t, frontier.Root(), snapshot.Root())
}

func TestHashCmp(t *testing.T) {
	a := HashFromBytes([]byte{1})
	b := HashFromBytes([]byte{2})
	assert.Equal(t, -1, a.Cmp(b))
	assert.Equal(t, 1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(a))
	assert.Len(t, a.String(), 64)
}
