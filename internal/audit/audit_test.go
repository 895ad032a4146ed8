package audit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasterlabs/raster/pkg/bitpack"
	"github.com/rasterlabs/raster/pkg/commitment"
	"github.com/rasterlabs/raster/pkg/trace"
)

func auditItem(n int, output byte) trace.Item {
	return trace.Item{
		FnName:     fmt.Sprintf("tile_%d", n),
		Desc:       "test tile",
		Inputs:     []trace.Param{{Name: "x", Type: "u32"}},
		InputData:  []byte{byte(n), 0, 0, 0},
		OutputType: "u32",
		OutputData: []byte{output, 0, 0, 0},
	}
}

// fingerprintOf runs the recording pipeline and returns the packed blocks.
func fingerprintOf(t *testing.T, items []trace.Item, bitsPerItem int) []uint64 {
	t.Helper()
	rec := trace.NewRecorder(bitsPerItem)
	for _, item := range items {
		require.NoError(t, rec.Record(item))
	}
	return rec.Finish().Fingerprint.Blocks()
}

func honestTrace(n int) []trace.Item {
	items := make([]trace.Item, n)
	for i := range items {
		items[i] = auditItem(i, byte(i*2))
	}
	return items
}

func TestAuditMatch(t *testing.T) {
	items := honestTrace(5)
	expected := fingerprintOf(t, items, 8)

	a := New(DefaultWindowSize, nil)
	result, err := a.Audit(items, 8, expected)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Nil(t, result.Diff)
	assert.Empty(t, result.Window)
}

func TestAuditLocalizesTamperedItem(t *testing.T) {
	// Five items; item 2's output differs between the two runs. The packed
	// root digests diverge from item 2 on. At narrow widths a cropped root
	// digest can collide and push detection later, so this exercises
	// widths where the digest carries enough of the root to make the
	// divergence certain at index 2.
	for _, bitsPerItem := range []int{16, 32, 48, 64} {
		honest := honestTrace(5)
		expected := fingerprintOf(t, honest, bitsPerItem)

		tampered := honestTrace(5)
		tampered[2].OutputData = []byte{0xFF, 0xFF, 0xFF, 0xFF}

		a := New(DefaultWindowSize, nil)
		result, err := a.Audit(tampered, bitsPerItem, expected)
		require.NoError(t, err, "width %d", bitsPerItem)
		require.False(t, result.Success, "width %d", bitsPerItem)
		require.NotNil(t, result.Diff, "width %d", bitsPerItem)

		assert.Equal(t, 2, result.Diff.Index, "width %d", bitsPerItem)
		assert.NotEqual(t, result.Diff.Computed, result.Diff.Expected, "width %d", bitsPerItem)
		assert.Equal(t, bitsPerItem, result.Diff.BitsPerItem)
		assert.Equal(t, expected, result.Diff.Fingerprint)
	}
}

func TestAuditWindowBounds(t *testing.T) {
	honest := honestTrace(6)
	expected := fingerprintOf(t, honest, 64)

	tampered := honestTrace(6)
	tampered[3].OutputData = []byte{9, 9, 9, 9}

	a := New(2, nil)
	result, err := a.Audit(tampered, 64, expected)
	require.NoError(t, err)
	require.NotNil(t, result.Diff)
	require.Equal(t, 3, result.Diff.Index)

	// Window of 2 ending at the divergence: items 2 and 3.
	assert.Equal(t, 2, result.Diff.WindowStart)
	require.Len(t, result.Window, 2)
	assert.Equal(t, tampered[2], result.Window[0])
	assert.Equal(t, tampered[3], result.Window[1])

	// The attached frontier is positioned just before the window start:
	// seed plus two items.
	var f commitment.Frontier
	require.NoError(t, f.UnmarshalBinary(result.Diff.Frontier))
	assert.Equal(t, uint64(2), f.Position())
}

func TestAuditWindowClampsAtTraceStart(t *testing.T) {
	honest := honestTrace(4)
	expected := fingerprintOf(t, honest, 64)

	tampered := honestTrace(4)
	tampered[0].OutputData = []byte{8, 8, 8, 8}

	a := New(3, nil)
	result, err := a.Audit(tampered, 64, expected)
	require.NoError(t, err)
	require.NotNil(t, result.Diff)
	assert.Equal(t, 0, result.Diff.Index)
	assert.Equal(t, 0, result.Diff.WindowStart)
	require.Len(t, result.Window, 1)

	var f commitment.Frontier
	require.NoError(t, f.UnmarshalBinary(result.Diff.Frontier))
	assert.Equal(t, uint64(0), f.Position())
}

func TestAuditLengthMismatchIsHardFailure(t *testing.T) {
	honest := honestTrace(5)
	expected := fingerprintOf(t, honest, 64)

	// A trace with a different item count packs to a different block count;
	// that cannot be localized and must surface as an error, not a diff.
	short := honestTrace(3)
	a := New(DefaultWindowSize, nil)
	_, err := a.Audit(short, 64, expected)
	var lm *bitpack.LengthMismatchError
	require.ErrorAs(t, err, &lm)
}

func TestAuditConfigurableWindowSize(t *testing.T) {
	honest := honestTrace(8)
	expected := fingerprintOf(t, honest, 64)

	tampered := honestTrace(8)
	tampered[5].OutputData = []byte{1, 2, 3, 4}

	a := New(4, nil)
	result, err := a.Audit(tampered, 64, expected)
	require.NoError(t, err)
	require.NotNil(t, result.Diff)
	assert.Equal(t, 5, result.Diff.Index)
	assert.Equal(t, 2, result.Diff.WindowStart)
	assert.Len(t, result.Window, 4)
}

func TestNewRejectsBadWindowSize(t *testing.T) {
	assert.Panics(t, func() { New(0, nil) })
	assert.Panics(t, func() { New(-1, nil) })
}
