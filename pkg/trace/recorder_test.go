package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasterlabs/raster/pkg/commitment"
	"github.com/rasterlabs/raster/pkg/fingerprint"
)

func TestRecorderMatchesBatchPipeline(t *testing.T) {
	items := []Item{sampleItem(1), sampleItem(2), sampleItem(3), sampleItem(4), sampleItem(5)}

	rec := NewRecorder(16)
	for _, item := range items {
		require.NoError(t, rec.Record(item))
	}
	recording := rec.Finish()

	// Batch pipeline: commit, then pack every root digest.
	batch, err := commitment.FromItems(Hashables(items), commitment.EmptyLeaf())
	require.NoError(t, err)
	rootBytes := make([][]byte, batch.Len())
	for i, root := range batch.Roots() {
		r := root
		rootBytes[i] = r[:]
	}
	want := fingerprint.Pack(16, rootBytes)

	assert.Equal(t, batch.Roots(), recording.Commitment.Roots())
	assert.Equal(t, want.Blocks(), recording.Fingerprint.Blocks())
	assert.Equal(t, len(items), recording.Fingerprint.Len())
	assert.Equal(t, items, recording.Items)
}

func TestRecorderFrontiers(t *testing.T) {
	items := []Item{sampleItem(1), sampleItem(2), sampleItem(3), sampleItem(4)}
	rec := NewRecorder(8)
	for _, item := range items {
		require.NoError(t, rec.Record(item))
	}
	recording := rec.Finish()

	// The frontier before item i holds i leaves after the seed, so its
	// position is exactly i.
	for i := range items {
		f := recording.FrontierBefore(i)
		require.NotNil(t, f, "index %d", i)
		assert.Equal(t, uint64(i), f.Position(), "index %d", i)
	}

	// Out-of-range indexes clamp to the last available frontier.
	last := recording.FrontierBefore(99)
	require.NotNil(t, last)
	assert.Equal(t, uint64(len(items)-1), last.Position())

	assert.Nil(t, recording.FrontierBefore(-1))
}

func TestRecorderFrontierResumesCommitment(t *testing.T) {
	items := []Item{sampleItem(1), sampleItem(2), sampleItem(3), sampleItem(4), sampleItem(5)}
	rec := NewRecorder(8)
	for _, item := range items {
		require.NoError(t, rec.Record(item))
	}
	recording := rec.Finish()

	// Replaying items [2..) on top of the frontier captured before item 2
	// must reproduce the recorded roots.
	replay, err := commitment.FrontierAt(Hashables(items), 2, commitment.EmptyLeaf())
	require.NoError(t, err)
	captured := recording.FrontierBefore(2)
	assert.Equal(t, replay.Root(), captured.Root())
}

func TestRecorderCurrentRoot(t *testing.T) {
	rec := NewRecorder(8)
	seedRoot := rec.CurrentRoot()
	require.NoError(t, rec.Record(sampleItem(1)))
	assert.NotEqual(t, seedRoot, rec.CurrentRoot())

	lastRoot := rec.CurrentRoot()
	recording := rec.Finish()
	require.Equal(t, 1, recording.Commitment.Len())
	root, err := recording.Commitment.Root(0)
	require.NoError(t, err)
	assert.Equal(t, lastRoot, root)
	assert.Equal(t, 1, recording.Fingerprint.Len())
}

func TestInstallSemantics(t *testing.T) {
	t.Cleanup(Uninstall)

	_, ok := Active()
	require.False(t, ok)

	rec := NewRecorder(8)
	require.NoError(t, Install(rec))

	got, ok := Active()
	require.True(t, ok)
	assert.Same(t, rec, got)

	require.ErrorIs(t, Install(NewRecorder(8)), ErrRecorderInstalled)

	Uninstall()
	_, ok = Active()
	assert.False(t, ok)
}

func TestEmptyRecording(t *testing.T) {
	recording := NewRecorder(8).Finish()
	assert.Empty(t, recording.Items)
	assert.Equal(t, 0, recording.Commitment.Len())
	assert.Equal(t, 0, recording.Fingerprint.Len())
	assert.Nil(t, recording.FrontierBefore(0))
}
