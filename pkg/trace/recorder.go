package trace

import (
	"errors"
	"sync"

	"github.com/rasterlabs/raster/pkg/commitment"
	"github.com/rasterlabs/raster/pkg/fingerprint"
)

// ErrRecorderInstalled is returned when a process-wide recorder is installed
// twice without an intervening Uninstall.
var ErrRecorderInstalled = errors.New("trace: recorder already installed")

// Recorder folds trace items into the Merkle commitment and the fingerprint
// accumulator as they arrive. It captures the pre-append frontier of every
// item so a verifier can later re-prove from any window start without
// replaying history.
//
// Instrumented code should receive its Recorder explicitly; the process-wide
// handle below exists only for subprocess-style integration where a single
// ambient sink is unavoidable.
//
// A Recorder serializes its own appends with an internal mutex, but callers
// producing items from multiple goroutines must still impose one total
// order: append order is commitment order.
type Recorder struct {
	mu        sync.Mutex
	builder   *commitment.Builder
	acc       *fingerprint.Accumulator
	items     []Item
	frontiers []*commitment.Frontier
}

// NewRecorder creates a recorder packing root digests at the given width,
// over a tree seeded with the canonical empty leaf.
func NewRecorder(bitsPerItem int) *Recorder {
	return NewSeededRecorder(bitsPerItem, commitment.EmptyLeaf())
}

// NewSeededRecorder creates a recorder over a tree seeded with seed.
func NewSeededRecorder(bitsPerItem int, seed commitment.Hash) *Recorder {
	return &Recorder{
		builder: commitment.NewBuilder(seed),
		acc:     fingerprint.NewAccumulator(bitsPerItem),
	}
}

// Record hashes item, appends it to the tree, and pushes the new root's
// digest bits into the fingerprint accumulator. The frontier as it stood
// before the append is retained for fraud windowing.
func (r *Recorder) Record(item Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pre := r.builder.Frontier()
	root, err := r.builder.Append(item)
	if err != nil {
		return err
	}
	r.frontiers = append(r.frontiers, pre)
	r.acc.Append(root[:])
	r.items = append(r.items, item)
	return nil
}

// Len returns the number of items recorded so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// CurrentRoot returns the commitment root after the most recent record.
func (r *Recorder) CurrentRoot() commitment.Hash {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.builder.CurrentRoot()
}

// Finish consumes the recorder and returns the completed recording. The
// recorder must not be used afterwards.
func (r *Recorder) Finish() *Recording {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Recording{
		Items:       r.items,
		Commitment:  r.builder.Build(),
		Fingerprint: r.acc.Fingerprint(),
		frontiers:   r.frontiers,
	}
}

// Recording is the finalized output of one recorded run: the items in
// execution order, the per-item commitment roots, and the packed
// fingerprint.
type Recording struct {
	Items       []Item
	Commitment  *commitment.ExecutionCommitment
	Fingerprint fingerprint.Fingerprint

	frontiers []*commitment.Frontier
}

// FrontierBefore returns the frontier as it stood before the item at index
// was appended. If index is past the recorded frontiers, the last available
// frontier is returned; nil if nothing was recorded.
func (rec *Recording) FrontierBefore(index int) *commitment.Frontier {
	if len(rec.frontiers) == 0 || index < 0 {
		return nil
	}
	if index >= len(rec.frontiers) {
		index = len(rec.frontiers) - 1
	}
	return rec.frontiers[index]
}

// Process-wide recorder handle.
//
// One-time-init semantics: Install succeeds exactly once until Uninstall;
// there is no lazy initialization and no implicit default. Code that can
// take a *Recorder parameter should, and should not touch this handle.
var (
	activeMu       sync.Mutex
	activeRecorder *Recorder
)

// Install sets the process-wide recorder. Returns ErrRecorderInstalled if
// one is already installed.
func Install(r *Recorder) error {
	activeMu.Lock()
	defer activeMu.Unlock()
	if activeRecorder != nil {
		return ErrRecorderInstalled
	}
	activeRecorder = r
	return nil
}

// Active returns the installed recorder, if any.
func Active() (*Recorder, bool) {
	activeMu.Lock()
	defer activeMu.Unlock()
	return activeRecorder, activeRecorder != nil
}

// Uninstall clears the process-wide recorder.
func Uninstall() {
	activeMu.Lock()
	defer activeMu.Unlock()
	activeRecorder = nil
}
