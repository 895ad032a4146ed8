// Package audit compares a recorded trace's fingerprint against a stored
// expected fingerprint, localizes the first diverging item bit-exactly, and
// extracts the bounded fraud window handed to the replay-proving pipeline.
package audit

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rasterlabs/raster/pkg/trace"
)

// DefaultWindowSize is the default number of trace items in a fraud window.
// The window size is policy, not structure; configure it per deployment.
const DefaultWindowSize = 2

// ErrInvalidWindow is returned when the frontier at the fraud-window start
// cannot be reconstructed, which leaves the window unprovable.
var ErrInvalidWindow = errors.New("audit: cannot reconstruct frontier for fraud window")

// Diff describes a detected divergence: where it is, the actual and expected
// packed values, and everything a prover needs to re-prove the window.
type Diff struct {
	// Index is the first trace item whose packed digest differs.
	Index int

	// Computed and Expected are the packed values at Index from the
	// replayed and stored fingerprints.
	Computed uint64
	Expected uint64

	// Frontier is the serialized tree frontier as it stood before the
	// window's first item was appended.
	Frontier []byte

	// BitsPerItem is the packing width both fingerprints use.
	BitsPerItem int

	// Fingerprint is the full expected packed block sequence, carried so
	// the prover can re-check the window against it.
	Fingerprint []uint64

	// WindowStart is the index of the first item in the fraud window.
	WindowStart int
}

// Result is the outcome of one audit. A mismatch is a successful detection,
// not an error: Success is false and Diff carries the localization.
type Result struct {
	Success bool
	Diff    *Diff

	// Window is the bounded slice of trace items ending at the divergence,
	// empty on success.
	Window []trace.Item
}

// Auditor verifies recordings against stored fingerprints.
type Auditor struct {
	windowSize int
	log        *slog.Logger
}

// New creates an auditor with the given fraud-window size in items.
// Panics if windowSize is not positive.
func New(windowSize int, log *slog.Logger) *Auditor {
	if windowSize < 1 {
		panic(fmt.Sprintf("audit: window size must be positive, got %d", windowSize))
	}
	if log == nil {
		log = slog.Default()
	}
	return &Auditor{windowSize: windowSize, log: log}
}

// Verify compares a recording's fingerprint against the expected packed
// blocks. A block-count mismatch means the traces have different item counts
// and cannot be localized; it is returned as a hard error, never silently
// truncated or padded.
func (a *Auditor) Verify(rec *trace.Recording, expected []uint64) (*Result, error) {
	d, err := rec.Fingerprint.Diff(expected)
	if err != nil {
		a.log.Error("audit aborted", "reason", err)
		return nil, err
	}
	if d == nil {
		a.log.Info("audit complete", "items", len(rec.Items), "success", true)
		return &Result{Success: true}, nil
	}

	windowStart := d.Index - (a.windowSize - 1)
	if windowStart < 0 {
		windowStart = 0
	}
	windowEnd := d.Index
	if last := len(rec.Items) - 1; windowEnd > last {
		windowEnd = last
	}
	var window []trace.Item
	if windowStart <= windowEnd {
		window = rec.Items[windowStart : windowEnd+1]
	}

	frontier := rec.FrontierBefore(windowStart)
	if frontier == nil {
		return nil, fmt.Errorf("%w: start %d", ErrInvalidWindow, windowStart)
	}
	frontierBytes, err := frontier.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}

	a.log.Warn("audit detected divergence",
		"index", d.Index,
		"computed", d.Left,
		"expected", d.Right,
		"window_start", windowStart,
		"window_items", len(window),
	)
	return &Result{
		Diff: &Diff{
			Index:       d.Index,
			Computed:    d.Left,
			Expected:    d.Right,
			Frontier:    frontierBytes,
			BitsPerItem: rec.Fingerprint.BitsPerItem(),
			Fingerprint: expected,
			WindowStart: windowStart,
		},
		Window: window,
	}, nil
}

// Audit replays a candidate trace through the full recording pipeline and
// verifies the resulting fingerprint against the expected blocks.
func (a *Auditor) Audit(items []trace.Item, bitsPerItem int, expected []uint64) (*Result, error) {
	rec := trace.NewRecorder(bitsPerItem)
	for i, item := range items {
		if err := rec.Record(item); err != nil {
			return nil, fmt.Errorf("audit: recording item %d: %w", i, err)
		}
	}
	return a.Verify(rec.Finish(), expected)
}
