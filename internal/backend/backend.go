// Package backend executes and verifies tile calls. The backend set is
// closed — native execution and an external zkVM — and is modeled as a
// tagged variant with exhaustive switching rather than interface dispatch:
// the two differ meaningfully in error modes (native cannot prove), and a
// tag makes that impossible to paper over with a downcast.
package backend

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/rasterlabs/raster/internal/registry"
	"github.com/rasterlabs/raster/pkg/trace"
)

// Kind tags the backend variant.
type Kind int

const (
	// Native runs tile handlers in-process. Fast, deterministic, and
	// unprovable: its receipts attest integrity, not execution proof.
	Native Kind = iota

	// ZkVM delegates to an external proving engine. Its internals are a
	// black box behind the Engine hooks.
	ZkVM
)

func (k Kind) String() string {
	switch k {
	case Native:
		return "native"
	case ZkVM:
		return "zkvm"
	default:
		return fmt.Sprintf("backend.Kind(%d)", int(k))
	}
}

// ErrProofUnsupported is returned when a proving operation is requested
// from the native backend.
var ErrProofUnsupported = errors.New("backend: native backend cannot prove")

// ErrUnknownTile is returned when compiling a tile that is not registered.
var ErrUnknownTile = errors.New("backend: unknown tile")

// ErrKindMismatch is returned when an artifact or receipt from one backend
// kind is handed to another.
var ErrKindMismatch = errors.New("backend: artifact/receipt kind mismatch")

// ErrReceiptInvalid is returned when receipt verification fails.
var ErrReceiptInvalid = errors.New("backend: receipt verification failed")

// Artifact is a compiled tile, tagged by the backend that produced it.
// The payload per kind is a struct field, not a boxed any: no runtime type
// inspection is ever needed to get it back.
type Artifact struct {
	Kind Kind
	Tile string

	// handler is the resolved native handler (Native only).
	handler registry.Handler

	// Image is the compiled program image (ZkVM only).
	Image []byte
}

// Receipt is the evidence of one execution. For native runs the seal is a
// MiMC digest over the journal; for zkVM runs it is the opaque proof bytes
// returned by the engine.
type Receipt struct {
	Kind    Kind
	Tile    string
	Journal []byte
	Seal    []byte
}

// Engine is the hook set for the external zkVM. All fields are required;
// proving internals stay behind this boundary.
type Engine struct {
	Compile func(tile string) (image []byte, err error)
	Execute func(image, input []byte) (output []byte, receipt *Receipt, err error)
	Verify  func(receipt *Receipt) error
	Prove   func(window []trace.Item, frontier []byte) (*Receipt, error)
}

// Backend is the tagged union over the two execution variants.
type Backend struct {
	kind   Kind
	reg    *registry.Registry
	engine Engine
}

// NewNative creates a native backend over the given tile registry.
func NewNative(reg *registry.Registry) *Backend {
	if reg == nil {
		panic("backend: nil registry")
	}
	return &Backend{kind: Native, reg: reg}
}

// NewZkVM creates a zkVM backend over the given engine hooks.
// Panics if any hook is missing; a partial engine is a wiring bug.
func NewZkVM(engine Engine) *Backend {
	if engine.Compile == nil || engine.Execute == nil || engine.Verify == nil || engine.Prove == nil {
		panic("backend: incomplete zkVM engine")
	}
	return &Backend{kind: ZkVM, engine: engine}
}

// Kind returns the backend variant tag.
func (b *Backend) Kind() Kind {
	return b.kind
}

// Compile resolves a tile into an executable artifact.
func (b *Backend) Compile(tile string) (*Artifact, error) {
	switch b.kind {
	case Native:
		h, ok := b.reg.Lookup(tile)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTile, tile)
		}
		return &Artifact{Kind: Native, Tile: tile, handler: h}, nil
	case ZkVM:
		image, err := b.engine.Compile(tile)
		if err != nil {
			return nil, fmt.Errorf("backend: zkvm compile %s: %w", tile, err)
		}
		return &Artifact{Kind: ZkVM, Tile: tile, Image: image}, nil
	default:
		panic(fmt.Sprintf("backend: unhandled kind %v", b.kind))
	}
}

// Execute runs a compiled artifact on input, returning the output and an
// execution receipt.
func (b *Backend) Execute(a *Artifact, input []byte) ([]byte, *Receipt, error) {
	if a.Kind != b.kind {
		return nil, nil, fmt.Errorf("%w: %v artifact on %v backend", ErrKindMismatch, a.Kind, b.kind)
	}
	switch b.kind {
	case Native:
		output, err := a.handler(input)
		if err != nil {
			return nil, nil, fmt.Errorf("backend: tile %s: %w", a.Tile, err)
		}
		journal := journalOf(a.Tile, input, output)
		return output, &Receipt{
			Kind:    Native,
			Tile:    a.Tile,
			Journal: journal,
			Seal:    journalDigest(journal),
		}, nil
	case ZkVM:
		output, receipt, err := b.engine.Execute(a.Image, input)
		if err != nil {
			return nil, nil, fmt.Errorf("backend: zkvm execute %s: %w", a.Tile, err)
		}
		return output, receipt, nil
	default:
		panic(fmt.Sprintf("backend: unhandled kind %v", b.kind))
	}
}

// VerifyReceipt checks a receipt produced by this backend kind. A native
// receipt verifies by recomputing its journal digest — an integrity check
// only, since native execution proves nothing. A zkVM receipt is verified
// by the engine.
func (b *Backend) VerifyReceipt(r *Receipt) error {
	if r.Kind != b.kind {
		return fmt.Errorf("%w: %v receipt on %v backend", ErrKindMismatch, r.Kind, b.kind)
	}
	switch b.kind {
	case Native:
		if !bytes.Equal(r.Seal, journalDigest(r.Journal)) {
			return fmt.Errorf("%w: journal digest mismatch for %s", ErrReceiptInvalid, r.Tile)
		}
		return nil
	case ZkVM:
		if err := b.engine.Verify(r); err != nil {
			return fmt.Errorf("%w: %v", ErrReceiptInvalid, err)
		}
		return nil
	default:
		panic(fmt.Sprintf("backend: unhandled kind %v", b.kind))
	}
}

// ProveWindow hands a fraud window and its frontier to the proving
// pipeline. Only the zkVM backend can prove; the native backend fails with
// ErrProofUnsupported.
func (b *Backend) ProveWindow(window []trace.Item, frontier []byte) (*Receipt, error) {
	switch b.kind {
	case Native:
		return nil, ErrProofUnsupported
	case ZkVM:
		receipt, err := b.engine.Prove(window, frontier)
		if err != nil {
			return nil, fmt.Errorf("backend: zkvm prove: %w", err)
		}
		return receipt, nil
	default:
		panic(fmt.Sprintf("backend: unhandled kind %v", b.kind))
	}
}

// journalOf assembles the public journal of a native execution.
func journalOf(tile string, input, output []byte) []byte {
	journal := make([]byte, 0, len(tile)+1+len(input)+len(output))
	journal = append(journal, tile...)
	journal = append(journal, 0)
	journal = append(journal, input...)
	journal = append(journal, output...)
	return journal
}
