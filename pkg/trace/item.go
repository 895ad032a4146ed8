// Package trace defines the recorded function-call items produced by
// instrumented execution, their canonical hashing, and the recorder that
// folds them into a Merkle commitment and fingerprint as they arrive.
package trace

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/rasterlabs/raster/pkg/commitment"
)

// ErrSerialization wraps canonical-encoding failures of trace items.
var ErrSerialization = fmt.Errorf("trace: serialization failed")

// encMode is the canonical CBOR encoder. Core-deterministic encoding
// guarantees byte-identical serialization of a given item across processes
// and runs, which item hashing depends on.
var encMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor encoder setup: %v", err))
	}
	return mode
}()

// decMode mirrors encMode for the wire codec's decode side.
var decMode = func() cbor.DecMode {
	mode, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor decoder setup: %v", err))
	}
	return mode
}()

// Param names one input of a recorded call.
type Param struct {
	Name string `cbor:"name"`
	Type string `cbor:"type"`
}

// Item is one recorded function call in execution order. Items are immutable
// once recorded; tampering with any field changes the item's hash and
// therefore every subsequent commitment root.
type Item struct {
	FnName     string  `cbor:"fn_name"`
	Desc       string  `cbor:"desc"`
	Inputs     []Param `cbor:"inputs"`
	InputData  []byte  `cbor:"input_data"`
	OutputType string  `cbor:"output_type"`
	OutputData []byte  `cbor:"output_data"`
}

// MarshalCanonical returns the item's canonical serialization, the exact
// bytes that are hashed for commitment.
func (i Item) MarshalCanonical() ([]byte, error) {
	data, err := encMode.Marshal(i)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

// CommitmentHash implements commitment.Hashable: SHA-256 of the canonical
// serialization.
func (i Item) CommitmentHash() (commitment.Hash, error) {
	data, err := i.MarshalCanonical()
	if err != nil {
		return commitment.Hash{}, err
	}
	return commitment.HashLeaf(data), nil
}

// RawItem is the generic form of a recorded call: just the input and output
// values of some serializable type, for callers that do not carry the full
// call metadata.
type RawItem[T any] struct {
	Input  T `cbor:"input"`
	Output T `cbor:"output"`
}

// CommitmentHash implements commitment.Hashable for the generic form.
func (r RawItem[T]) CommitmentHash() (commitment.Hash, error) {
	data, err := encMode.Marshal(r)
	if err != nil {
		return commitment.Hash{}, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return commitment.HashLeaf(data), nil
}

// Hashables converts a slice of items to the commitment layer's interface
// form.
func Hashables(items []Item) []commitment.Hashable {
	out := make([]commitment.Hashable, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
