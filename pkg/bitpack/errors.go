// Package bitpack packs fixed-width integer values into dense sequences of
// 64-bit blocks.
//
// This file defines the error types for the packer. All errors carry the
// offending indices so callers can report exact failure positions, and all
// can be matched with errors.As().
package bitpack

import "fmt"

// IndexOutOfBoundsError is returned when a requested item index does not fit
// inside the packed block sequence.
type IndexOutOfBoundsError struct {
	// Index is the requested item index.
	Index int

	// Max is the number of whole items the packed sequence can hold.
	Max int
}

func (e *IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("bitpack: index %d out of bounds (max %d)", e.Index, e.Max)
}

// InvalidRangeError is returned when a requested item range is malformed or
// extends past the packed block sequence.
type InvalidRangeError struct {
	Start int
	End   int

	// Max is the number of whole items the packed sequence can hold.
	Max int
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("bitpack: invalid range [%d, %d) (max %d)", e.Start, e.End, e.Max)
}

// LengthMismatchError is returned when two packed block sequences that must
// be compared have different lengths. A length mismatch cannot be localized
// to a single item, so it is reported as its own condition rather than as a
// bit difference.
type LengthMismatchError struct {
	Expected int
	Actual   int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("bitpack: length mismatch: expected %d blocks, got %d", e.Expected, e.Actual)
}
