// Persistence for fingerprint files.
//
// The on-disk format is a raw sequence of little-endian 64-bit blocks with
// no header: the item width is deliberately not self-describing and must be
// agreed out-of-band between recorder and verifier. Writes are atomic: data
// goes to a temp file in the same directory, is synced, then renamed over
// the target path.
package fingerprint

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// ErrMisalignedFile is returned when a fingerprint file's size is not a
// whole number of 64-bit blocks.
var ErrMisalignedFile = fmt.Errorf("fingerprint: file size is not a multiple of 8 bytes")

// EncodeBlocks serializes packed blocks to the raw little-endian format.
func EncodeBlocks(blocks []uint64) []byte {
	out := make([]byte, 0, len(blocks)*8)
	for _, b := range blocks {
		out = binary.LittleEndian.AppendUint64(out, b)
	}
	return out
}

// DecodeBlocks parses the raw little-endian format back into blocks.
// Returns ErrMisalignedFile if the data is not block-aligned.
func DecodeBlocks(data []byte) ([]uint64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMisalignedFile, len(data))
	}
	blocks := make([]uint64, len(data)/8)
	for i := range blocks {
		blocks[i] = binary.LittleEndian.Uint64(data[i*8:])
	}
	return blocks, nil
}

// Save writes the fingerprint's blocks to path using an atomic write:
// write to a temp file in the same directory, sync, then rename. Parent
// directories are created as needed.
func Save(f Fingerprint, path string) error {
	return SaveBlocks(f.Blocks(), path)
}

// SaveBlocks writes a raw block sequence to path atomically.
func SaveBlocks(blocks []uint64, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := file.Write(EncodeBlocks(blocks)); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write blocks: %w", err)
	}

	// Sync before rename so a crash cannot leave a truncated target.
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// LoadBlocks reads a raw block sequence from path. A malformed (misaligned)
// file is a hard error; there is no sensible partial recovery.
func LoadBlocks(path string) ([]uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return DecodeBlocks(data)
}
