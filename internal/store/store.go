// Package store persists audit state between runs: the expected fingerprint
// of each recorded run and the frontier checkpoints a verifier needs to
// window a divergence without replaying history. Backed by goleveldb, keyed
// by run ID.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	dberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/rasterlabs/raster/pkg/commitment"
	"github.com/rasterlabs/raster/pkg/fingerprint"
)

// ErrNotFound is returned when a run or frontier checkpoint is absent.
var ErrNotFound = errors.New("store: not found")

// ErrBadRunID is returned for run IDs that would collide with the key
// scheme.
var ErrBadRunID = errors.New("store: run ID must be non-empty and contain no ':'")

// Key layout. Frontier checkpoint keys order by big-endian index so an
// iterator seek finds the latest checkpoint at or before a position.
const (
	runPrefix      = "run:"
	frontierPrefix = "frontier:"
)

// Store is the on-disk audit database. Safe for concurrent use; goleveldb
// serializes writes internally.
type Store struct {
	db  *leveldb.DB
	log *slog.Logger
}

// Open opens (creating if needed) the audit store at path.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func checkRunID(id string) error {
	if id == "" || strings.Contains(id, ":") {
		return fmt.Errorf("%w: %q", ErrBadRunID, id)
	}
	return nil
}

func runKey(id string) []byte {
	return []byte(runPrefix + id)
}

func frontierKey(id string, index uint64) []byte {
	key := make([]byte, 0, len(frontierPrefix)+len(id)+9)
	key = append(key, frontierPrefix...)
	key = append(key, id...)
	key = append(key, ':')
	return binary.BigEndian.AppendUint64(key, index)
}

// PutRun stores the expected fingerprint of a run.
// Record layout: bitsPerItem(4, LE) + itemCount(8, LE) + raw blocks.
func (s *Store) PutRun(id string, bitsPerItem, itemCount int, blocks []uint64) error {
	if err := checkRunID(id); err != nil {
		return err
	}
	record := make([]byte, 0, 12+len(blocks)*8)
	record = binary.LittleEndian.AppendUint32(record, uint32(bitsPerItem))
	record = binary.LittleEndian.AppendUint64(record, uint64(itemCount))
	record = append(record, fingerprint.EncodeBlocks(blocks)...)
	if err := s.db.Put(runKey(id), record, nil); err != nil {
		return fmt.Errorf("store: writing run %s: %w", id, err)
	}
	s.log.Debug("stored run fingerprint", "run", id, "items", itemCount, "blocks", len(blocks))
	return nil
}

// GetRun loads a run's expected fingerprint and its packing width.
func (s *Store) GetRun(id string) (bitsPerItem, itemCount int, blocks []uint64, err error) {
	if err := checkRunID(id); err != nil {
		return 0, 0, nil, err
	}
	record, err := s.db.Get(runKey(id), nil)
	if errors.Is(err, dberrors.ErrNotFound) {
		return 0, 0, nil, fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	if err != nil {
		return 0, 0, nil, fmt.Errorf("store: reading run %s: %w", id, err)
	}
	if len(record) < 12 {
		return 0, 0, nil, fmt.Errorf("store: run %s: record too short (%d bytes)", id, len(record))
	}
	bitsPerItem = int(binary.LittleEndian.Uint32(record[:4]))
	itemCount = int(binary.LittleEndian.Uint64(record[4:12]))
	blocks, err = fingerprint.DecodeBlocks(record[12:])
	if err != nil {
		return 0, 0, nil, fmt.Errorf("store: run %s: %w", id, err)
	}
	return bitsPerItem, itemCount, blocks, nil
}

// PutFrontier checkpoints the frontier as it stood before the item at index
// was appended.
func (s *Store) PutFrontier(id string, index uint64, f *commitment.Frontier) error {
	if err := checkRunID(id); err != nil {
		return err
	}
	data, err := f.MarshalBinary()
	if err != nil {
		return fmt.Errorf("store: encoding frontier %s/%d: %w", id, index, err)
	}
	if err := s.db.Put(frontierKey(id, index), data, nil); err != nil {
		return fmt.Errorf("store: writing frontier %s/%d: %w", id, index, err)
	}
	return nil
}

// FrontierBefore returns the latest checkpointed frontier at or before
// index, together with the index it was checkpointed at.
func (s *Store) FrontierBefore(id string, index uint64) (*commitment.Frontier, uint64, error) {
	if err := checkRunID(id); err != nil {
		return nil, 0, err
	}
	prefix := frontierKey(id, 0)[:len(frontierPrefix)+len(id)+1]
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	// Seek to the checkpoint at index; if it is absent or past the target,
	// step back to the previous one.
	found := iter.Seek(frontierKey(id, index))
	if found {
		if at := binary.BigEndian.Uint64(iter.Key()[len(prefix):]); at > index {
			found = iter.Prev()
		}
	} else {
		found = iter.Last()
	}
	if !found {
		return nil, 0, fmt.Errorf("%w: no frontier checkpoint for %s at or before %d", ErrNotFound, id, index)
	}
	at := binary.BigEndian.Uint64(iter.Key()[len(prefix):])
	var f commitment.Frontier
	if err := f.UnmarshalBinary(iter.Value()); err != nil {
		return nil, 0, fmt.Errorf("store: frontier %s/%d: %w", id, at, err)
	}
	if err := iter.Error(); err != nil {
		return nil, 0, fmt.Errorf("store: iterating frontiers for %s: %w", id, err)
	}
	return &f, at, nil
}

// ListRuns returns every stored run ID in lexicographic order.
func (s *Store) ListRuns() ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(runPrefix)), nil)
	defer iter.Release()

	var runs []string
	for iter.Next() {
		runs = append(runs, string(iter.Key()[len(runPrefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("store: listing runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run's fingerprint and all its frontier checkpoints.
func (s *Store) DeleteRun(id string) error {
	if err := checkRunID(id); err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	batch.Delete(runKey(id))

	prefix := frontierKey(id, 0)[:len(frontierPrefix)+len(id)+1]
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fmt.Errorf("store: collecting keys for %s: %w", id, err)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("store: deleting run %s: %w", id, err)
	}
	return nil
}
