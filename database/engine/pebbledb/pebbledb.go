// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pebbledb implements engine.Engine on Pebble.
package pebbledb

import (
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/btcsuite/txpackd/database/engine"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
)

var (
	ErrDbClosed         = errors.New("pebbledb: closed")
	ErrTxClosed         = errors.New("pebbledb: transaction already closed")
	ErrSnapshotReleased = errors.New("pebbledb: snapshot released")
)

const (
	// DefaultCache is the block cache size in MiB.
	DefaultCache   = 64
	DefaultHandles = 16
)

// NewDB opens the database at dbPath, creating it when missing.  When
// mustCreate is set an existing database is an error.  Non-positive cache and
// handles select the defaults.
func NewDB(dbPath string, mustCreate bool, cache, handles int) (engine.Engine, error) {
	if cache <= 0 {
		cache = DefaultCache
	}
	if handles <= 0 {
		handles = DefaultHandles
	}

	levels := make([]pebble.LevelOptions, 7)
	for i := range levels {
		levels[i] = pebble.LevelOptions{
			TargetFileSize: int64(2<<20) << i,
			FilterPolicy:   bloom.FilterPolicy(10),
		}
	}
	opts := &pebble.Options{
		Cache:                    pebble.NewCache(int64(cache) << 20),
		ErrorIfExists:            mustCreate,
		MaxOpenFiles:             handles,
		MaxConcurrentCompactions: runtime.NumCPU,
		Levels:                   levels,
	}
	opts.Experimental.ReadSamplingMultiplier = -1

	pdb, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, err
	}
	return &DB{DB: pdb}, nil
}

type DB struct {
	*pebble.DB

	closed atomic.Bool
}

func (d *DB) Transaction() (engine.Transaction, error) {
	if d.closed.Load() {
		return nil, ErrDbClosed
	}
	return &Transaction{Batch: d.DB.NewBatch()}, nil
}

func (d *DB) Snapshot() (engine.Snapshot, error) {
	if d.closed.Load() {
		return nil, ErrDbClosed
	}
	return &Snapshot{Snapshot: d.DB.NewSnapshot()}, nil
}

func (d *DB) Close() error {
	if d.closed.Swap(true) {
		return ErrDbClosed
	}
	return d.DB.Close()
}

// Transaction adapts a pebble batch.  Writes are buffered and applied with a
// synced commit.
type Transaction struct {
	*pebble.Batch
	done bool
}

func (t *Transaction) Put(key, value []byte) error {
	if t.done {
		return ErrTxClosed
	}
	return t.Batch.Set(key, value, pebble.NoSync)
}

func (t *Transaction) Delete(key []byte) error {
	if t.done {
		return ErrTxClosed
	}
	return t.Batch.Delete(key, pebble.NoSync)
}

func (t *Transaction) Commit() error {
	if t.done {
		return ErrTxClosed
	}
	t.done = true
	err := t.Batch.Commit(pebble.Sync)
	t.Batch.Close()
	return err
}

func (t *Transaction) Discard() {
	if !t.done {
		t.done = true
		t.Batch.Close()
	}
}

type Snapshot struct {
	*pebble.Snapshot
	released bool
}

func (s *Snapshot) Has(key []byte) (bool, error) {
	_, err := s.Get(key)
	switch {
	case errors.Is(err, pebble.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Get returns a copy of the stored value.
func (s *Snapshot) Get(key []byte) ([]byte, error) {
	if s.released {
		return nil, ErrSnapshotReleased
	}

	v, closer, err := s.Snapshot.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return append([]byte(nil), v...), nil
}

func (s *Snapshot) Release() {
	if !s.released {
		s.released = true
		s.Snapshot.Close()
	}
}

// NewIterator returns nil once the snapshot is released.
func (s *Snapshot) NewIterator(r *engine.Range) engine.Iterator {
	if s.released {
		return nil
	}

	iter, err := s.Snapshot.NewIter(&pebble.IterOptions{
		LowerBound: r.Start,
		UpperBound: r.Limit,
	})
	if err != nil {
		return &Iterator{err: err, released: true}
	}
	// Park before the first key so the first Next lands on it.
	iter.SeekLT(r.Start)
	return &Iterator{Iterator: iter}
}
