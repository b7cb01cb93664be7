// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package engine defines the minimal key/value storage contract the
// transaction stores are written against.  Backends live in the leveldb and
// pebbledb subpackages and are selected at startup.
package engine

import "errors"

var (
	// ErrIterReleased is returned by Error after an iterator was released.
	ErrIterReleased = errors.New("engine: iterator released")
)

// Engine is an open key/value database.
type Engine interface {
	// Transaction opens a write batch.  Nothing is visible to snapshots
	// until Commit succeeds.
	Transaction() (Transaction, error)

	// Snapshot returns a consistent read view of the committed state.
	Snapshot() (Snapshot, error)

	// Close releases the database.  Closing twice is an error.
	Close() error
}

// Transaction is an atomic write batch.
type Transaction interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error

	// Discard abandons the batch.  It is safe to call more than once and
	// after Commit.
	Discard()
}

// Snapshot is a point-in-time read view.
type Snapshot interface {
	// Get returns an error when the key does not exist.
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	NewIterator(*Range) Iterator
	Releaser
}

type Releaser interface {
	Release()
}

// Iterator walks the key/value pairs of a Range in ascending key order.  A
// fresh iterator is positioned before the first pair, so the usual loop is
//
//	for iter.Next() { ... }
type Iterator interface {
	First() bool
	Last() bool

	// Seek moves to the first pair whose key is >= key.
	Seek(key []byte) bool
	Next() bool
	Prev() bool
	Valid() bool

	// Error returns any accumulated error.  Exhausting the range is not
	// an error.
	Error() error

	// Key and Value return nil once the iterator is exhausted.  The
	// returned slices are only valid until the iterator moves.
	Key() []byte
	Value() []byte
	Releaser
}

// Range is a half-open key range [Start, Limit).  A nil Limit means no upper
// bound.
type Range struct {
	Start []byte
	Limit []byte
}

// BytesPrefix returns the range of every key starting with prefix.
func BytesPrefix(prefix []byte) *Range {
	var limit []byte
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		if c < 0xff {
			limit = make([]byte, i+1)
			copy(limit, prefix)
			limit[i] = c + 1
			break
		}
	}
	return &Range{Start: prefix, Limit: limit}
}
