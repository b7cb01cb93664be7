// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txstore persists transactions per chain on top of a key/value
// engine.  A node keeps two stores: the confirmed store, holding
// transactions already in a block, and the unconfirmed store, holding
// transactions this node has received and checked but not yet seen confirmed.
//
// Keys are laid out as
//
//	bucket (1 byte) | chain id (2 bytes, big endian) | tx hash (32 bytes)
//
// so several stores can share one database and a chain's entries form a
// contiguous range.
package txstore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/txpackd/database/engine"
	"github.com/btcsuite/txpackd/wire"
)

// Bucket namespaces one store inside a shared database.
type Bucket byte

const (
	Confirmed   Bucket = 'c'
	Unconfirmed Bucket = 'u'
)

func (b Bucket) String() string {
	switch b {
	case Confirmed:
		return "confirmed"
	case Unconfirmed:
		return "unconfirmed"
	}
	return fmt.Sprintf("bucket(%#x)", byte(b))
}

const keyLen = 1 + 2 + chainhash.HashSize

// ErrTxNotFound is returned by Get for unknown transactions.
var ErrTxNotFound = errors.New("transaction not found")

// Store is a set of transactions keyed by chain and hash.  It is safe for
// concurrent use; every read works on its own snapshot.
type Store struct {
	db     engine.Engine
	bucket Bucket
}

// New returns the store for bucket inside db.  The caller owns db.
func New(db engine.Engine, bucket Bucket) *Store {
	return &Store{db: db, bucket: bucket}
}

func (s *Store) chainPrefix(chainID uint16) []byte {
	p := make([]byte, 3, keyLen)
	p[0] = byte(s.bucket)
	binary.BigEndian.PutUint16(p[1:3], chainID)
	return p
}

func (s *Store) key(chainID uint16, hash *chainhash.Hash) []byte {
	return append(s.chainPrefix(chainID), hash[:]...)
}

// Put stores txs atomically.  Storing a transaction twice is harmless.
func (s *Store) Put(chainID uint16, txs ...*wire.Tx) error {
	if len(txs) == 0 {
		return nil
	}
	tx, err := s.db.Transaction()
	if err != nil {
		return err
	}
	defer tx.Discard()

	for _, t := range txs {
		if err := tx.Put(s.key(chainID, t.Hash()), t.Bytes()); err != nil {
			return fmt.Errorf("store %v tx %v: %w", s.bucket, t.Hash(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Tracef("Stored %d transactions in %v store of chain %d", len(txs),
		s.bucket, chainID)
	return nil
}

// Remove deletes the transaction.  Removing an unknown transaction is not an
// error.
func (s *Store) Remove(chainID uint16, hash *chainhash.Hash) error {
	tx, err := s.db.Transaction()
	if err != nil {
		return err
	}
	defer tx.Discard()

	if err := tx.Delete(s.key(chainID, hash)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Tracef("Removed transaction %v from %v store of chain %d", hash,
		s.bucket, chainID)
	return nil
}

// Get loads a stored transaction.
func (s *Store) Get(chainID uint16, hash *chainhash.Hash) (*wire.Tx, error) {
	snap, err := s.db.Snapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	key := s.key(chainID, hash)
	has, err := snap.Has(key)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("%w: %v", ErrTxNotFound, hash)
	}
	b, err := snap.Get(key)
	if err != nil {
		return nil, err
	}
	return wire.NewTxFromBytes(b)
}

// Has reports whether the transaction is stored.
func (s *Store) Has(chainID uint16, hash *chainhash.Hash) (bool, error) {
	snap, err := s.db.Snapshot()
	if err != nil {
		return false, err
	}
	defer snap.Release()
	return snap.Has(s.key(chainID, hash))
}

// Existing returns the subset of hashes that are stored, in input order.  All
// lookups are answered from a single snapshot.
func (s *Store) Existing(chainID uint16, hashes []chainhash.Hash) ([]chainhash.Hash, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	snap, err := s.db.Snapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	var found []chainhash.Hash
	for i := range hashes {
		has, err := snap.Has(s.key(chainID, &hashes[i]))
		if err != nil {
			return nil, err
		}
		if has {
			found = append(found, hashes[i])
		}
	}
	return found, nil
}

// Hashes lists every transaction stored for the chain in key order.
func (s *Store) Hashes(chainID uint16) ([]chainhash.Hash, error) {
	snap, err := s.db.Snapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	iter := snap.NewIterator(engine.BytesPrefix(s.chainPrefix(chainID)))
	if iter == nil {
		return nil, errors.New("snapshot released")
	}
	defer iter.Release()

	var hashes []chainhash.Hash
	for iter.Next() {
		key := iter.Key()
		if len(key) != keyLen {
			return nil, fmt.Errorf("malformed %v store key %x", s.bucket, key)
		}
		var h chainhash.Hash
		copy(h[:], key[3:])
		hashes = append(hashes, h)
	}
	return hashes, iter.Error()
}
