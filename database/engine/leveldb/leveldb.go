// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package leveldb implements engine.Engine on goleveldb.
package leveldb

import (
	"github.com/btcsuite/txpackd/database/engine"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// NewDB opens the database at dbPath, creating it when missing.  When
// mustCreate is set an existing database is an error.
func NewDB(dbPath string, mustCreate bool) (engine.Engine, error) {
	opts := opt.Options{
		ErrorIfExist: mustCreate,
		Strict:       opt.DefaultStrict,
		Compression:  opt.NoCompression,
		Filter:       filter.NewBloomFilter(10),
	}
	ldb, err := leveldb.OpenFile(dbPath, &opts)
	if err != nil {
		return nil, err
	}
	return &DB{DB: ldb}, nil
}

type DB struct {
	*leveldb.DB
}

func (d *DB) Transaction() (engine.Transaction, error) {
	tx, err := d.DB.OpenTransaction()
	if err != nil {
		return nil, err
	}
	return &Transaction{Transaction: tx}, nil
}

func (d *DB) Snapshot() (engine.Snapshot, error) {
	snap, err := d.DB.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &Snapshot{Snapshot: snap}, nil
}

func (d *DB) Close() error {
	return d.DB.Close()
}

// Transaction adapts a goleveldb transaction.  A transaction holds the write
// lock of the database until it is committed or discarded.
type Transaction struct {
	*leveldb.Transaction
}

func (t *Transaction) Put(key, value []byte) error {
	return t.Transaction.Put(key, value, nil)
}

func (t *Transaction) Delete(key []byte) error {
	return t.Transaction.Delete(key, nil)
}

type Snapshot struct {
	*leveldb.Snapshot
}

func (s *Snapshot) Has(key []byte) (bool, error) {
	return s.Snapshot.Has(key, nil)
}

func (s *Snapshot) Get(key []byte) ([]byte, error) {
	return s.Snapshot.Get(key, nil)
}

// NewIterator returns a goleveldb iterator, which already satisfies
// engine.Iterator.
func (s *Snapshot) NewIterator(r *engine.Range) engine.Iterator {
	return s.Snapshot.NewIterator(&util.Range{
		Start: r.Start,
		Limit: r.Limit,
	}, nil)
}
