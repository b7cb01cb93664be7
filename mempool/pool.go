// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"container/list"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/txpackd/wire"
	"github.com/decred/dcrd/lru"
)

const (
	// DefaultRejectCacheSize is the default number of purged transaction
	// hashes remembered so ingestion does not admit them again.
	DefaultRejectCacheSize = 5000
)

var (
	// ErrTxAlreadyPending indicates the transaction is already waiting in
	// the pool.
	ErrTxAlreadyPending = errors.New("transaction already pending")

	// ErrTxRejected indicates the transaction was recently purged as
	// invalid and may not re-enter the pool.
	ErrTxRejected = errors.New("transaction recently rejected")
)

// Config houses the tunables of a PendingPool.
type Config struct {
	// RejectCacheSize is the number of purged hashes remembered.  Zero
	// selects DefaultRejectCacheSize.
	RejectCacheSize uint
}

// PendingPool is the per-chain FIFO of transactions waiting to be packaged.
//
// The queue holds hashes in priority order while the map holds the
// transactions themselves.  A hash whose map entry was removed is skipped by
// Poll, which keeps Remove O(1).  As a consequence Size, the queue length, may
// exceed MapSize, the number of live transactions.
//
// Operations are individually atomic.  Producers (ingestion) and the single
// consumer (the packager) run concurrently, and there is no snapshot isolation
// across calls: a transaction added while a round drains the pool may or may
// not be seen by that round.
type PendingPool struct {
	mtx      sync.Mutex
	queue    *list.List
	pool     map[chainhash.Hash]*wire.Tx
	rejected lru.Cache

	// notify holds at most one pending wake-up for the consumer.
	notify chan struct{}
}

// New returns an empty pool.
func New(cfg *Config) *PendingPool {
	size := uint(DefaultRejectCacheSize)
	if cfg != nil && cfg.RejectCacheSize > 0 {
		size = cfg.RejectCacheSize
	}
	return &PendingPool{
		queue:    list.New(),
		pool:     make(map[chainhash.Hash]*wire.Tx),
		rejected: lru.NewCache(size),
		notify:   make(chan struct{}, 1),
	}
}

// signal wakes the consumer if it is waiting.  It must be called without
// blocking, so a wake-up that is already pending absorbs this one.
func (p *PendingPool) signal() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Add appends tx to the back of the queue.  This is the ingestion path: it
// refuses transactions that are already pending or were recently purged.
func (p *PendingPool) Add(tx *wire.Tx) error {
	hash := *tx.Hash()

	p.mtx.Lock()
	if p.rejected.Contains(hash) {
		p.mtx.Unlock()
		return fmt.Errorf("%w: %v", ErrTxRejected, hash)
	}
	if _, ok := p.pool[hash]; ok {
		p.mtx.Unlock()
		return fmt.Errorf("%w: %v", ErrTxAlreadyPending, hash)
	}
	p.pool[hash] = tx
	p.queue.PushBack(hash)
	p.mtx.Unlock()

	p.signal()
	log.Tracef("Added transaction %v to pending pool", hash)
	return nil
}

// Requeue appends tx to the back of the queue without the ingestion checks.
// The packager uses it for transactions it took out but could not fit.
func (p *PendingPool) Requeue(tx *wire.Tx) {
	hash := *tx.Hash()

	p.mtx.Lock()
	if _, ok := p.pool[hash]; !ok {
		p.pool[hash] = tx
		p.queue.PushBack(hash)
	}
	p.mtx.Unlock()

	p.signal()
}

// OfferFirst reinserts tx at the front of the queue so it keeps its priority.
// Returning several transactions in reverse order restores their original
// order.
func (p *PendingPool) OfferFirst(tx *wire.Tx) {
	hash := *tx.Hash()

	p.mtx.Lock()
	if _, ok := p.pool[hash]; !ok {
		p.pool[hash] = tx
		p.queue.PushFront(hash)
	}
	p.mtx.Unlock()

	p.signal()
}

// Poll removes and returns the transaction at the front of the queue, or nil
// when the pool is empty.
func (p *PendingPool) Poll() *wire.Tx {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	for {
		e := p.queue.Front()
		if e == nil {
			return nil
		}
		hash := p.queue.Remove(e).(chainhash.Hash)
		if tx, ok := p.pool[hash]; ok {
			delete(p.pool, hash)
			return tx
		}
	}
}

// Remove drops the transaction with the given hash.  It reports whether the
// transaction was pending.
func (p *PendingPool) Remove(hash *chainhash.Hash) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if _, ok := p.pool[*hash]; !ok {
		return false
	}
	delete(p.pool, *hash)
	return true
}

// Reject removes the transaction with the given hash and remembers the hash
// so ingestion refuses it until it ages out of the reject cache.
func (p *PendingPool) Reject(hash *chainhash.Hash) {
	p.mtx.Lock()
	delete(p.pool, *hash)
	p.rejected.Add(*hash)
	p.mtx.Unlock()
}

// IsRejected reports whether the hash is in the reject cache.
func (p *PendingPool) IsRejected(hash *chainhash.Hash) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.rejected.Contains(*hash)
}

// Has reports whether a transaction with the given hash is pending.
func (p *PendingPool) Has(hash *chainhash.Hash) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	_, ok := p.pool[*hash]
	return ok
}

// Size returns the number of queued hashes, stale entries included.
func (p *PendingPool) Size() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.queue.Len()
}

// MapSize returns the number of pending transactions.
func (p *PendingPool) MapSize() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.pool)
}

// Notify returns a channel that receives a value after transactions are
// inserted.  Only a single wake-up is buffered, so the receiver must drain the
// pool rather than count notifications.
func (p *PendingPool) Notify() <-chan struct{} {
	return p.notify
}
