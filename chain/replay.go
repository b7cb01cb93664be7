// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"container/list"
	"sync"

	"github.com/btcsuite/txpackd/wire"
)

// ReplayQueue is a FIFO of transactions taken out of a packaging round that a
// protocol upgrade interrupted.  Once the upgrade completes the queue is
// drained back onto the front of the pending pool.
type ReplayQueue struct {
	mtx   sync.Mutex
	queue *list.List
}

// NewReplayQueue returns an empty queue.
func NewReplayQueue() *ReplayQueue {
	return &ReplayQueue{queue: list.New()}
}

// Push appends tx.
func (q *ReplayQueue) Push(tx *wire.Tx) {
	q.mtx.Lock()
	q.queue.PushBack(tx)
	q.mtx.Unlock()
}

// Pop removes and returns the oldest transaction, or nil when empty.
func (q *ReplayQueue) Pop() *wire.Tx {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	e := q.queue.Front()
	if e == nil {
		return nil
	}
	return q.queue.Remove(e).(*wire.Tx)
}

// Len returns the number of queued transactions.
func (q *ReplayQueue) Len() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return q.queue.Len()
}

// Snapshot returns the queued transactions oldest first without removing
// them.
func (q *ReplayQueue) Snapshot() []*wire.Tx {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	txs := make([]*wire.Tx, 0, q.queue.Len())
	for e := q.queue.Front(); e != nil; e = e.Next() {
		txs = append(txs, e.Value.(*wire.Tx))
	}
	return txs
}
