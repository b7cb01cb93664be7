// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// OrphanPolicy decides whether a transaction that has been orphaned retries
// times in a row should be dropped instead of returned to the pool.
type OrphanPolicy interface {
	Evict(retries uint32) bool
}

// OrphanPolicyFunc adapts an ordinary function to OrphanPolicy.
type OrphanPolicyFunc func(retries uint32) bool

// Evict calls f(retries).
func (f OrphanPolicyFunc) Evict(retries uint32) bool {
	return f(retries)
}

// NeverEvict keeps orphans in the pool indefinitely.
var NeverEvict OrphanPolicy = OrphanPolicyFunc(func(uint32) bool {
	return false
})

// MaxRetriesPolicy evicts a transaction once it has been orphaned more than
// max times.
func MaxRetriesPolicy(max uint32) OrphanPolicy {
	return OrphanPolicyFunc(func(retries uint32) bool {
		return retries > max
	})
}

// OrphanTracker counts consecutive orphan detections per transaction.
type OrphanTracker struct {
	mtx     sync.Mutex
	retries map[chainhash.Hash]uint32
	policy  OrphanPolicy
}

// NewOrphanTracker returns an empty tracker using policy, or NeverEvict when
// policy is nil.
func NewOrphanTracker(policy OrphanPolicy) *OrphanTracker {
	if policy == nil {
		policy = NeverEvict
	}
	return &OrphanTracker{
		retries: make(map[chainhash.Hash]uint32),
		policy:  policy,
	}
}

// Orphaned records one more orphan detection of hash.  It returns the updated
// retry count and whether the policy asks for the transaction to be evicted.
// An evicted transaction is no longer tracked.
func (t *OrphanTracker) Orphaned(hash *chainhash.Hash) (uint32, bool) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	n := t.retries[*hash] + 1
	if t.policy.Evict(n) {
		delete(t.retries, *hash)
		return n, true
	}
	t.retries[*hash] = n
	return n, false
}

// Clear forgets hash.  It is called once the transaction commits.
func (t *OrphanTracker) Clear(hash *chainhash.Hash) {
	t.mtx.Lock()
	delete(t.retries, *hash)
	t.mtx.Unlock()
}

// Retries returns the current retry count of hash.
func (t *OrphanTracker) Retries(hash *chainhash.Hash) uint32 {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.retries[*hash]
}

// Len returns the number of tracked transactions.
func (t *OrphanTracker) Len() int {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return len(t.retries)
}
