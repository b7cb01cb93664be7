// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"sync"
	"sync/atomic"

	"github.com/btcsuite/txpackd/mempool"
)

// Config houses the per-chain tunables used when a chain context is created.
type Config struct {
	// Pool configures the pending pool of the chain.
	Pool *mempool.Config

	// OrphanPolicy decides when a repeatedly orphaned transaction is
	// evicted.  Nil selects NeverEvict.
	OrphanPolicy OrphanPolicy
}

// Chain is the shared state of a single chain.  It lives as long as the
// process and is handed explicitly to every packaging and verification call.
//
// The packaging lock serializes packaging rounds.  Block verification never
// takes it.  The remaining fields are safe for concurrent use on their own.
type Chain struct {
	// PackageLock is held for the whole duration of a packaging round.
	PackageLock sync.Mutex

	// Pool holds the transactions waiting to be packaged.
	Pool *mempool.PendingPool

	// Orphans tracks how often each transaction was orphaned.
	Orphans *OrphanTracker

	// Replay holds the transactions pulled out of a round interrupted by a
	// protocol upgrade.
	Replay *ReplayQueue

	id         uint16
	bestHeight atomic.Int64
	upgrading  atomic.Bool
}

// New returns the context of the chain identified by id.
func New(id uint16, cfg *Config) *Chain {
	var (
		poolCfg *mempool.Config
		policy  OrphanPolicy
	)
	if cfg != nil {
		poolCfg = cfg.Pool
		policy = cfg.OrphanPolicy
	}
	return &Chain{
		Pool:    mempool.New(poolCfg),
		Orphans: NewOrphanTracker(policy),
		Replay:  NewReplayQueue(),
		id:      id,
	}
}

// ID returns the chain id.
func (c *Chain) ID() uint16 {
	return c.id
}

// BestHeight returns the height of the latest block connected to the chain.
func (c *Chain) BestHeight() int64 {
	return c.bestHeight.Load()
}

// SetBestHeight records the height of the latest connected block.
func (c *Chain) SetBestHeight(height int64) {
	c.bestHeight.Store(height)
	log.Debugf("Chain %d best height is now %d", c.id, height)
}

// Upgrading reports whether the chain is switching protocol versions.
// Packaging stands down while it is set.
func (c *Chain) Upgrading() bool {
	return c.upgrading.Load()
}

// SetUpgrading sets or clears the protocol upgrade flag.
func (c *Chain) SetUpgrading(v bool) {
	if c.upgrading.Swap(v) != v {
		log.Infof("Chain %d protocol upgrade flag set to %v", c.id, v)
	}
}
