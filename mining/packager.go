// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/txpackd/blockchain"
	"github.com/btcsuite/txpackd/chain"
	"github.com/btcsuite/txpackd/internal/metrics"
	"github.com/btcsuite/txpackd/ledger"
	"github.com/btcsuite/txpackd/txregistry"
	"github.com/btcsuite/txpackd/validator"
	"github.com/btcsuite/txpackd/wire"
)

// errProtocolUpgrade is returned internally when a protocol upgrade
// interrupts a round.
var errProtocolUpgrade = errors.New("protocol upgrade in progress")

// Config houses the collaborators of a Packager.
type Config struct {
	// Policy controls the packaging rounds.
	Policy Policy

	// Registry resolves transaction types.
	Registry *txregistry.Registry

	// Ledger checks the coin data of collected transactions.
	Ledger ledger.Service

	// Dispatcher prepares the module validators for the candidate block.
	Dispatcher *validator.Dispatcher

	// Unconfirmed is the store invalid transactions are purged from.  It
	// may be nil.
	Unconfirmed TxRemover

	// Clock is the time source deadlines are checked against.  Nil
	// selects the wall clock.
	Clock clock.Clock

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Packager assembles candidate blocks.  A single Packager serves every chain;
// per-chain state lives on the chain.Chain handed to each call.
type Packager struct {
	cfg      Config
	verifier *ledger.BatchVerifier

	// encodeTx produces the transport encoding of a packaged transaction.
	encodeTx func(*wire.Tx) (string, error)
}

// NewPackager returns a Packager configured by cfg.
func NewPackager(cfg *Config) (*Packager, error) {
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid packaging policy: %w", err)
	}
	p := &Packager{
		cfg:      *cfg,
		verifier: ledger.NewBatchVerifier(cfg.Ledger),
		encodeTx: func(tx *wire.Tx) (string, error) {
			return wire.EncodeMsgTx(tx.MsgTx())
		},
	}
	if p.cfg.Clock == nil {
		p.cfg.Clock = clock.New()
	}
	return p, nil
}

// Package assembles the transaction set of the next block of c.  Collection
// stops once less than the policy reserve time is left before deadline, and
// the serialized size of the set never exceeds maxSize.
//
// A nil Template is the signal to produce an empty block.  It is returned
// when too little time is left, when a protocol upgrade interrupts the round,
// and on any round-wide failure.  In every such case the transactions the
// round took are back in the pool, or, for an upgrade, in the replay queue of
// the chain.
//
// Rounds on the same chain are serialized by the chain's packaging lock.
func (p *Packager) Package(c *chain.Chain, deadline time.Time, maxSize uint64) *Template {
	c.PackageLock.Lock()
	defer c.PackageLock.Unlock()

	start := time.Now()
	tmpl, err := p.packageTxs(c, deadline, maxSize)

	outcome := metrics.RoundTemplate
	packaged := 0
	switch {
	case errors.Is(err, errProtocolUpgrade):
		outcome = metrics.RoundUpgrade
		log.Infof("Packaging on chain %d stopped by protocol upgrade at "+
			"height %d", c.ID(), c.BestHeight())
	case blockchain.IsErrorCode(err, blockchain.ErrTimeout):
		outcome = metrics.RoundTimeout
		log.Errorf("Packaging on chain %d timed out: %v", c.ID(), err)
	case err != nil:
		outcome = metrics.RoundError
		log.Errorf("Packaging on chain %d failed: %v", c.ID(), err)
	case tmpl == nil:
		outcome = metrics.RoundEmpty
	default:
		packaged = len(tmpl.Txs)
	}
	p.cfg.Metrics.RecordRound(outcome, packaged, time.Since(start))
	p.cfg.Metrics.SetPoolSize(fmt.Sprint(c.ID()), c.Pool.MapSize())

	if err != nil {
		return nil
	}
	return tmpl
}

// packageTxs runs one packaging round.  Unlike Package it reports why a round
// produced no template.  The caller must hold the packaging lock.
func (p *Packager) packageTxs(c *chain.Chain, deadline time.Time, maxSize uint64) (*Template, error) {
	start := time.Now()
	now := p.cfg.Clock.Now()
	available := deadline.Sub(now)
	height := c.BestHeight() + 1

	log.Infof("Package start on chain %d: available %v, capacity %d "+
		"bytes, height %d, queued hashes %d, pending txs %d", c.ID(),
		available, maxSize, height, c.Pool.Size(), c.Pool.MapSize())

	if available <= p.cfg.Policy.ReserveTime {
		return nil, nil
	}

	r := &round{
		p:        p,
		c:        c,
		deadline: deadline,
		maxSize:  maxSize,
		seen:     make(map[chainhash.Hash]struct{}),
		groups:   validator.NewGroups(),
	}
	defer r.requeueDeferred()

	if err := p.verifier.Begin(c.ID()); err != nil {
		return nil, err
	}

	if err := r.collect(); err != nil {
		if errors.Is(err, errProtocolUpgrade) {
			r.stashForUpgrade()
			return nil, err
		}
		r.restore()
		return nil, err
	}
	collectTime := time.Since(start)

	txs := make([]*wire.Tx, 0, len(r.collected))
	txHex := make([]string, 0, len(r.collected))
	kept := r.collected[:0]
	var size uint64
	var crossChain int
	for _, d := range r.collected {
		c.Orphans.Clear(d.tx.Hash())

		s, err := p.encodeTx(d.tx)
		if err != nil {
			r.purge(d.tx, fmt.Sprintf("encoding failed: %v", err))
			continue
		}
		kept = append(kept, d)
		txs = append(txs, d.tx)
		txHex = append(txHex, s)
		size += uint64(d.tx.Size())
		if d.reg.CrossChain() {
			crossChain++
		}
	}
	r.collected = kept

	r.returnOrphans()

	if c.Upgrading() {
		r.stashForUpgrade()
		return nil, errProtocolUpgrade
	}

	remaining := deadline.Sub(p.cfg.Clock.Now())
	if remaining < p.cfg.Policy.RPCReserveTime {
		r.restore()
		str := fmt.Sprintf("%v left for assembly after collecting %d "+
			"transactions, %v reserved", remaining, len(txs),
			p.cfg.Policy.RPCReserveTime)
		return nil, blockchain.RuleError{
			ErrorCode:   blockchain.ErrTimeout,
			Description: str,
		}
	}

	moduleStart := time.Now()
	p.prepareModules(c.ID(), r.groups)
	moduleTime := time.Since(moduleStart)

	log.Debugf("Package timing on chain %d: available %v, total %v, "+
		"collect %v, modules %v", c.ID(), available, time.Since(start),
		collectTime, moduleTime)
	log.Infof("Package end on chain %d: height %d, packaged %d, queued "+
		"hashes %d, pending txs %d", c.ID(), height, len(txs),
		c.Pool.Size(), c.Pool.MapSize())

	return &Template{
		Height:          height,
		Txs:             txs,
		TxHex:           txHex,
		Size:            size,
		CrossChainCount: crossChain,
	}, nil
}

// prepareModules hands the module groupings to their validators.  Their
// verdict is not acted upon here; the validators see the block again when it
// is verified.
func (p *Packager) prepareModules(chainID uint16, groups *validator.Groups) {
	if p.cfg.Dispatcher == nil || groups.Len() == 0 {
		return
	}
	res, err := p.cfg.Dispatcher.Dispatch(chainID, groups, "")
	if err != nil {
		log.Warnf("Module preparation on chain %d failed: %v", chainID, err)
		return
	}
	if !res.OK() {
		log.Warnf("Module validators on chain %d flagged %d packaged "+
			"transactions: %v", chainID, len(res.Rejected()),
			newLogClosure(func() string {
				return strings.Join(res.Rejected(), ", ")
			}))
	}
}

// RestoreReplay moves the transactions a protocol upgrade pulled out of a
// round back to the front of the pool of c, in their original order.  It
// returns the number of transactions moved.
func (p *Packager) RestoreReplay(c *chain.Chain) int {
	c.PackageLock.Lock()
	defer c.PackageLock.Unlock()

	n := 0
	for tx := c.Replay.Pop(); tx != nil; tx = c.Replay.Pop() {
		c.Pool.OfferFirst(tx)
		n++
	}
	if n > 0 {
		log.Infof("Restored %d transactions to the pool of chain %d "+
			"after protocol upgrade", n, c.ID())
	}
	p.cfg.Metrics.AddRequeued(n)
	return n
}

// round holds the state of a single packaging round.  It is discarded when
// the round ends.
type round struct {
	p        *Packager
	c        *chain.Chain
	deadline time.Time
	maxSize  uint64

	// collected holds the transactions that passed the ledger.
	collected []*txDesc

	// batch holds the transactions waiting to be submitted to the ledger.
	batch []*txDesc

	// orphans holds the transactions the ledger reported as orphans.
	orphans []*txDesc

	// deferred holds cross-chain transactions over quota.  They return to
	// the back of the pool when the round ends.
	deferred []*wire.Tx

	seen   map[chainhash.Hash]struct{}
	groups *validator.Groups

	committedSize  uint64
	tentativeSize  uint64
	crossCommitted int
	crossBatch     int
}

// collect drains the pool until the round has to stop.
func (r *round) collect() error {
	policy := &r.p.cfg.Policy
	pool := r.c.Pool

	for {
		remaining := r.deadline.Sub(r.p.cfg.Clock.Now())
		if remaining <= policy.ReserveTime {
			log.Debugf("Collection time on chain %d is up with %v left",
				r.c.ID(), remaining)
			return r.flush()
		}
		if remaining < policy.RPCReserveTime {
			str := fmt.Sprintf("%v left while collecting, %v reserved",
				remaining, policy.RPCReserveTime)
			return blockchain.RuleError{
				ErrorCode:   blockchain.ErrTimeout,
				Description: str,
			}
		}
		if r.c.Upgrading() {
			return errProtocolUpgrade
		}
		if len(r.collected)+len(r.batch) >= policy.MaxTxCount {
			log.Debugf("Collected maximum of %d transactions on chain %d",
				policy.MaxTxCount, r.c.ID())
			return r.flush()
		}

		tx := pool.Poll()
		if tx == nil {
			if len(r.batch) == 0 {
				r.wait(remaining)
				continue
			}
			if err := r.flush(); err != nil {
				return err
			}
			continue
		}

		hash := *tx.Hash()
		if _, ok := r.seen[hash]; ok {
			continue
		}
		r.seen[hash] = struct{}{}

		reg, ok := r.p.cfg.Registry.Lookup(r.c.ID(), tx.Type())
		if !ok {
			r.purge(tx, fmt.Sprintf("unregistered type %d", tx.Type()))
			continue
		}

		size := uint64(tx.Size())
		if r.committedSize+r.tentativeSize+size > r.maxSize {
			pool.OfferFirst(tx)
			r.p.cfg.Metrics.AddRequeued(1)
			log.Debugf("Block capacity reached on chain %d: committed "+
				"%d, tentative %d, tx %v of %d bytes, max %d", r.c.ID(),
				r.committedSize, r.tentativeSize, tx.Hash(), size,
				r.maxSize)
			return r.flush()
		}

		if reg.CrossChain() && !r.crossChainRoom() {
			// Pending cross-chain transactions may still fail the
			// ledger, so settle the count before deciding.
			if r.crossBatch > 0 {
				if err := r.flush(); err != nil {
					r.deferred = append(r.deferred, tx)
					return err
				}
			}
			if !r.crossChainRoom() {
				r.deferred = append(r.deferred, tx)
				continue
			}
		}

		r.batch = append(r.batch, &txDesc{
			tx:  tx,
			reg: reg,
			hex: wire.EncodeTx(tx),
		})
		r.tentativeSize += size
		if reg.CrossChain() {
			r.crossBatch++
		}
		if len(r.batch) >= policy.VerifyBatchSize {
			if err := r.flush(); err != nil {
				return err
			}
		}
	}
}

// crossChainRoom reports whether one more cross-chain transaction fits the
// quota.
func (r *round) crossChainRoom() bool {
	return r.crossCommitted+r.crossBatch+1 <= r.p.cfg.Policy.MaxCrossChainTxCount
}

// wait blocks until the pool signals new transactions or the poll interval
// elapses, whichever is first.  It never waits past the reserve time.
func (r *round) wait(remaining time.Duration) {
	d := r.p.cfg.Policy.PollInterval
	if left := remaining - r.p.cfg.Policy.ReserveTime; left < d {
		d = left
	}
	if d <= 0 {
		return
	}
	select {
	case <-r.c.Pool.Notify():
	case <-r.p.cfg.Clock.After(d):
	}
}

// flush submits the batch to the ledger and sorts its transactions into
// purged, orphaned and collected.  On error the batch is left untouched so
// the caller can return it to the pool.
func (r *round) flush() error {
	if len(r.batch) == 0 {
		return nil
	}

	txHex := make([]string, 0, len(r.batch))
	for _, d := range r.batch {
		txHex = append(txHex, d.hex)
	}
	fail, orphan, err := r.p.verifier.Verify(r.c.ID(), txHex)
	if err != nil {
		return err
	}
	if len(fail) > 0 || len(orphan) > 0 {
		log.Infof("Ledger on chain %d failed %d and orphaned %d of %d "+
			"transactions", r.c.ID(), len(fail), len(orphan), len(r.batch))
	}

	for _, d := range r.batch {
		switch {
		case fail.Has(d.tx.Hash()):
			r.purge(d.tx, "ledger rejected coin data")

		case orphan.Has(d.tx.Hash()):
			r.orphan(d)

		default:
			r.committedSize += uint64(d.tx.Size())
			if d.reg.CrossChain() {
				r.crossCommitted++
			}
			r.groups.Add(d.reg, d.hex)
			r.collected = append(r.collected, d)
		}
	}

	r.batch = nil
	r.tentativeSize = 0
	r.crossBatch = 0
	return nil
}

// orphan records an orphan detection and either keeps the transaction for
// the next round or evicts it per the chain's orphan policy.
func (r *round) orphan(d *txDesc) {
	r.p.cfg.Metrics.AddOrphaned(1)
	retries, evict := r.c.Orphans.Orphaned(d.tx.Hash())
	if evict {
		r.purge(d.tx, fmt.Sprintf("orphaned %d times", retries))
		return
	}
	r.orphans = append(r.orphans, d)
}

// purge permanently drops an invalid transaction.
func (r *round) purge(tx *wire.Tx, reason string) {
	log.Debugf("Purging transaction %v on chain %d: %s", tx.Hash(),
		r.c.ID(), reason)

	if r.p.cfg.Unconfirmed != nil {
		err := r.p.cfg.Unconfirmed.Remove(r.c.ID(), tx.Hash())
		if err != nil {
			log.Warnf("Unable to remove transaction %v from the "+
				"unconfirmed store: %v", tx.Hash(), err)
		}
	}
	r.c.Pool.Reject(tx.Hash())
	r.c.Orphans.Clear(tx.Hash())
	r.p.cfg.Metrics.AddPurged(1)
}

// offerFirst returns descs to the front of the pool keeping their order.
func (r *round) offerFirst(descs []*txDesc) {
	for i := len(descs) - 1; i >= 0; i-- {
		r.c.Pool.OfferFirst(descs[i].tx)
	}
	r.p.cfg.Metrics.AddRequeued(len(descs))
}

// returnOrphans puts the orphans back at the front of the pool so they are
// retried first in the next round.
func (r *round) returnOrphans() {
	r.offerFirst(r.orphans)
	r.orphans = nil
}

// restore returns every transaction the round took to the front of the pool
// in the order they were taken.
func (r *round) restore() {
	all := make([]*txDesc, 0, len(r.collected)+len(r.batch)+len(r.orphans))
	all = append(all, r.collected...)
	all = append(all, r.batch...)
	all = append(all, r.orphans...)
	r.offerFirst(all)

	r.collected, r.batch, r.orphans = nil, nil, nil
}

// stashForUpgrade handles a round interrupted by a protocol upgrade.
// Transactions not yet checked by the ledger return to the pool.  Collected
// transactions are validated again, since the upgrade may change the rules,
// and the survivors are pushed to the replay queue in reverse order so that
// RestoreReplay puts them back in their original order.
func (r *round) stashForUpgrade() {
	pending := make([]*txDesc, 0, len(r.batch)+len(r.orphans))
	pending = append(pending, r.batch...)
	pending = append(pending, r.orphans...)
	r.offerFirst(pending)

	now := r.p.cfg.Clock.Now()
	stashed := 0
	for i := len(r.collected) - 1; i >= 0; i-- {
		tx := r.collected[i].tx
		_, err := blockchain.ValidateTransaction(r.p.cfg.Registry, r.c.ID(),
			tx, now)
		if err != nil {
			r.purge(tx, fmt.Sprintf("failed validation on upgrade: %v",
				err))
			continue
		}
		r.c.Replay.Push(tx)
		stashed++
	}
	log.Infof("Stashed %d collected transactions of chain %d for replay "+
		"after protocol upgrade", stashed, r.c.ID())

	r.collected, r.batch, r.orphans = nil, nil, nil
}

// requeueDeferred returns the cross-chain transactions held back by the quota
// to the back of the pool.
func (r *round) requeueDeferred() {
	for _, tx := range r.deferred {
		r.c.Pool.Requeue(tx)
	}
	r.p.cfg.Metrics.AddRequeued(len(r.deferred))
	r.deferred = nil
}
