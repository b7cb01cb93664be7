// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/txpackd/internal/metrics"
	"github.com/btcsuite/txpackd/ledger"
	"github.com/btcsuite/txpackd/txregistry"
	"github.com/btcsuite/txpackd/validator"
	"github.com/btcsuite/txpackd/wire"
)

// TxExistence reports which of a set of transactions a store holds.
type TxExistence interface {
	// Existing returns the subset of hashes present on chainID.
	Existing(chainID uint16, hashes []chainhash.Hash) ([]chainhash.Hash, error)
}

// Config houses the collaborators of a Verifier.
type Config struct {
	// Registry resolves transaction types.
	Registry *txregistry.Registry

	// Ledger checks the coin data of the block.
	Ledger ledger.Service

	// Dispatcher runs the module validators.
	Dispatcher *validator.Dispatcher

	// Confirmed is the store of committed transactions.  A block that
	// contains any of them is rejected.
	Confirmed TxExistence

	// Unconfirmed is the store of transactions this node already
	// validated on ingestion.  They skip base validation.  It may be nil.
	Unconfirmed TxExistence

	// Workers is the number of base validation goroutines.  Zero selects
	// runtime.NumCPU().
	Workers int

	// Clock provides the time base validation compares timestamps to.
	// Nil selects the wall clock.
	Clock clock.Clock

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// baseJob is a request to base validate a single transaction.
type baseJob struct {
	tx     *wire.Tx
	reg    txregistry.TxRegister
	now    time.Time
	abort  <-chan struct{}
	result chan<- error
}

// Verifier validates the transaction set of a received block.  It holds no
// per-chain state and never takes a packaging lock, so verification runs
// concurrently with packaging.
type Verifier struct {
	cfg  Config
	jobs chan *baseJob
	quit chan struct{}
	wg   sync.WaitGroup
	stop sync.Once
}

// NewVerifier returns a Verifier and starts its base validation goroutines.
// Stop must be called to release them.
func NewVerifier(cfg *Config) *Verifier {
	v := &Verifier{
		cfg:  *cfg,
		jobs: make(chan *baseJob),
		quit: make(chan struct{}),
	}
	if v.cfg.Clock == nil {
		v.cfg.Clock = clock.New()
	}
	workers := v.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	v.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go v.validateHandler()
	}
	return v
}

// Stop shuts the base validation goroutines down and waits for them.
func (v *Verifier) Stop() {
	v.stop.Do(func() {
		close(v.quit)
		v.wg.Wait()
	})
}

// validateHandler consumes base validation jobs until the verifier stops.  It
// must be run as a goroutine.
func (v *Verifier) validateHandler() {
	defer v.wg.Done()
	for {
		select {
		case job := <-v.jobs:
			job.result <- v.runJob(job)
		case <-v.quit:
			return
		}
	}
}

func (v *Verifier) runJob(job *baseJob) (err error) {
	select {
	case <-job.abort:
		return nil
	default:
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("base validation of %v panicked: %v",
				job.tx.Hash(), r)
		}
	}()
	return CheckTransactionSanity(job.tx, job.reg, job.now)
}

// VerifyBlockTxs validates the ordered, encoded transactions of a block
// against its encoded header.  The whole block is rejected on the first
// failure:
//
//   - an unregistered transaction type fails with ErrTxTypeInvalid
//   - a transaction listed twice fails with ErrDuplicateTx
//   - an already committed transaction fails with ErrTxConfirmed before any
//     store or service is consulted
//   - a ledger rejection of the coin data fails with ErrLedgerVerifyFail
//   - a module validator rejection or a base validation failure of a
//     transaction this node has not seen fails with ErrModuleVerifyFail
//
// Base validation runs on the worker goroutines while the ledger and module
// validators are consulted.
func (v *Verifier) VerifyBlockTxs(chainID uint16, txHex []string, headerHex string) error {
	start := time.Now()
	err := v.verifyBlockTxs(chainID, txHex, headerHex)

	outcome := metrics.VerifyOK
	if err != nil {
		outcome = "error"
		if rerr, ok := err.(RuleError); ok {
			outcome = rerr.ErrorCode.String()
		}
	}
	v.cfg.Metrics.RecordVerification(outcome, time.Since(start))
	log.Debugf("Verified %d transactions on chain %d in %v: %v", len(txHex),
		chainID, time.Since(start), outcome)
	return err
}

func (v *Verifier) verifyBlockTxs(chainID uint16, txHex []string, headerHex string) error {
	header, err := wire.DecodeHeader(headerHex)
	if err != nil {
		return ruleError(ErrSerializationFail, err.Error())
	}
	if len(txHex) == 0 {
		return nil
	}

	txs := make([]*wire.Tx, 0, len(txHex))
	regs := make([]txregistry.TxRegister, 0, len(txHex))
	hashes := make([]chainhash.Hash, 0, len(txHex))
	groups := validator.NewGroups()
	seen := make(map[chainhash.Hash]struct{}, len(txHex))
	for i, s := range txHex {
		tx, err := wire.DecodeTx(s)
		if err != nil {
			str := fmt.Sprintf("transaction %d of block at height %d: %v",
				i, header.Height, err)
			return ruleError(ErrSerializationFail, str)
		}
		if _, ok := seen[*tx.Hash()]; ok {
			str := fmt.Sprintf("transaction %v appears more than once "+
				"in block at height %d", tx.Hash(), header.Height)
			return ruleError(ErrDuplicateTx, str)
		}
		seen[*tx.Hash()] = struct{}{}
		reg, ok := v.cfg.Registry.Lookup(chainID, tx.Type())
		if !ok {
			str := fmt.Sprintf("transaction %v has unregistered type "+
				"%d on chain %d", tx.Hash(), tx.Type(), chainID)
			return ruleError(ErrTxTypeInvalid, str)
		}
		txs = append(txs, tx)
		regs = append(regs, reg)
		hashes = append(hashes, *tx.Hash())
		groups.Add(reg, s)
	}

	if err := v.checkConfirmed(chainID, hashes); err != nil {
		return err
	}

	// Transactions already in the unconfirmed store passed base validation
	// on ingestion.
	known := make(map[chainhash.Hash]struct{})
	if v.cfg.Unconfirmed != nil {
		existing, err := v.cfg.Unconfirmed.Existing(chainID, hashes)
		if err != nil {
			return fmt.Errorf("unconfirmed store lookup: %w", err)
		}
		for _, hash := range existing {
			known[hash] = struct{}{}
		}
	}

	abort := make(chan struct{})
	defer close(abort)

	// One result arrives per job built here.
	var jobs []*baseJob
	results := make(chan error, len(txs))
	now := v.cfg.Clock.Now()
	for i, tx := range txs {
		if _, ok := known[*tx.Hash()]; ok {
			continue
		}
		jobs = append(jobs, &baseJob{tx: tx, reg: regs[i], now: now,
			abort: abort, result: results})
	}
	pending := len(jobs)
	if pending > 0 {
		go func() {
			for _, job := range jobs {
				select {
				case v.jobs <- job:
				case <-abort:
					return
				case <-v.quit:
					return
				}
			}
		}()
	}

	ok, err := v.cfg.Ledger.VerifyBlockCoinData(chainID, txHex, header.Height)
	if err != nil {
		str := fmt.Sprintf("ledger check of block at height %d failed: %v",
			header.Height, err)
		return ruleError(ErrLedgerVerifyFail, str)
	}
	if !ok {
		str := fmt.Sprintf("ledger rejected coin data of block at "+
			"height %d", header.Height)
		return ruleError(ErrLedgerVerifyFail, str)
	}

	res, err := v.cfg.Dispatcher.Dispatch(chainID, groups, headerHex)
	if err != nil {
		return ruleError(ErrModuleVerifyFail, err.Error())
	}
	if !res.OK() {
		str := fmt.Sprintf("module validators rejected transactions %s "+
			"of block at height %d", strings.Join(res.Rejected(), ", "),
			header.Height)
		return ruleError(ErrModuleVerifyFail, str)
	}

	for i := 0; i < pending; i++ {
		select {
		case err := <-results:
			if err != nil {
				str := fmt.Sprintf("base validation failed: %v", err)
				return ruleError(ErrModuleVerifyFail, str)
			}
		case <-v.quit:
			return fmt.Errorf("verifier stopped")
		}
	}
	return nil
}

// checkConfirmed fails when any of hashes is already committed.
func (v *Verifier) checkConfirmed(chainID uint16, hashes []chainhash.Hash) error {
	if v.cfg.Confirmed == nil {
		return nil
	}
	existing, err := v.cfg.Confirmed.Existing(chainID, hashes)
	if err != nil {
		return fmt.Errorf("confirmed store lookup: %w", err)
	}
	if len(existing) == 0 {
		return nil
	}

	strs := make([]string, 0, len(existing))
	for i := range existing {
		log.Warnf("Block on chain %d includes confirmed transaction %v",
			chainID, existing[i])
		strs = append(strs, existing[i].String())
	}
	str := fmt.Sprintf("block includes %d confirmed transactions: %s",
		len(existing), strings.Join(strs, ", "))
	return ruleError(ErrTxConfirmed, str)
}
