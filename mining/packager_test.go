// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/txpackd/blockchain"
	"github.com/btcsuite/txpackd/chain"
	"github.com/btcsuite/txpackd/internal/testhelper"
	"github.com/btcsuite/txpackd/ledger"
	"github.com/btcsuite/txpackd/mempool"
	"github.com/btcsuite/txpackd/txregistry"
	"github.com/btcsuite/txpackd/validator"
	"github.com/btcsuite/txpackd/wire"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testChainID = 1

	txTypeTransfer   = 2
	txTypeCrossChain = 10
)

var testStart = time.Unix(1700000000, 0)

// stepClock is a clock whose time advances by a fixed step every time it is
// read.  Timers fire immediately.  It lets a test script exactly when a round
// observes each point in time.
type stepClock struct {
	*clock.Mock

	mtx  sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock(start time.Time, step time.Duration) *stepClock {
	return &stepClock{Mock: clock.NewMock(), now: start, step: step}
}

func (c *stepClock) Now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *stepClock) After(time.Duration) <-chan time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

// fakeLedger is a ledger service with scripted verdicts.
type fakeLedger struct {
	mtx      sync.Mutex
	fail     map[chainhash.Hash]struct{}
	orphan   map[chainhash.Hash]struct{}
	err      error
	begins   int
	batches  [][]string
	onVerify func(call int)
}

var _ ledger.Service = (*fakeLedger)(nil)

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		fail:   make(map[chainhash.Hash]struct{}),
		orphan: make(map[chainhash.Hash]struct{}),
	}
}

func (f *fakeLedger) setFail(tx *wire.Tx) {
	f.mtx.Lock()
	f.fail[*tx.Hash()] = struct{}{}
	f.mtx.Unlock()
}

func (f *fakeLedger) setOrphan(tx *wire.Tx, orphan bool) {
	f.mtx.Lock()
	if orphan {
		f.orphan[*tx.Hash()] = struct{}{}
	} else {
		delete(f.orphan, *tx.Hash())
	}
	f.mtx.Unlock()
}

func (f *fakeLedger) BeginBatch(uint16) error {
	f.mtx.Lock()
	f.begins++
	f.mtx.Unlock()
	return nil
}

func (f *fakeLedger) VerifyBatch(_ uint16, txHex []string) (*ledger.BatchResult, error) {
	f.mtx.Lock()
	f.batches = append(f.batches, append([]string(nil), txHex...))
	call := len(f.batches)
	res := &ledger.BatchResult{}
	for _, s := range txHex {
		tx, err := wire.DecodeTx(s)
		if err != nil {
			f.mtx.Unlock()
			return nil, err
		}
		if _, ok := f.fail[*tx.Hash()]; ok {
			res.Fail = append(res.Fail, tx.Hash().String())
		}
		if _, ok := f.orphan[*tx.Hash()]; ok {
			res.Orphan = append(res.Orphan, tx.Hash().String())
		}
	}
	err, onVerify := f.err, f.onVerify
	f.mtx.Unlock()

	if onVerify != nil {
		onVerify(call)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (f *fakeLedger) VerifyBlockCoinData(uint16, []string, uint64) (bool, error) {
	return true, nil
}

func (f *fakeLedger) batchCount() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return len(f.batches)
}

// testHarness bundles a Packager with the chain and collaborators it works on.
type testHarness struct {
	chain    *chain.Chain
	packager *Packager
	ledger   *fakeLedger
	invoker  *validator.MockInvoker
	remover  *MockTxRemover
}

func testPolicy() Policy {
	return Policy{
		ReserveTime:          200 * time.Millisecond,
		RPCReserveTime:       50 * time.Millisecond,
		MaxTxCount:           1000,
		MaxCrossChainTxCount: 100,
		VerifyBatchSize:      100,
		PollInterval:         10 * time.Millisecond,
	}
}

func newTestHarness(t *testing.T, policy Policy, clk clock.Clock,
	chainCfg *chain.Config) *testHarness {

	t.Helper()

	registry := txregistry.New()
	require.NoError(t, registry.Register(testChainID, txregistry.TxRegister{
		TxType: txTypeTransfer, ModuleCode: "ac",
		Validator: "ac_batchValidate", VerifySignature: true,
	}))
	require.NoError(t, registry.Register(testChainID, txregistry.TxRegister{
		TxType: txTypeCrossChain, ModuleCode: txregistry.ModuleCrossChain,
		Validator: "cc_batchValidate", VerifySignature: true,
	}))

	h := &testHarness{
		chain:   chain.New(testChainID, chainCfg),
		ledger:  newFakeLedger(),
		invoker: &validator.MockInvoker{},
		remover: &MockTxRemover{},
	}
	h.invoker.On("Invoke", mock.Anything, mock.Anything, mock.Anything,
		mock.Anything).Return([]string{}, nil)
	h.remover.On("Remove", mock.Anything, mock.Anything).Return(nil)

	var err error
	h.packager, err = NewPackager(&Config{
		Policy:      policy,
		Registry:    registry,
		Ledger:      h.ledger,
		Dispatcher:  validator.NewDispatcher(h.invoker),
		Unconfirmed: h.remover,
		Clock:       clk,
	})
	require.NoError(t, err)
	return h
}

func (h *testHarness) addTxs(t *testing.T, txs ...*wire.Tx) {
	t.Helper()
	for _, tx := range txs {
		require.NoError(t, h.chain.Pool.Add(tx))
	}
}

func newTxs(txType uint16, first uint64, n int) []*wire.Tx {
	txs := make([]*wire.Tx, 0, n)
	for i := 0; i < n; i++ {
		txs = append(txs, testhelper.NewTx(txType, first+uint64(i)))
	}
	return txs
}

func drain(p *mempool.PendingPool) []*wire.Tx {
	var txs []*wire.Tx
	for tx := p.Poll(); tx != nil; tx = p.Poll() {
		txs = append(txs, tx)
	}
	return txs
}

func concat(lists ...[]*wire.Tx) []*wire.Tx {
	var out []*wire.Tx
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// TestPackageFlushAtReserve ensures that once the reserve time is reached with
// a partial batch pending, the batch is flushed and collection stops.
func TestPackageFlushAtReserve(t *testing.T) {
	// Every read of the clock advances it by 85ms, so the tenth loop
	// iteration observes 850ms elapsed: 150ms left against a 200ms reserve.
	clk := newStepClock(testStart, 85*time.Millisecond)
	h := newTestHarness(t, testPolicy(), clk, nil)

	txs := newTxs(txTypeTransfer, 0, 20)
	h.addTxs(t, txs...)

	tmpl := h.packager.Package(h.chain, testStart.Add(time.Second), 1<<20)
	require.NotNil(t, tmpl)
	require.Equal(t, txs[:9], tmpl.Txs)
	require.Equal(t, testhelper.Encode(txs[:9]...), tmpl.TxHex)
	require.EqualValues(t, 1, tmpl.Height)

	require.Equal(t, 1, h.ledger.batchCount())
	require.Len(t, h.ledger.batches[0], 9)
	require.Equal(t, 11, h.chain.Pool.MapSize())
	require.Equal(t, txs[9:], drain(h.chain.Pool))
}

func TestPackageNoTime(t *testing.T) {
	clk := newStepClock(testStart, time.Millisecond)
	h := newTestHarness(t, testPolicy(), clk, nil)
	h.addTxs(t, newTxs(txTypeTransfer, 0, 3)...)

	tmpl := h.packager.Package(h.chain, testStart.Add(200*time.Millisecond), 1<<20)
	require.Nil(t, tmpl)
	require.Zero(t, h.ledger.begins)
	require.Equal(t, 3, h.chain.Pool.MapSize())
}

// TestPackageOrphansAndPurge ensures ledger failures are purged, orphans are
// returned to the pool for the next round and nothing else is lost.
func TestPackageOrphansAndPurge(t *testing.T) {
	clk := newStepClock(testStart, time.Millisecond)
	h := newTestHarness(t, testPolicy(), clk, nil)

	txs := newTxs(txTypeTransfer, 0, 6)
	h.addTxs(t, txs...)
	h.ledger.setOrphan(txs[1], true)
	h.ledger.setFail(txs[3])

	tmpl := h.packager.Package(h.chain, testStart.Add(time.Second), 1<<20)
	require.NotNil(t, tmpl)
	require.Equal(t, []*wire.Tx{txs[0], txs[2], txs[4], txs[5]}, tmpl.Txs)

	// 6 before, 4 committed, 1 purged, 1 orphan returned.
	require.Equal(t, 1, h.chain.Pool.MapSize())
	require.True(t, h.chain.Pool.Has(txs[1].Hash()))
	require.EqualValues(t, 1, h.chain.Orphans.Retries(txs[1].Hash()))

	require.True(t, h.chain.Pool.IsRejected(txs[3].Hash()))
	h.remover.AssertCalled(t, "Remove", uint16(testChainID), txs[3].Hash())

	// The orphan is eligible again in the next round.
	h.ledger.setOrphan(txs[1], false)
	clk2 := newStepClock(testStart, time.Millisecond)
	h.packager.cfg.Clock = clk2
	tmpl = h.packager.Package(h.chain, testStart.Add(time.Second), 1<<20)
	require.NotNil(t, tmpl)
	require.Equal(t, []*wire.Tx{txs[1]}, tmpl.Txs)
	require.Zero(t, h.chain.Orphans.Retries(txs[1].Hash()))
	require.Zero(t, h.chain.Pool.MapSize())
}

func TestPackageOrphanEviction(t *testing.T) {
	h := newTestHarness(t, testPolicy(), newStepClock(testStart, time.Millisecond),
		&chain.Config{OrphanPolicy: chain.MaxRetriesPolicy(1)})

	tx := testhelper.NewTx(txTypeTransfer, 1)
	h.addTxs(t, tx)
	h.ledger.setOrphan(tx, true)

	tmpl := h.packager.Package(h.chain, testStart.Add(time.Second), 1<<20)
	require.NotNil(t, tmpl)
	require.Empty(t, tmpl.Txs)
	require.True(t, h.chain.Pool.Has(tx.Hash()))

	h.packager.cfg.Clock = newStepClock(testStart, time.Millisecond)
	tmpl = h.packager.Package(h.chain, testStart.Add(time.Second), 1<<20)
	require.NotNil(t, tmpl)
	require.Empty(t, tmpl.Txs)
	require.False(t, h.chain.Pool.Has(tx.Hash()))
	require.True(t, h.chain.Pool.IsRejected(tx.Hash()))
	require.Zero(t, h.chain.Orphans.Len())
}

// TestPackageDedup ensures a transaction re-added to the pool while a round
// runs is packaged at most once.
func TestPackageDedup(t *testing.T) {
	policy := testPolicy()
	policy.VerifyBatchSize = 2
	h := newTestHarness(t, policy, newStepClock(testStart, time.Millisecond), nil)

	txs := newTxs(txTypeTransfer, 0, 3)
	h.addTxs(t, txs...)
	h.ledger.onVerify = func(call int) {
		if call == 1 {
			require.NoError(t, h.chain.Pool.Add(txs[0]))
		}
	}

	tmpl := h.packager.Package(h.chain, testStart.Add(time.Second), 1<<20)
	require.NotNil(t, tmpl)
	require.Equal(t, txs, tmpl.Txs)
	require.Zero(t, h.chain.Pool.MapSize())
}

func TestPackageSizeLimit(t *testing.T) {
	h := newTestHarness(t, testPolicy(), newStepClock(testStart, time.Millisecond), nil)

	txs := newTxs(txTypeTransfer, 0, 5)
	h.addTxs(t, txs...)
	txSize := uint64(txs[0].Size())

	tmpl := h.packager.Package(h.chain, testStart.Add(time.Second), 3*txSize+txSize/2)
	require.NotNil(t, tmpl)
	require.Equal(t, txs[:3], tmpl.Txs)
	var want uint64
	for _, tx := range txs[:3] {
		want += uint64(tx.Size())
	}
	require.Equal(t, want, tmpl.Size)

	// The transaction that did not fit keeps its place at the front.
	require.Equal(t, txs[3:], drain(h.chain.Pool))
}

func TestPackageSizeLimitFirstTx(t *testing.T) {
	h := newTestHarness(t, testPolicy(), newStepClock(testStart, time.Millisecond), nil)

	txs := newTxs(txTypeTransfer, 0, 2)
	h.addTxs(t, txs...)

	tmpl := h.packager.Package(h.chain, testStart.Add(time.Second), 10)
	require.NotNil(t, tmpl)
	require.Empty(t, tmpl.Txs)
	require.Zero(t, h.ledger.batchCount())
	require.Equal(t, txs, drain(h.chain.Pool))
}

func TestPackageMaxCount(t *testing.T) {
	policy := testPolicy()
	policy.MaxTxCount = 3
	policy.VerifyBatchSize = 2
	h := newTestHarness(t, policy, newStepClock(testStart, time.Millisecond), nil)

	txs := newTxs(txTypeTransfer, 0, 5)
	h.addTxs(t, txs...)

	tmpl := h.packager.Package(h.chain, testStart.Add(time.Second), 1<<20)
	require.NotNil(t, tmpl)
	require.Equal(t, txs[:3], tmpl.Txs)
	require.Equal(t, txs[3:], drain(h.chain.Pool))
}

// TestPackageCrossChainQuota ensures a cross-chain transaction over quota is
// excluded and requeued while collection continues with other transactions.
func TestPackageCrossChainQuota(t *testing.T) {
	policy := testPolicy()
	policy.MaxCrossChainTxCount = 3
	h := newTestHarness(t, policy, newStepClock(testStart, time.Millisecond), nil)

	cross := newTxs(txTypeCrossChain, 0, 4)
	plain := newTxs(txTypeTransfer, 100, 2)
	h.addTxs(t, concat(cross, plain)...)

	tmpl := h.packager.Package(h.chain, testStart.Add(time.Second), 1<<20)
	require.NotNil(t, tmpl)
	require.Equal(t, concat(cross[:3], plain), tmpl.Txs)
	require.Equal(t, 3, tmpl.CrossChainCount)

	require.Equal(t, []*wire.Tx{cross[3]}, drain(h.chain.Pool))
}

// TestPackageProtocolUpgrade ensures an upgrade mid-round yields an empty
// block and moves the collected transactions, minus those failing
// validation, to the replay queue from which they are restored in order.
func TestPackageProtocolUpgrade(t *testing.T) {
	policy := testPolicy()
	policy.VerifyBatchSize = 3
	h := newTestHarness(t, policy, newStepClock(testStart, time.Millisecond), nil)

	unsigned, err := wire.NewTx(testhelper.NewMsgTx(txTypeTransfer, 1, 8))
	require.NoError(t, err)
	txs := []*wire.Tx{
		testhelper.NewTx(txTypeTransfer, 0),
		unsigned,
		testhelper.NewTx(txTypeTransfer, 2),
		testhelper.NewTx(txTypeTransfer, 3),
		testhelper.NewTx(txTypeTransfer, 4),
	}
	h.addTxs(t, txs...)
	h.ledger.onVerify = func(call int) {
		if call == 1 {
			h.chain.SetUpgrading(true)
		}
	}

	tmpl, err := h.packager.packageTxs(h.chain, testStart.Add(time.Second), 1<<20)
	require.ErrorIs(t, err, errProtocolUpgrade)
	require.Nil(t, tmpl)

	require.Equal(t, []*wire.Tx{txs[2], txs[0]}, h.chain.Replay.Snapshot())
	require.True(t, h.chain.Pool.IsRejected(unsigned.Hash()))
	require.Equal(t, 2, h.chain.Pool.MapSize())

	h.chain.SetUpgrading(false)
	require.Equal(t, 2, h.packager.RestoreReplay(h.chain))
	require.Zero(t, h.chain.Replay.Len())
	require.Equal(t, []*wire.Tx{txs[0], txs[2], txs[3], txs[4]},
		drain(h.chain.Pool))
}

func TestPackageUpgradeBeforeStart(t *testing.T) {
	h := newTestHarness(t, testPolicy(), newStepClock(testStart, time.Millisecond), nil)
	txs := newTxs(txTypeTransfer, 0, 2)
	h.addTxs(t, txs...)
	h.chain.SetUpgrading(true)

	require.Nil(t, h.packager.Package(h.chain, testStart.Add(time.Second), 1<<20))
	require.Zero(t, h.chain.Replay.Len())
	require.Equal(t, txs, drain(h.chain.Pool))
}

// TestPackageTimeout ensures a round that crosses the transport reserve while
// collecting returns everything to the pool in order.
func TestPackageTimeout(t *testing.T) {
	policy := testPolicy()
	policy.ReserveTime = 10 * time.Millisecond
	policy.RPCReserveTime = 500 * time.Millisecond
	policy.VerifyBatchSize = 1
	h := newTestHarness(t, policy, newStepClock(testStart, 300*time.Millisecond), nil)

	txs := newTxs(txTypeTransfer, 0, 5)
	h.addTxs(t, txs...)

	tmpl, err := h.packager.packageTxs(h.chain, testStart.Add(time.Second), 1<<20)
	require.Nil(t, tmpl)
	require.True(t, blockchain.IsErrorCode(err, blockchain.ErrTimeout), "got %v", err)
	require.Equal(t, 1, h.ledger.batchCount())
	require.Equal(t, txs, drain(h.chain.Pool))
}

// TestPackageTimeoutAfterCollect ensures the transport reserve is checked
// again once collection ends.
func TestPackageTimeoutAfterCollect(t *testing.T) {
	// Reads at 0, 190, 380, 570, 760, 950 and 1140ms.  The read at 950ms
	// stops collection and the one at 1140ms is past the deadline.
	h := newTestHarness(t, testPolicy(), newStepClock(testStart, 190*time.Millisecond), nil)

	txs := newTxs(txTypeTransfer, 0, 6)
	h.addTxs(t, txs...)

	tmpl, err := h.packager.packageTxs(h.chain, testStart.Add(time.Second), 1<<20)
	require.Nil(t, tmpl)
	require.True(t, blockchain.IsErrorCode(err, blockchain.ErrTimeout), "got %v", err)
	require.Equal(t, txs, drain(h.chain.Pool))
}

func TestPackageLedgerError(t *testing.T) {
	policy := testPolicy()
	policy.VerifyBatchSize = 2
	h := newTestHarness(t, policy, newStepClock(testStart, time.Millisecond), nil)

	txs := newTxs(txTypeTransfer, 0, 3)
	h.addTxs(t, txs...)
	h.ledger.err = errors.New("ledger unavailable")

	require.Nil(t, h.packager.Package(h.chain, testStart.Add(time.Second), 1<<20))
	require.Equal(t, txs, drain(h.chain.Pool))
}

func TestPackageEncodingFailure(t *testing.T) {
	h := newTestHarness(t, testPolicy(), newStepClock(testStart, time.Millisecond), nil)

	txs := newTxs(txTypeTransfer, 0, 3)
	h.addTxs(t, txs...)
	h.packager.encodeTx = func(tx *wire.Tx) (string, error) {
		if *tx.Hash() == *txs[1].Hash() {
			return "", errors.New("encode failure")
		}
		return wire.EncodeTx(tx), nil
	}

	tmpl := h.packager.Package(h.chain, testStart.Add(time.Second), 1<<20)
	require.NotNil(t, tmpl)
	require.Equal(t, []*wire.Tx{txs[0], txs[2]}, tmpl.Txs)
	require.Len(t, tmpl.TxHex, 2)
	require.True(t, h.chain.Pool.IsRejected(txs[1].Hash()))
}

func TestPackageUnregisteredType(t *testing.T) {
	h := newTestHarness(t, testPolicy(), newStepClock(testStart, time.Millisecond), nil)

	bogus := testhelper.NewTx(77, 0)
	good := testhelper.NewTx(txTypeTransfer, 1)
	h.addTxs(t, bogus, good)

	tmpl := h.packager.Package(h.chain, testStart.Add(time.Second), 1<<20)
	require.NotNil(t, tmpl)
	require.Equal(t, []*wire.Tx{good}, tmpl.Txs)
	require.True(t, h.chain.Pool.IsRejected(bogus.Hash()))
}

// TestPackageModulesAdvisory ensures module validator rejections do not remove
// transactions from the candidate block.
func TestPackageModulesAdvisory(t *testing.T) {
	h := newTestHarness(t, testPolicy(), newStepClock(testStart, time.Millisecond), nil)

	txs := newTxs(txTypeTransfer, 0, 2)
	h.addTxs(t, txs...)

	inv := &validator.MockInvoker{}
	inv.On("Invoke", "ac_batchValidate", uint16(testChainID),
		testhelper.Encode(txs...), "").
		Return(testhelper.HashStrings(txs[0]), nil)
	h.packager.cfg.Dispatcher = validator.NewDispatcher(inv)

	tmpl := h.packager.Package(h.chain, testStart.Add(time.Second), 1<<20)
	require.NotNil(t, tmpl)
	require.Equal(t, txs, tmpl.Txs)
	inv.AssertExpectations(t)
}

// TestPackageWakesOnInsert ensures an idle round picks up a transaction as
// soon as it is added rather than after the poll interval.
func TestPackageWakesOnInsert(t *testing.T) {
	policy := testPolicy()
	policy.ReserveTime = 50 * time.Millisecond
	policy.RPCReserveTime = 10 * time.Millisecond
	policy.PollInterval = time.Hour
	h := newTestHarness(t, policy, nil, nil)

	tx := testhelper.NewTx(txTypeTransfer, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		h.chain.Pool.Add(tx)
	}()

	tmpl := h.packager.Package(h.chain, time.Now().Add(300*time.Millisecond), 1<<20)
	require.NotNil(t, tmpl)
	require.Equal(t, []*wire.Tx{tx}, tmpl.Txs)
}
