// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/txpackd/blockchain"
	"github.com/btcsuite/txpackd/chain"
	"github.com/btcsuite/txpackd/database/engine/leveldb"
	"github.com/btcsuite/txpackd/internal/metrics"
	"github.com/btcsuite/txpackd/internal/testhelper"
	"github.com/btcsuite/txpackd/ledger"
	"github.com/btcsuite/txpackd/mining"
	"github.com/btcsuite/txpackd/txjson"
	"github.com/btcsuite/txpackd/txregistry"
	"github.com/btcsuite/txpackd/txstore"
	"github.com/btcsuite/txpackd/validator"
	"github.com/btcsuite/txpackd/wire"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testChainID = 2
	testTxType  = 2
)

type rpcHarness struct {
	server      *rpcServer
	addr        string
	conn        *websocket.Conn
	chain       *chain.Chain
	ledger      *ledger.MockService
	confirmed   *txstore.Store
	unconfirmed *txstore.Store
	nextID      uint64
}

func newRPCHarness(t *testing.T) *rpcHarness {
	t.Helper()

	db, err := leveldb.NewDB(filepath.Join(t.TempDir(), "txs"), true)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	registry := txregistry.New()
	require.NoError(t, registry.Register(testChainID, txregistry.TxRegister{
		TxType: testTxType, ModuleCode: "ac", Validator: "ac_batchValidate",
		VerifySignature: true,
	}))

	ledgerSvc := &ledger.MockService{}
	ledgerSvc.On("BeginBatch", mock.Anything).Return(nil).Maybe()
	ledgerSvc.On("VerifyBatch", mock.Anything, mock.Anything).
		Return(&ledger.BatchResult{}, nil).Maybe()
	invoker := &validator.MockInvoker{}
	invoker.On("Invoke", mock.Anything, mock.Anything, mock.Anything,
		mock.Anything).Return([]string{}, nil).Maybe()
	dispatcher := validator.NewDispatcher(invoker)

	confirmed := txstore.New(db, txstore.Confirmed)
	unconfirmed := txstore.New(db, txstore.Unconfirmed)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	chains := chain.NewManager(nil)
	c, err := chains.Create(testChainID)
	require.NoError(t, err)

	packager, err := mining.NewPackager(&mining.Config{
		Policy:      mining.DefaultPolicy(),
		Registry:    registry,
		Ledger:      ledgerSvc,
		Dispatcher:  dispatcher,
		Unconfirmed: unconfirmed,
		Metrics:     m,
	})
	require.NoError(t, err)

	verifier := blockchain.NewVerifier(&blockchain.Config{
		Registry:    registry,
		Ledger:      ledgerSvc,
		Dispatcher:  dispatcher,
		Confirmed:   confirmed,
		Unconfirmed: unconfirmed,
		Workers:     2,
		Metrics:     m,
	})
	t.Cleanup(verifier.Stop)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := newRPCServer(&rpcserverConfig{
		Listener:    listener,
		Chains:      chains,
		Registry:    registry,
		Packager:    packager,
		Verifier:    verifier,
		Confirmed:   confirmed,
		Unconfirmed: unconfirmed,
		Metrics:     m,
		Gatherer:    reg,
	})
	server.Start()
	t.Cleanup(func() { server.Stop() })

	addr := listener.Addr().String()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &rpcHarness{
		server:      server,
		addr:        addr,
		conn:        conn,
		chain:       c,
		ledger:      ledgerSvc,
		confirmed:   confirmed,
		unconfirmed: unconfirmed,
	}
}

// call sends a single request and waits for its reply.
func (h *rpcHarness) call(t *testing.T, method string, params interface{}) *txjson.Response {
	t.Helper()

	h.nextID++
	req, err := txjson.NewRequest(h.nextID, method, params)
	require.NoError(t, err)
	require.NoError(t, h.conn.WriteJSON(req))
	return h.read(t)
}

func (h *rpcHarness) read(t *testing.T) *txjson.Response {
	t.Helper()

	require.NoError(t, h.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var resp txjson.Response
	require.NoError(t, h.conn.ReadJSON(&resp))
	return &resp
}

func requireResult(t *testing.T, resp *txjson.Response, v interface{}) {
	t.Helper()
	require.Nil(t, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, v))
}

func requireErrorCode(t *testing.T, resp *txjson.Response, code txjson.RPCErrorCode) {
	t.Helper()
	require.NotNil(t, resp.Error)
	require.Equal(t, code, resp.Error.Code, resp.Error.Message)
}

func TestRPCNewTx(t *testing.T) {
	h := newRPCHarness(t)
	tx := testhelper.NewTx(testTxType, 1)

	var res txjson.NewTxResult
	requireResult(t, h.call(t, txjson.MethodNewTx, &txjson.NewTxCmd{
		ChainID: testChainID, Tx: wire.EncodeTx(tx),
	}), &res)
	require.Equal(t, tx.Hash().String(), res.Hash)
	require.True(t, h.chain.Pool.Has(tx.Hash()))

	stored, err := h.unconfirmed.Has(testChainID, tx.Hash())
	require.NoError(t, err)
	require.True(t, stored)

	// A second submission is refused.
	requireErrorCode(t, h.call(t, txjson.MethodNewTx, &txjson.NewTxCmd{
		ChainID: testChainID, Tx: wire.EncodeTx(tx),
	}), txjson.ErrRPCVerify)
}

func TestRPCNewTxErrors(t *testing.T) {
	h := newRPCHarness(t)

	confirmedTx := testhelper.NewTx(testTxType, 7)
	require.NoError(t, h.confirmed.Put(testChainID, confirmedTx))

	unsigned, err := wire.NewTx(testhelper.NewMsgTx(testTxType, 8, 8))
	require.NoError(t, err)

	tests := []struct {
		name string
		cmd  *txjson.NewTxCmd
		code txjson.RPCErrorCode
	}{{
		name: "unserved chain",
		cmd: &txjson.NewTxCmd{ChainID: 9,
			Tx: wire.EncodeTx(testhelper.NewTx(testTxType, 1))},
		code: txjson.ErrRPCNoChain,
	}, {
		name: "bad encoding",
		cmd:  &txjson.NewTxCmd{ChainID: testChainID, Tx: "zz"},
		code: txjson.ErrRPCDeserialization,
	}, {
		name: "unregistered type",
		cmd: &txjson.NewTxCmd{ChainID: testChainID,
			Tx: wire.EncodeTx(testhelper.NewTx(99, 1))},
		code: txjson.ErrRPCVerify,
	}, {
		name: "missing signature",
		cmd:  &txjson.NewTxCmd{ChainID: testChainID, Tx: wire.EncodeTx(unsigned)},
		code: txjson.ErrRPCVerify,
	}, {
		name: "already confirmed",
		cmd: &txjson.NewTxCmd{ChainID: testChainID,
			Tx: wire.EncodeTx(confirmedTx)},
		code: txjson.ErrRPCVerify,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			requireErrorCode(t, h.call(t, txjson.MethodNewTx, test.cmd),
				test.code)
		})
	}
	require.Zero(t, h.chain.Pool.MapSize())
}

// TestRPCNewTxAfterPackaging ensures a transaction that was packaged, and so
// left the pool while staying in the unconfirmed store, is refused when
// submitted again.
func TestRPCNewTxAfterPackaging(t *testing.T) {
	h := newRPCHarness(t)
	tx := testhelper.NewTx(testTxType, 3)
	cmd := &txjson.NewTxCmd{ChainID: testChainID, Tx: wire.EncodeTx(tx)}
	require.Nil(t, h.call(t, txjson.MethodNewTx, cmd).Error)

	var res txjson.PackableTxsResult
	requireResult(t, h.call(t, txjson.MethodPackableTxs, &txjson.PackableTxsCmd{
		ChainID:       testChainID,
		EndTimestamp:  time.Now().Add(500 * time.Millisecond).UnixMilli(),
		MaxTxDataSize: 1 << 20,
	}), &res)
	require.Equal(t, testhelper.Encode(tx), res.List)
	require.False(t, h.chain.Pool.Has(tx.Hash()))

	stored, err := h.unconfirmed.Has(testChainID, tx.Hash())
	require.NoError(t, err)
	require.True(t, stored)

	resp := h.call(t, txjson.MethodNewTx, cmd)
	requireErrorCode(t, resp, txjson.ErrRPCVerify)
	require.Contains(t, resp.Error.Message, "already pending")
	require.Zero(t, h.chain.Pool.MapSize())
}

func TestRPCPackableTxs(t *testing.T) {
	h := newRPCHarness(t)
	txs := []*wire.Tx{
		testhelper.NewTx(testTxType, 1),
		testhelper.NewTx(testTxType, 2),
	}
	for _, tx := range txs {
		resp := h.call(t, txjson.MethodNewTx, &txjson.NewTxCmd{
			ChainID: testChainID, Tx: wire.EncodeTx(tx),
		})
		require.Nil(t, resp.Error)
	}

	var res txjson.PackableTxsResult
	requireResult(t, h.call(t, txjson.MethodPackableTxs, &txjson.PackableTxsCmd{
		ChainID:       testChainID,
		EndTimestamp:  time.Now().Add(500 * time.Millisecond).UnixMilli(),
		MaxTxDataSize: 1 << 20,
	}), &res)
	require.EqualValues(t, 1, res.Height)
	require.Equal(t, testhelper.Encode(txs...), res.List)

	// No time left produces an empty block.
	requireResult(t, h.call(t, txjson.MethodPackableTxs, &txjson.PackableTxsCmd{
		ChainID:       testChainID,
		EndTimestamp:  time.Now().UnixMilli(),
		MaxTxDataSize: 1 << 20,
	}), &res)
	require.Empty(t, res.List)
	require.NotNil(t, res.List)
}

func TestRPCBatchVerify(t *testing.T) {
	h := newRPCHarness(t)
	h.ledger.On("VerifyBlockCoinData", uint16(testChainID), mock.Anything,
		uint64(5)).Return(true, nil)

	header, err := wire.EncodeHeader(&wire.BlockHeader{
		Version:   1,
		Timestamp: time.Unix(1700000000, 0),
		Height:    5,
		TxCount:   2,
	})
	require.NoError(t, err)

	txs := []*wire.Tx{
		testhelper.NewTx(testTxType, 1),
		testhelper.NewTx(testTxType, 2),
	}
	var res txjson.BoolResult
	requireResult(t, h.call(t, txjson.MethodBatchVerify, &txjson.BatchVerifyCmd{
		ChainID: testChainID, TxList: testhelper.Encode(txs...),
		BlockHeader: header,
	}), &res)
	require.True(t, res.Value)

	// A block repeating a confirmed transaction is rejected.
	require.NoError(t, h.confirmed.Put(testChainID, txs[1]))
	requireResult(t, h.call(t, txjson.MethodBatchVerify, &txjson.BatchVerifyCmd{
		ChainID: testChainID, TxList: testhelper.Encode(txs...),
		BlockHeader: header,
	}), &res)
	require.False(t, res.Value)
}

func TestRPCChainState(t *testing.T) {
	h := newRPCHarness(t)

	var res txjson.BoolResult
	requireResult(t, h.call(t, txjson.MethodSetBestHeight,
		&txjson.SetBestHeightCmd{ChainID: testChainID, Height: 9}), &res)
	require.True(t, res.Value)
	require.EqualValues(t, 9, h.chain.BestHeight())

	requireResult(t, h.call(t, txjson.MethodProtocolUpgrade,
		&txjson.ProtocolUpgradeCmd{ChainID: testChainID, Status: true}), &res)
	require.True(t, h.chain.Upgrading())

	// Transactions held back by an interrupted round return to the front
	// of the pool once the upgrade completes.
	tail := testhelper.NewTx(testTxType, 100)
	require.NoError(t, h.chain.Pool.Add(tail))
	held := []*wire.Tx{
		testhelper.NewTx(testTxType, 1),
		testhelper.NewTx(testTxType, 2),
	}
	h.chain.Replay.Push(held[1])
	h.chain.Replay.Push(held[0])

	requireResult(t, h.call(t, txjson.MethodProtocolUpgrade,
		&txjson.ProtocolUpgradeCmd{ChainID: testChainID, Status: false}), &res)
	require.False(t, h.chain.Upgrading())
	require.Zero(t, h.chain.Replay.Len())
	require.Equal(t, held[0], h.chain.Pool.Poll())
	require.Equal(t, held[1], h.chain.Pool.Poll())
	require.Equal(t, tail, h.chain.Pool.Poll())
}

func TestRPCProtocolErrors(t *testing.T) {
	h := newRPCHarness(t)

	requireErrorCode(t, h.call(t, "tx_nosuchmethod", nil),
		txjson.ErrRPCMethodNotFound.Code)

	requireErrorCode(t, h.call(t, txjson.MethodSetBestHeight, []int{1, 2}),
		txjson.ErrRPCInvalidParams.Code)

	require.NoError(t, h.conn.WriteMessage(websocket.TextMessage,
		[]byte("{not json")))
	requireErrorCode(t, h.read(t), txjson.ErrRPCParse.Code)

	require.NoError(t, h.conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"jsonrpc":"2.0","id":1}`)))
	requireErrorCode(t, h.read(t), txjson.ErrRPCInvalidRequest.Code)
}

func TestRPCMetrics(t *testing.T) {
	h := newRPCHarness(t)
	resp, err := http.Get("http://" + h.addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRPCServerStop(t *testing.T) {
	h := newRPCHarness(t)
	require.NoError(t, h.server.Stop())

	require.NoError(t, h.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := h.conn.ReadMessage()
	require.Error(t, err)

	// Stopping twice is harmless.
	require.NoError(t, h.server.Stop())
}

func TestRestorePending(t *testing.T) {
	db, err := leveldb.NewDB(filepath.Join(t.TempDir(), "txs"), true)
	require.NoError(t, err)
	defer db.Close()
	unconfirmed := txstore.New(db, txstore.Unconfirmed)

	txs := []*wire.Tx{
		testhelper.NewTx(testTxType, 1),
		testhelper.NewTx(testTxType, 2),
		testhelper.NewTx(testTxType, 3),
	}
	require.NoError(t, unconfirmed.Put(testChainID, txs...))
	require.NoError(t, unconfirmed.Put(testChainID+1,
		testhelper.NewTx(testTxType, 4)))

	c := chain.New(testChainID, nil)
	n, err := restorePending(c, unconfirmed)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	for _, tx := range txs {
		require.True(t, c.Pool.Has(tx.Hash()))
	}
}
