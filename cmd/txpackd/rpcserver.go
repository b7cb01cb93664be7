// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/btcsuite/txpackd/blockchain"
	"github.com/btcsuite/txpackd/chain"
	"github.com/btcsuite/txpackd/internal/metrics"
	"github.com/btcsuite/txpackd/mempool"
	"github.com/btcsuite/txpackd/mining"
	"github.com/btcsuite/txpackd/txjson"
	"github.com/btcsuite/txpackd/txregistry"
	"github.com/btcsuite/txpackd/txstore"
	"github.com/btcsuite/txpackd/wire"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

type commandHandler func(*rpcServer, *txjson.Request) (interface{}, error)

// rpcHandlers maps RPC command strings to appropriate handler functions.
var rpcHandlers = map[string]commandHandler{
	txjson.MethodNewTx:           handleNewTx,
	txjson.MethodPackableTxs:     handlePackableTxs,
	txjson.MethodBatchVerify:     handleBatchVerify,
	txjson.MethodSetBestHeight:   handleSetBestHeight,
	txjson.MethodProtocolUpgrade: handleProtocolUpgrade,
}

// rpcserverConfig is a descriptor containing the RPC server configuration.
type rpcserverConfig struct {
	// Listener is the listener the server accepts connections on.
	Listener net.Listener

	Chains      *chain.Manager
	Registry    *txregistry.Registry
	Packager    *mining.Packager
	Verifier    *blockchain.Verifier
	Confirmed   *txstore.Store
	Unconfirmed *txstore.Store

	// Clock is the time source for ingestion checks.
	Clock clock.Clock

	// Metrics is refreshed after pool changes.  It may be nil.
	Metrics *metrics.Metrics

	// Gatherer, when set, is served on /metrics.
	Gatherer prometheus.Gatherer
}

// rpcServer provides a websocket JSON-RPC server for the packaging and
// verification operations.
type rpcServer struct {
	started  int32
	shutdown int32
	cfg      rpcserverConfig

	upgrader   websocket.Upgrader
	httpServer *http.Server

	clientsMtx sync.Mutex
	clients    map[*wsClient]struct{}

	wg   sync.WaitGroup
	quit chan struct{}
}

func newRPCServer(config *rpcserverConfig) *rpcServer {
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	return &rpcServer{
		cfg:     *config,
		clients: make(map[*wsClient]struct{}),
		quit:    make(chan struct{}),
	}
}

// Start is used by txpackdMain to start the rpc listener.
func (s *rpcServer) Start() {
	if atomic.AddInt32(&s.started, 1) != 1 {
		return
	}

	rpcsLog.Trace("Starting RPC server")
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebsocket)
	if s.cfg.Gatherer != nil {
		mux.Handle("/metrics", metrics.Handler(s.cfg.Gatherer))
	}
	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		rpcsLog.Infof("RPC server listening on %s", s.cfg.Listener.Addr())
		err := s.httpServer.Serve(s.cfg.Listener)
		if !errors.Is(err, http.ErrServerClosed) {
			rpcsLog.Errorf("RPC listener failed: %v", err)
		}
		rpcsLog.Tracef("RPC listener done for %s", s.cfg.Listener.Addr())
	}()
}

// Stop closes the listener and disconnects every websocket client.
func (s *rpcServer) Stop() error {
	if atomic.AddInt32(&s.shutdown, 1) != 1 {
		rpcsLog.Infof("RPC server is already in the process of shutting down")
		return nil
	}
	rpcsLog.Warnf("RPC server shutting down")
	close(s.quit)

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Close()
	}

	s.clientsMtx.Lock()
	for c := range s.clients {
		c.Disconnect()
	}
	s.clientsMtx.Unlock()

	s.wg.Wait()
	rpcsLog.Infof("RPC server shutdown complete")
	return err
}

// handleWebsocket upgrades the connection and serves it until it closes.
func (s *rpcServer) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rpcsLog.Errorf("Failed to upgrade websocket from %s: %v",
			r.RemoteAddr, err)
		return
	}

	c := newWebsocketClient(s, conn, r.RemoteAddr)
	s.clientsMtx.Lock()
	select {
	case <-s.quit:
		s.clientsMtx.Unlock()
		conn.Close()
		return
	default:
	}
	s.clients[c] = struct{}{}
	s.wg.Add(1)
	s.clientsMtx.Unlock()

	rpcsLog.Infof("New websocket client %s", r.RemoteAddr)
	c.Start()
	c.WaitForShutdown()

	s.clientsMtx.Lock()
	delete(s.clients, c)
	s.clientsMtx.Unlock()
	s.wg.Done()
	rpcsLog.Infof("Disconnected websocket client %s", r.RemoteAddr)
}

// internalRPCError is a convenience function to convert an internal error to
// an RPC error with the appropriate code set.  It also logs the error to the
// RPC server subsystem since internal errors really should not occur.
func internalRPCError(errStr, context string) *txjson.RPCError {
	logStr := errStr
	if context != "" {
		logStr = context + ": " + errStr
	}
	rpcsLog.Error(logStr)
	return txjson.NewRPCError(txjson.ErrRPCInternal.Code, errStr)
}

// invalidParams returns the error for params that do not decode.
func invalidParams(err error) *txjson.RPCError {
	return txjson.NewRPCError(txjson.ErrRPCInvalidParams.Code, err.Error())
}

// lookupChain returns the chain with the given id or an RPC error.
func (s *rpcServer) lookupChain(chainID uint16) (*chain.Chain, error) {
	c, ok := s.cfg.Chains.Get(chainID)
	if !ok {
		return nil, txjson.NewRPCError(txjson.ErrRPCNoChain,
			fmt.Sprintf("chain %d is not served", chainID))
	}
	return c, nil
}

// handleNewTx implements the tx_newTx command.  The transaction is checked,
// recorded in the unconfirmed store and appended to the pending pool.
func handleNewTx(s *rpcServer, req *txjson.Request) (interface{}, error) {
	var cmd txjson.NewTxCmd
	if err := req.UnmarshalParams(&cmd); err != nil {
		return nil, invalidParams(err)
	}
	c, err := s.lookupChain(cmd.ChainID)
	if err != nil {
		return nil, err
	}

	tx, err := wire.DecodeTx(cmd.Tx)
	if err != nil {
		return nil, txjson.NewRPCError(txjson.ErrRPCDeserialization,
			"TX decode failed: "+err.Error())
	}
	if _, err := blockchain.ValidateTransaction(s.cfg.Registry, c.ID(), tx,
		s.cfg.Clock.Now()); err != nil {
		return nil, txjson.NewRPCError(txjson.ErrRPCVerify, err.Error())
	}

	confirmed, err := s.cfg.Confirmed.Has(c.ID(), tx.Hash())
	if err != nil {
		return nil, internalRPCError(err.Error(), "Failed to query confirmed store")
	}
	if confirmed {
		return nil, txjson.NewRPCError(txjson.ErrRPCVerify,
			fmt.Sprintf("transaction %v is already confirmed", tx.Hash()))
	}

	// Packaged transactions leave the pool but stay in the unconfirmed store
	// until committed.
	unconfirmed, err := s.cfg.Unconfirmed.Has(c.ID(), tx.Hash())
	if err != nil {
		return nil, internalRPCError(err.Error(), "Failed to query unconfirmed store")
	}
	if unconfirmed {
		return nil, txjson.NewRPCError(txjson.ErrRPCVerify,
			fmt.Sprintf("transaction %v is already pending", tx.Hash()))
	}

	if err := c.Pool.Add(tx); err != nil {
		code := txjson.ErrRPCMisc
		if errors.Is(err, mempool.ErrTxAlreadyPending) ||
			errors.Is(err, mempool.ErrTxRejected) {
			code = txjson.ErrRPCVerify
		}
		return nil, txjson.NewRPCError(code, err.Error())
	}
	if err := s.cfg.Unconfirmed.Put(c.ID(), tx); err != nil {
		c.Pool.Remove(tx.Hash())
		return nil, txjson.NewRPCError(txjson.ErrRPCDatabase, err.Error())
	}
	s.cfg.Metrics.SetPoolSize(fmt.Sprint(c.ID()), c.Pool.MapSize())

	return &txjson.NewTxResult{Hash: tx.Hash().String()}, nil
}

// handlePackableTxs implements the tx_packableTxs command.
func handlePackableTxs(s *rpcServer, req *txjson.Request) (interface{}, error) {
	var cmd txjson.PackableTxsCmd
	if err := req.UnmarshalParams(&cmd); err != nil {
		return nil, invalidParams(err)
	}
	c, err := s.lookupChain(cmd.ChainID)
	if err != nil {
		return nil, err
	}

	deadline := time.UnixMilli(cmd.EndTimestamp)
	result := &txjson.PackableTxsResult{
		Height: c.BestHeight() + 1,
		List:   []string{},
	}
	tmpl := s.cfg.Packager.Package(c, deadline, cmd.MaxTxDataSize)
	if tmpl != nil {
		result.Height = tmpl.Height
		if len(tmpl.TxHex) > 0 {
			result.List = tmpl.TxHex
		}
	}
	return result, nil
}

// handleBatchVerify implements the tx_batchVerify command.  Rule violations
// are an answer, not an error.
func handleBatchVerify(s *rpcServer, req *txjson.Request) (interface{}, error) {
	var cmd txjson.BatchVerifyCmd
	if err := req.UnmarshalParams(&cmd); err != nil {
		return nil, invalidParams(err)
	}
	c, err := s.lookupChain(cmd.ChainID)
	if err != nil {
		return nil, err
	}

	err = s.cfg.Verifier.VerifyBlockTxs(c.ID(), cmd.TxList, cmd.BlockHeader)
	if err != nil {
		rpcsLog.Infof("Rejected block body of %d transactions on chain "+
			"%d: %v", len(cmd.TxList), c.ID(), err)
	}
	return &txjson.BoolResult{Value: err == nil}, nil
}

// handleSetBestHeight implements the tx_setBestHeight command.
func handleSetBestHeight(s *rpcServer, req *txjson.Request) (interface{}, error) {
	var cmd txjson.SetBestHeightCmd
	if err := req.UnmarshalParams(&cmd); err != nil {
		return nil, invalidParams(err)
	}
	c, err := s.lookupChain(cmd.ChainID)
	if err != nil {
		return nil, err
	}
	c.SetBestHeight(cmd.Height)
	return &txjson.BoolResult{Value: true}, nil
}

// handleProtocolUpgrade implements the tx_protocolUpgrade command.  Clearing
// the flag moves the transactions held back by an interrupted round to the
// front of the pool.
func handleProtocolUpgrade(s *rpcServer, req *txjson.Request) (interface{}, error) {
	var cmd txjson.ProtocolUpgradeCmd
	if err := req.UnmarshalParams(&cmd); err != nil {
		return nil, invalidParams(err)
	}
	c, err := s.lookupChain(cmd.ChainID)
	if err != nil {
		return nil, err
	}

	wasUpgrading := c.Upgrading()
	c.SetUpgrading(cmd.Status)
	if wasUpgrading && !cmd.Status {
		n := s.cfg.Packager.RestoreReplay(c)
		rpcsLog.Infof("Restored %d transactions after protocol upgrade "+
			"on chain %d", n, c.ID())
	}
	return &txjson.BoolResult{Value: true}, nil
}

// standardCmdResult runs the handler of req and converts its outcome to a
// marshalled response.
func (s *rpcServer) standardCmdResult(req *txjson.Request) ([]byte, error) {
	handler, ok := rpcHandlers[req.Method]
	if !ok {
		return txjson.MarshalResponse(req.ID, nil, txjson.ErrRPCMethodNotFound)
	}

	result, err := handler(s, req)
	if err != nil {
		var rpcErr *txjson.RPCError
		if !errors.As(err, &rpcErr) {
			rpcErr = internalRPCError(err.Error(), req.Method)
		}
		return txjson.MarshalResponse(req.ID, nil, rpcErr)
	}
	return txjson.MarshalResponse(req.ID, result, nil)
}
