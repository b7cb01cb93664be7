// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcclient

import (
	"encoding/json"
	"errors"

	"github.com/btcsuite/txpackd/ledger"
	"github.com/btcsuite/txpackd/txjson"
)

var _ ledger.Service = (*Client)(nil)

// ledgerError maps a service error carrying a ledger code to the ledger
// package errors.
func ledgerError(err error) error {
	var rpcErr *txjson.RPCError
	if errors.As(err, &rpcErr) && rpcErr.Data != "" {
		return ledger.ErrorFromCode(rpcErr.Data, rpcErr.Message)
	}
	return err
}

// FutureBeginBatchResult is a future promise to deliver the result of a
// BeginBatchAsync RPC invocation (or an applicable error).
type FutureBeginBatchResult chan *response

// Receive waits for the response promised by the future.
func (r FutureBeginBatchResult) Receive() error {
	_, err := receiveFuture(r)
	return ledgerError(err)
}

// BeginBatchAsync returns an instance of a type that can be used to get the
// result of the RPC at some future time by invoking the Receive function on
// the returned instance.
func (c *Client) BeginBatchAsync(chainID uint16) FutureBeginBatchResult {
	cmd := &txjson.LedgerBatchCmd{ChainID: chainID}
	return c.sendCmd(txjson.MethodLedgerBatchBegin, cmd)
}

// BeginBatch resets the ledger's tentative state for a packaging round.
func (c *Client) BeginBatch(chainID uint16) error {
	return c.BeginBatchAsync(chainID).Receive()
}

// FutureVerifyBatchResult is a future promise to deliver the result of a
// VerifyBatchAsync RPC invocation (or an applicable error).
type FutureVerifyBatchResult chan *response

// Receive waits for the response promised by the future and returns the
// failed and orphaned hashes.
func (r FutureVerifyBatchResult) Receive() (*ledger.BatchResult, error) {
	res, err := receiveFuture(r)
	if err != nil {
		return nil, ledgerError(err)
	}

	var result txjson.LedgerBatchResult
	if err := json.Unmarshal(res, &result); err != nil {
		return nil, err
	}
	return &ledger.BatchResult{Fail: result.Fail, Orphan: result.Orphan}, nil
}

// VerifyBatchAsync is the asynchronous version of VerifyBatch.
func (c *Client) VerifyBatchAsync(chainID uint16, txHex []string) FutureVerifyBatchResult {
	cmd := &txjson.LedgerBatchCmd{ChainID: chainID, TxList: txHex}
	return c.sendCmd(txjson.MethodLedgerVerifyBatch, cmd)
}

// VerifyBatch checks a packaging sub-batch against the round's tentative
// coin state.
func (c *Client) VerifyBatch(chainID uint16, txHex []string) (*ledger.BatchResult, error) {
	return c.VerifyBatchAsync(chainID, txHex).Receive()
}

// FutureVerifyBlockResult is a future promise to deliver the result of a
// VerifyBlockCoinDataAsync RPC invocation (or an applicable error).
type FutureVerifyBlockResult chan *response

// Receive waits for the response promised by the future.
func (r FutureVerifyBlockResult) Receive() (bool, error) {
	res, err := receiveFuture(r)
	if err != nil {
		return false, ledgerError(err)
	}

	var result txjson.BoolResult
	if err := json.Unmarshal(res, &result); err != nil {
		return false, err
	}
	return result.Value, nil
}

// VerifyBlockCoinDataAsync is the asynchronous version of
// VerifyBlockCoinData.
func (c *Client) VerifyBlockCoinDataAsync(chainID uint16, txHex []string,
	height uint64) FutureVerifyBlockResult {

	cmd := &txjson.LedgerBlockCmd{
		ChainID:     chainID,
		TxList:      txHex,
		BlockHeight: height,
	}
	return c.sendCmd(txjson.MethodLedgerVerifyBlock, cmd)
}

// VerifyBlockCoinData checks the coin data of a received block body.
func (c *Client) VerifyBlockCoinData(chainID uint16, txHex []string, height uint64) (bool, error) {
	return c.VerifyBlockCoinDataAsync(chainID, txHex, height).Receive()
}
