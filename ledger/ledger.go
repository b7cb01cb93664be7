// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ledger adapts the external ledger service that checks the coin data
// of transactions.
//
// A packaging round opens a batch with BeginBatch and then submits its
// transactions in one or more VerifyBatch calls.  The service accumulates
// tentative coin state across the calls of a round so that spend conflicts
// between sub-batches are caught.  Received blocks are checked as a whole with
// VerifyBlockCoinData.
package ledger

import (
	"errors"
	"fmt"
)

// BatchResult is the outcome of a VerifyBatch call.  Both lists hold
// transaction hashes in their string form.  Transactions in neither list
// passed.
type BatchResult struct {
	// Fail lists transactions the ledger rejected permanently.
	Fail []string `json:"fail"`

	// Orphan lists transactions whose inputs are not visible yet.
	Orphan []string `json:"orphan"`
}

// Service is the ledger service consumed by packaging and block verification.
type Service interface {
	// BeginBatch starts tracking tentative coin state for a packaging
	// round on chainID.
	BeginBatch(chainID uint16) error

	// VerifyBatch checks encoded transactions against the state tracked
	// since the last BeginBatch.
	VerifyBatch(chainID uint16, txHex []string) (*BatchResult, error)

	// VerifyBlockCoinData checks the ordered transactions of a block at
	// the given height.
	VerifyBlockCoinData(chainID uint16, txHex []string, height uint64) (bool, error)
}

// Errors reported by the ledger service.
var (
	ErrTxWrong      = errors.New("ledger: malformed transaction")
	ErrChainInit    = errors.New("ledger: chain initialization failed")
	ErrOrphan       = errors.New("ledger: orphan transaction")
	ErrDoubleSpend  = errors.New("ledger: double spend")
	ErrTxExists     = errors.New("ledger: transaction exists")
	ErrValidateFail = errors.New("ledger: validation failed")
)

var codeErrors = map[string]error{
	"LG_0001": ErrTxWrong,
	"LG_0002": ErrChainInit,
	"LG_1001": ErrOrphan,
	"LG_1002": ErrDoubleSpend,
	"LG_1003": ErrTxExists,
	"LG_1010": ErrValidateFail,
}

// ErrorFromCode maps an error code returned by the ledger service to one of
// the package errors.  Unknown codes produce a generic error that carries the
// code and message.
func ErrorFromCode(code, msg string) error {
	if err, ok := codeErrors[code]; ok {
		if msg == "" {
			return err
		}
		return fmt.Errorf("%w: %s", err, msg)
	}
	return fmt.Errorf("ledger error %s: %s", code, msg)
}
