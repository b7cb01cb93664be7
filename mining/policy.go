// Copyright (c) 2014-2015 The btcsuite developers
// Copyright (c) 2016 The Decred developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"fmt"
	"time"
)

const (
	// DefaultReserveTime is the default time left before the deadline at
	// which collection stops.
	DefaultReserveTime = 200 * time.Millisecond

	// DefaultRPCReserveTime is the default time below which a round is
	// abandoned because too little time is left for final assembly and
	// transport.
	DefaultRPCReserveTime = 50 * time.Millisecond

	// DefaultMaxTxCount is the default maximum number of transactions in
	// a block.
	DefaultMaxTxCount = 10000

	// DefaultMaxCrossChainTxCount is the default maximum number of
	// cross-chain transactions in a block.
	DefaultMaxCrossChainTxCount = 500

	// DefaultVerifyBatchSize is the default number of transactions
	// submitted to the ledger at once.
	DefaultVerifyBatchSize = 2000

	// DefaultPollInterval is the default maximum wait for new transactions
	// while the pool is empty.
	DefaultPollInterval = 10 * time.Millisecond
)

// Policy houses the policy (configuration parameters) which is used to control
// the packaging of candidate blocks.  See the documentation for Package for
// more details on how each of these parameters is used.
type Policy struct {
	// ReserveTime is the time before the deadline at which collection
	// stops and the partial batch is flushed.  A round that starts with
	// less time left produces an empty block.
	ReserveTime time.Duration

	// RPCReserveTime is the minimum time that must be left before the
	// deadline for the collected transactions to be handed over.  A round
	// that crosses it is abandoned.
	RPCReserveTime time.Duration

	// MaxTxCount is the maximum number of transactions in a block.
	MaxTxCount int

	// MaxCrossChainTxCount is the maximum number of cross-chain
	// transactions in a block.
	MaxCrossChainTxCount int

	// VerifyBatchSize is the number of transactions collected before they
	// are submitted to the ledger.
	VerifyBatchSize int

	// PollInterval bounds how long collection waits for new transactions
	// when the pool is empty.
	PollInterval time.Duration
}

// DefaultPolicy returns the default packaging policy.
func DefaultPolicy() Policy {
	return Policy{
		ReserveTime:          DefaultReserveTime,
		RPCReserveTime:       DefaultRPCReserveTime,
		MaxTxCount:           DefaultMaxTxCount,
		MaxCrossChainTxCount: DefaultMaxCrossChainTxCount,
		VerifyBatchSize:      DefaultVerifyBatchSize,
		PollInterval:         DefaultPollInterval,
	}
}

// Validate returns an error when the policy cannot drive a packaging round.
func (p *Policy) Validate() error {
	switch {
	case p.ReserveTime < 0 || p.RPCReserveTime < 0:
		return fmt.Errorf("reserve times must not be negative")
	case p.MaxTxCount <= 0:
		return fmt.Errorf("max tx count must be positive")
	case p.MaxCrossChainTxCount < 0:
		return fmt.Errorf("max cross-chain tx count must not be negative")
	case p.VerifyBatchSize <= 0:
		return fmt.Errorf("verify batch size must be positive")
	case p.PollInterval <= 0:
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}
