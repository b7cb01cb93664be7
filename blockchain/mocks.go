// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/mock"
)

// MockTxExistence is a mock implementation of the TxExistence interface.
type MockTxExistence struct {
	mock.Mock
}

// Ensure the MockTxExistence implements the TxExistence interface.
var _ TxExistence = (*MockTxExistence)(nil)

// Existing returns the subset of hashes present on the chain.
func (m *MockTxExistence) Existing(chainID uint16,
	hashes []chainhash.Hash) ([]chainhash.Hash, error) {

	args := m.Called(chainID, hashes)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]chainhash.Hash), args.Error(1)
}
