// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/mock"
)

// MockTxRemover is a mock implementation of the TxRemover interface.
type MockTxRemover struct {
	mock.Mock
}

// Ensure the MockTxRemover implements the TxRemover interface.
var _ TxRemover = (*MockTxRemover)(nil)

// Remove removes a transaction from the store.
func (m *MockTxRemover) Remove(chainID uint16, hash *chainhash.Hash) error {
	args := m.Called(chainID, hash)
	return args.Error(0)
}
