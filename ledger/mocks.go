// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"github.com/stretchr/testify/mock"
)

// MockService is a mock implementation of the Service interface.
type MockService struct {
	mock.Mock
}

// Ensure the MockService implements the Service interface.
var _ Service = (*MockService)(nil)

// BeginBatch starts tracking tentative coin state for a packaging round.
func (m *MockService) BeginBatch(chainID uint16) error {
	args := m.Called(chainID)
	return args.Error(0)
}

// VerifyBatch checks encoded transactions against the tentative state.
func (m *MockService) VerifyBatch(chainID uint16,
	txHex []string) (*BatchResult, error) {

	args := m.Called(chainID, txHex)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*BatchResult), args.Error(1)
}

// VerifyBlockCoinData checks the ordered transactions of a block.
func (m *MockService) VerifyBlockCoinData(chainID uint16, txHex []string,
	height uint64) (bool, error) {

	args := m.Called(chainID, txHex, height)
	return args.Bool(0), args.Error(1)
}
