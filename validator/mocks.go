// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package validator

import (
	"github.com/stretchr/testify/mock"
)

// MockInvoker is a mock implementation of the Invoker interface.
type MockInvoker struct {
	mock.Mock
}

// Ensure the MockInvoker implements the Invoker interface.
var _ Invoker = (*MockInvoker)(nil)

// Invoke runs a module validator.
func (m *MockInvoker) Invoke(cmd string, chainID uint16, txHex []string,
	headerHex string) ([]string, error) {

	args := m.Called(cmd, chainID, txHex, headerHex)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}
