// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package validator

import (
	"errors"
	"testing"
	"time"

	"github.com/btcsuite/txpackd/txregistry"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	regAC = txregistry.TxRegister{TxType: 2, ModuleCode: "ac",
		Validator: "ac_batchValidate"}
	regCC = txregistry.TxRegister{TxType: 10, ModuleCode: "cc",
		Validator: "cc_batchValidate"}
	regCS = txregistry.TxRegister{TxType: 4, ModuleCode: "cs",
		Validator: "cs_batchValidate"}
)

func TestGroups(t *testing.T) {
	g := NewGroups()
	g.Add(regCC, "c1")
	g.Add(regAC, "a1")
	g.Add(regCC, "c2")

	require.Equal(t, 2, g.Len())
	require.Equal(t, 3, g.TxCount())

	grps := g.Groups()
	require.Equal(t, "cc_batchValidate", grps[0].Command)
	require.Equal(t, []string{"c1", "c2"}, grps[0].Txs)
	require.Equal(t, "ac", grps[1].Module)
	require.Equal(t, []string{"a1"}, grps[1].Txs)
}

// TestDispatchDeterministic ensures rejections are merged in group order no
// matter which validator answers first.
func TestDispatchDeterministic(t *testing.T) {
	g := NewGroups()
	g.Add(regAC, "a1")
	g.Add(regCC, "c1")
	g.Add(regCS, "s1")

	inv := &MockInvoker{}
	inv.On("Invoke", "ac_batchValidate", uint16(1), []string{"a1"}, "hdr").
		After(30*time.Millisecond).Return([]string{"ha"}, nil)
	inv.On("Invoke", "cc_batchValidate", uint16(1), []string{"c1"}, "hdr").
		Return([]string{}, nil)
	inv.On("Invoke", "cs_batchValidate", uint16(1), []string{"s1"}, "hdr").
		Return([]string{"hs1", "hs2"}, nil)

	res, err := NewDispatcher(inv).Dispatch(1, g, "hdr")
	require.NoError(t, err)
	require.False(t, res.OK())
	require.Len(t, res.Rejections, 2)
	require.Equal(t, "ac", res.Rejections[0].Module)
	require.Equal(t, []string{"ha", "hs1", "hs2"}, res.Rejected())
	inv.AssertExpectations(t)
}

func TestDispatchError(t *testing.T) {
	g := NewGroups()
	g.Add(regAC, "a1")
	g.Add(regCC, "c1")

	errDown := errors.New("module down")
	inv := &MockInvoker{}
	inv.On("Invoke", "ac_batchValidate", mock.Anything, mock.Anything,
		mock.Anything).Return(nil, nil)
	inv.On("Invoke", "cc_batchValidate", mock.Anything, mock.Anything,
		mock.Anything).Return(nil, errDown)

	_, err := NewDispatcher(inv).Dispatch(1, g, "")
	require.ErrorIs(t, err, errDown)
	require.Contains(t, err.Error(), "cc_batchValidate")
}

func TestDispatchEmpty(t *testing.T) {
	res, err := NewDispatcher(&MockInvoker{}).Dispatch(1, NewGroups(), "")
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Empty(t, res.Rejected())
}
