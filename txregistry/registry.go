// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txregistry maps transaction types to the module that owns them.
//
// The table is built once at startup from explicit registrations.  Lookups
// never fail loudly: a missing registration is reported through the boolean
// result and callers translate it into their own error.
package txregistry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ModuleCrossChain is the module code that owns cross-chain transfers.
// Transactions registered to it are subject to the per-block cross-chain
// quota.
const ModuleCrossChain = "cc"

// ErrDuplicateRegistration is returned when a transaction type is registered
// twice for the same chain.
var ErrDuplicateRegistration = errors.New("transaction type already registered")

// TxRegister describes the registration of a single transaction type.
type TxRegister struct {
	// TxType is the transaction type id.
	TxType uint16

	// ModuleCode identifies the module that defines the type.
	ModuleCode string

	// Validator is the command of the module's batch validator.
	Validator string

	// VerifySignature reports whether base validation must check the
	// transaction signature.
	VerifySignature bool
}

// CrossChain reports whether the type moves value between chains.
func (r TxRegister) CrossChain() bool {
	return r.ModuleCode == ModuleCrossChain
}

type key struct {
	chainID uint16
	txType  uint16
}

// Registry is the registration table.  It is safe for concurrent use.
type Registry struct {
	mtx  sync.RWMutex
	regs map[key]TxRegister
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{regs: make(map[key]TxRegister)}
}

// Register adds reg for chainID.
func (r *Registry) Register(chainID uint16, reg TxRegister) error {
	if reg.ModuleCode == "" || reg.Validator == "" {
		return fmt.Errorf("incomplete registration for type %d", reg.TxType)
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	k := key{chainID, reg.TxType}
	if _, ok := r.regs[k]; ok {
		return fmt.Errorf("%w: chain %d type %d", ErrDuplicateRegistration,
			chainID, reg.TxType)
	}
	r.regs[k] = reg
	return nil
}

// Lookup returns the registration of txType on chainID.
func (r *Registry) Lookup(chainID uint16, txType uint16) (TxRegister, bool) {
	r.mtx.RLock()
	reg, ok := r.regs[key{chainID, txType}]
	r.mtx.RUnlock()
	return reg, ok
}

// Count returns the number of registrations for chainID.
func (r *Registry) Count(chainID uint16) int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	n := 0
	for k := range r.regs {
		if k.chainID == chainID {
			n++
		}
	}
	return n
}

// ParseRegistration parses a registration of the form
// chain:type:module:validator[:nosig] as accepted on the command line.
func ParseRegistration(s string) (uint16, TxRegister, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 && len(parts) != 5 {
		return 0, TxRegister{}, fmt.Errorf("malformed registration %q", s)
	}

	chainID, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return 0, TxRegister{}, fmt.Errorf("bad chain id in %q: %w", s, err)
	}
	txType, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return 0, TxRegister{}, fmt.Errorf("bad tx type in %q: %w", s, err)
	}

	reg := TxRegister{
		TxType:          uint16(txType),
		ModuleCode:      parts[2],
		Validator:       parts[3],
		VerifySignature: true,
	}
	if len(parts) == 5 {
		if parts[4] != "nosig" {
			return 0, TxRegister{}, fmt.Errorf("unknown flag %q in %q",
				parts[4], s)
		}
		reg.VerifySignature = false
	}
	return uint16(chainID), reg, nil
}
