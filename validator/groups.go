// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package validator

import (
	"github.com/btcsuite/txpackd/txregistry"
)

// Group is the set of encoded transactions handed to one module validator.
type Group struct {
	// Module is the code of the module owning the transactions.
	Module string

	// Command is the validator command invoked for the group.
	Command string

	// Txs holds the encoded transactions in the order they were added.
	Txs []string
}

// Groups collects encoded transactions per validator command.  Groups are
// kept in the order their first transaction was added, so iterating them is
// deterministic.  A Groups value belongs to a single packaging round or block
// verification and is not safe for concurrent use.
type Groups struct {
	order []*Group
	index map[string]*Group
	count int
}

// NewGroups returns an empty grouping.
func NewGroups() *Groups {
	return &Groups{index: make(map[string]*Group)}
}

// Add appends txHex to the group of the validator registered by reg.
func (g *Groups) Add(reg txregistry.TxRegister, txHex string) {
	grp, ok := g.index[reg.Validator]
	if !ok {
		grp = &Group{Module: reg.ModuleCode, Command: reg.Validator}
		g.index[reg.Validator] = grp
		g.order = append(g.order, grp)
	}
	grp.Txs = append(grp.Txs, txHex)
	g.count++
}

// Groups returns the groups in insertion order.
func (g *Groups) Groups() []*Group {
	return g.order
}

// Len returns the number of groups.
func (g *Groups) Len() int {
	return len(g.order)
}

// TxCount returns the number of transactions across all groups.
func (g *Groups) TxCount() int {
	return g.count
}
