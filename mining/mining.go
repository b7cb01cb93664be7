// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2016 The Decred developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/txpackd/txregistry"
	"github.com/btcsuite/txpackd/wire"
)

// Template houses a candidate block's transaction set.
type Template struct {
	// Height is the height of the block the transactions were packaged
	// for.
	Height int64

	// Txs holds the packaged transactions in block order.
	Txs []*wire.Tx

	// TxHex holds the transport encoding of each transaction of Txs.
	TxHex []string

	// Size is the total serialized size of Txs.
	Size uint64

	// CrossChainCount is the number of cross-chain transactions in Txs.
	CrossChainCount int
}

// TxRemover removes transactions from a store.  The packager uses it to drop
// permanently invalid transactions from the unconfirmed store.
type TxRemover interface {
	Remove(chainID uint16, hash *chainhash.Hash) error
}

// txDesc is a transaction taken from the pool along with its registration and
// cached transport encoding.
type txDesc struct {
	tx  *wire.Tx
	reg txregistry.TxRegister
	hex string
}
