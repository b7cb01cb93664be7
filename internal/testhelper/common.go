// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package testhelper provides transaction builders shared by the package
// tests.
package testhelper

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/txpackd/wire"
)

// baseTime is the creation time stamped on generated transactions.
const baseTime = 1700000000

// PrivKey is the deterministic signing key used by the tests.
var PrivKey, _ = btcec.PrivKeyFromBytes(chainhash.HashB([]byte("txpackd test key")))

// NewMsgTx creates an unsigned transaction of the given type.  The nonce is
// stored in the coin data so every (txType, nonce) pair yields a unique hash,
// and the coin data is padded to pad bytes to control the serialized size.
func NewMsgTx(txType uint16, nonce uint64, pad int) *wire.MsgTx {
	if pad < 8 {
		pad = 8
	}
	coinData := make([]byte, pad)
	binary.LittleEndian.PutUint64(coinData, nonce)
	return &wire.MsgTx{
		Type:     txType,
		Time:     baseTime,
		TxData:   []byte{byte(txType)},
		CoinData: coinData,
	}
}

// Sign signs msg with key in place.
func Sign(msg *wire.MsgTx, key *btcec.PrivateKey) {
	hash := msg.TxHash()
	sig := ecdsa.Sign(key, hash[:])
	blob := key.PubKey().SerializeCompressed()
	msg.Signature = append(blob, sig.Serialize()...)
}

// NewTx returns a signed, wrapped transaction.  It panics on failure since it
// is only used with well-formed inputs.
func NewTx(txType uint16, nonce uint64) *wire.Tx {
	return NewSizedTx(txType, nonce, 8)
}

// NewSizedTx is like NewTx with the coin data padded to pad bytes.
func NewSizedTx(txType uint16, nonce uint64, pad int) *wire.Tx {
	msg := NewMsgTx(txType, nonce, pad)
	Sign(msg, PrivKey)
	tx, err := wire.NewTx(msg)
	if err != nil {
		panic(err)
	}
	return tx
}

// Encode returns the transport encodings of txs.
func Encode(txs ...*wire.Tx) []string {
	out := make([]string, 0, len(txs))
	for _, tx := range txs {
		out = append(out, wire.EncodeTx(tx))
	}
	return out
}

// HashStrings returns the string form of the hashes of txs.
func HashStrings(txs ...*wire.Tx) []string {
	out := make([]string, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.Hash().String())
	}
	return out
}
