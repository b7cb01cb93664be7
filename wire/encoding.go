// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/hex"
	"fmt"
)

// Transactions and headers cross service boundaries as lowercase hex of their
// serialized form.

// EncodeTx returns the transport encoding of tx.
func EncodeTx(tx *Tx) string {
	return hex.EncodeToString(tx.raw)
}

// EncodeMsgTx serializes msg and returns its transport encoding.
func EncodeMsgTx(msg *MsgTx) (string, error) {
	b, err := msg.Bytes()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// DecodeTx decodes a transport encoded transaction.
func DecodeTx(s string) (*Tx, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("malformed transaction encoding: %w", err)
	}
	tx, err := NewTxFromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("malformed transaction: %w", err)
	}
	return tx, nil
}

// EncodeHeader returns the transport encoding of h.
func EncodeHeader(h *BlockHeader) (string, error) {
	b, err := h.Bytes()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// DecodeHeader decodes a transport encoded block header.
func DecodeHeader(s string) (*BlockHeader, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("malformed header encoding: %w", err)
	}
	var h BlockHeader
	if err := h.FromBytes(b); err != nil {
		return nil, fmt.Errorf("malformed header: %w", err)
	}
	return &h, nil
}
