// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	btcwire "github.com/btcsuite/btcd/wire"
)

const (
	// MaxTxSize is the maximum number of bytes a serialized transaction
	// may occupy.
	MaxTxSize = 300 * 1024

	// maxTxFieldSize is the maximum number of bytes allowed for any single
	// variable length field of a transaction.
	maxTxFieldSize = MaxTxSize

	// pver is the protocol version handed to the var-length helpers.  The
	// encoding does not change between protocol versions.
	pver = 0
)

// MsgTx is the serializable form of a transaction.  The signature field is
// excluded from the hash so that the signer commits to every other field.
//
// Use NewTx to obtain an immutable, hash-cached view of a MsgTx.  A MsgTx must
// not be modified once wrapped.
type MsgTx struct {
	// Type identifies the registered transaction type.  It selects the
	// owning module and its batch validator.
	Type uint16

	// Time is the creation time of the transaction in unix seconds.
	Time uint32

	// TxData carries module specific payload.
	TxData []byte

	// CoinData carries the inputs and outputs checked by the ledger.
	CoinData []byte

	// Remark is free form data attached by the creator.
	Remark []byte

	// Signature is the compressed public key of the signer followed by a
	// DER encoded signature over the transaction hash.  See
	// SignatureParts.
	Signature []byte
}

// writeBody writes every field that is committed to by the transaction hash.
func (msg *MsgTx) writeBody(w io.Writer) error {
	var buf [6]byte
	binary.LittleEndian.PutUint16(buf[0:2], msg.Type)
	binary.LittleEndian.PutUint32(buf[2:6], msg.Time)
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	for _, field := range [][]byte{msg.TxData, msg.CoinData, msg.Remark} {
		if err := btcwire.WriteVarBytes(w, pver, field); err != nil {
			return err
		}
	}
	return nil
}

// Serialize encodes the transaction to w, signature included.
func (msg *MsgTx) Serialize(w io.Writer) error {
	if err := msg.writeBody(w); err != nil {
		return err
	}
	return btcwire.WriteVarBytes(w, pver, msg.Signature)
}

// Deserialize decodes a transaction from r into the receiver.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	var buf [6]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	msg.Type = binary.LittleEndian.Uint16(buf[0:2])
	msg.Time = binary.LittleEndian.Uint32(buf[2:6])

	fields := []struct {
		dst  *[]byte
		name string
	}{
		{&msg.TxData, "TxData"},
		{&msg.CoinData, "CoinData"},
		{&msg.Remark, "Remark"},
		{&msg.Signature, "Signature"},
	}
	for _, f := range fields {
		b, err := btcwire.ReadVarBytes(r, pver, maxTxFieldSize, f.name)
		if err != nil {
			return err
		}
		*f.dst = b
	}
	return nil
}

// Bytes returns the serialized transaction.
func (msg *MsgTx) Bytes() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, msg.SerializeSize()))
	if err := msg.Serialize(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FromBytes deserializes a transaction and rejects trailing bytes.
func (msg *MsgTx) FromBytes(b []byte) error {
	r := bytes.NewReader(b)
	if err := msg.Deserialize(r); err != nil {
		return err
	}
	if r.Len() != 0 {
		return fmt.Errorf("%d trailing bytes after transaction", r.Len())
	}
	return nil
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction.
func (msg *MsgTx) SerializeSize() int {
	n := 6
	for _, field := range [][]byte{msg.TxData, msg.CoinData, msg.Remark,
		msg.Signature} {

		n += btcwire.VarIntSerializeSize(uint64(len(field))) + len(field)
	}
	return n
}

// TxHash computes the double sha256 of the transaction without its
// signature.
func (msg *MsgTx) TxHash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, msg.SerializeSize()))
	_ = msg.writeBody(buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// SignatureParts splits the signature blob into the compressed public key and
// the DER signature.  It returns false when the blob is too short to hold a
// public key.
func (msg *MsgTx) SignatureParts() (pubKey, sig []byte, ok bool) {
	const pubKeyLen = 33
	if len(msg.Signature) <= pubKeyLen {
		return nil, nil, false
	}
	return msg.Signature[:pubKeyLen], msg.Signature[pubKeyLen:], true
}

// Tx is an immutable view of a MsgTx with its hash, size and raw encoding
// cached at construction.
type Tx struct {
	msg  *MsgTx
	hash chainhash.Hash
	raw  []byte
}

// NewTx wraps msg.  The caller must not modify msg afterwards.
func NewTx(msg *MsgTx) (*Tx, error) {
	raw, err := msg.Bytes()
	if err != nil {
		return nil, err
	}
	return &Tx{msg: msg, hash: msg.TxHash(), raw: raw}, nil
}

// NewTxFromBytes decodes a serialized transaction.
func NewTxFromBytes(b []byte) (*Tx, error) {
	var msg MsgTx
	if err := msg.FromBytes(b); err != nil {
		return nil, err
	}
	raw := make([]byte, len(b))
	copy(raw, b)
	return &Tx{msg: &msg, hash: msg.TxHash(), raw: raw}, nil
}

// MsgTx returns the underlying transaction.
func (t *Tx) MsgTx() *MsgTx { return t.msg }

// Hash returns the cached transaction hash.
func (t *Tx) Hash() *chainhash.Hash { return &t.hash }

// Type returns the transaction type id.
func (t *Tx) Type() uint16 { return t.msg.Type }

// Time returns the creation time in unix seconds.
func (t *Tx) Time() uint32 { return t.msg.Time }

// Size returns the serialized size in bytes.
func (t *Tx) Size() int { return len(t.raw) }

// Bytes returns a copy of the serialized transaction.
func (t *Tx) Bytes() []byte {
	b := make([]byte, len(t.raw))
	copy(b, t.raw)
	return b
}
