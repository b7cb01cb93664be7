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
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	btcwire "github.com/btcsuite/btcd/wire"
)

// maxExtendSize is the maximum number of bytes of the header extension field.
const maxExtendSize = 64 * 1024

// BlockHeader defines the portion of a block header the transaction engine
// needs.  Module validators receive the full encoded header as context.
type BlockHeader struct {
	// Version of the block.
	Version int32

	// Hash of the previous block in the chain.
	PrevBlock chainhash.Hash

	// Merkle tree reference to hash of all transactions for the block.
	MerkleRoot chainhash.Hash

	// Time the block was created.  Encoded as unix seconds.
	Timestamp time.Time

	// Height is the block height in the chain.
	Height uint64

	// TxCount is the number of transactions in the block.
	TxCount uint32

	// Extend carries consensus specific data.
	Extend []byte
}

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	var buf bytes.Buffer
	_ = h.Serialize(&buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// Serialize encodes the header to w.
func (h *BlockHeader) Serialize(w io.Writer) error {
	var buf [4 + 2*chainhash.HashSize + 4 + 8 + 4]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Version))
	copy(buf[4:36], h.PrevBlock[:])
	copy(buf[36:68], h.MerkleRoot[:])
	binary.LittleEndian.PutUint32(buf[68:72], uint32(h.Timestamp.Unix()))
	binary.LittleEndian.PutUint64(buf[72:80], h.Height)
	binary.LittleEndian.PutUint32(buf[80:84], h.TxCount)
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	return btcwire.WriteVarBytes(w, pver, h.Extend)
}

// Deserialize decodes a header from r into the receiver.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	var buf [4 + 2*chainhash.HashSize + 4 + 8 + 4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	h.Version = int32(binary.LittleEndian.Uint32(buf[0:4]))
	copy(h.PrevBlock[:], buf[4:36])
	copy(h.MerkleRoot[:], buf[36:68])
	h.Timestamp = time.Unix(int64(binary.LittleEndian.Uint32(buf[68:72])), 0)
	h.Height = binary.LittleEndian.Uint64(buf[72:80])
	h.TxCount = binary.LittleEndian.Uint32(buf[80:84])

	extend, err := btcwire.ReadVarBytes(r, pver, maxExtendSize, "Extend")
	if err != nil {
		return err
	}
	h.Extend = extend
	return nil
}

// Bytes returns the serialized header.
func (h *BlockHeader) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := h.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FromBytes deserializes a header and rejects trailing bytes.
func (h *BlockHeader) FromBytes(b []byte) error {
	r := bytes.NewReader(b)
	if err := h.Deserialize(r); err != nil {
		return err
	}
	if r.Len() != 0 {
		return fmt.Errorf("%d trailing bytes after block header", r.Len())
	}
	return nil
}
