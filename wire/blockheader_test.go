// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

// TestBlockHeaderWire checks the fixed layout of the header fields followed by
// the length prefixed extension.
func TestBlockHeaderWire(t *testing.T) {
	prev := chainhash.DoubleHashH([]byte("prev"))
	root := chainhash.DoubleHashH([]byte("root"))
	h := &BlockHeader{
		Version:    3,
		PrevBlock:  prev,
		MerkleRoot: root,
		Timestamp:  time.Unix(0x65000000, 0),
		Height:     0x0102,
		TxCount:    7,
		Extend:     []byte{0xde, 0xad},
	}

	want := make([]byte, 0, 87)
	want = binary.LittleEndian.AppendUint32(want, 3)
	want = append(want, prev[:]...)
	want = append(want, root[:]...)
	want = binary.LittleEndian.AppendUint32(want, 0x65000000)
	want = binary.LittleEndian.AppendUint64(want, 0x0102)
	want = binary.LittleEndian.AppendUint32(want, 7)
	want = append(want, 0x02, 0xde, 0xad)

	b, err := h.Bytes()
	require.NoError(t, err)
	require.Equal(t, want, b)

	var got BlockHeader
	require.NoError(t, got.FromBytes(b))
	require.True(t, h.Timestamp.Equal(got.Timestamp))
	got.Timestamp = h.Timestamp
	require.Equal(t, h, &got, "decoded header mismatch: %s", spew.Sdump(got))
}

// TestBlockHeaderWireErrors performs negative tests against header decoding.
func TestBlockHeaderWireErrors(t *testing.T) {
	h := &BlockHeader{Timestamp: time.Unix(1700000000, 0), Extend: []byte{1}}
	b, err := h.Bytes()
	require.NoError(t, err)

	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"short fixed part", b[:40]},
		{"missing extension", b[:84]},
		{"short extension", b[:len(b)-1]},
		{"trailing bytes", append(append([]byte{}, b...), 0x00)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var got BlockHeader
			require.Error(t, got.FromBytes(test.buf))
		})
	}

	var got BlockHeader
	err = got.Deserialize(bytes.NewReader(nil))
	require.ErrorIs(t, err, io.EOF)
}

// TestBlockHashCoversExtension ensures every field contributes to the block
// hash.
func TestBlockHashCoversExtension(t *testing.T) {
	h := BlockHeader{Height: 9, Timestamp: time.Unix(1700000000, 0)}
	base := h.BlockHash()

	h.Extend = []byte{0x01}
	require.NotEqual(t, base, h.BlockHash())

	h.Extend = nil
	h.TxCount = 1
	require.NotEqual(t, base, h.BlockHash())
}
