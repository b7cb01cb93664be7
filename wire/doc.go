// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package wire implements the transaction and block header model handled by the
packaging and verification engine.

Transactions are identified by the double sha256 of their serialization with
the signature field omitted.  Once a MsgTx is wrapped by NewTx it is treated as
immutable: its hash, size and raw encoding are computed once and shared by the
pending pool, the packager and the block verifier.

Both transactions and headers travel between modules as hex strings; see
EncodeTx, DecodeTx, EncodeHeader and DecodeHeader.
*/
package wire
