// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package rpcclient implements a websocket JSON-RPC client for the external
services txpackd depends on: the ledger service and the module validators.

A Client satisfies both ledger.Service and validator.Invoker.  Every call
comes in two flavours, following the future pattern:

	err := client.BeginBatch(chainID)

	future := client.VerifyBatchAsync(chainID, txHex)
	// ... other work ...
	result, err := future.Receive()

Requests may be issued from any number of goroutines; they are multiplexed
over one connection.  The client does not reconnect: once the connection
drops, every pending and later request fails with ErrClientDisconnect.

Ledger errors carrying a ledger code are returned as the matching
ledger package error, so callers can test them with errors.Is.
*/
package rpcclient
