// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txjson provides the JSON-RPC 2.0 types spoken between txpackd, the
ledger service and the module validators.

Requests carry their parameters by name:

	{"jsonrpc":"2.0","id":1,"method":"tx_newTx",
	 "params":{"chainId":1,"tx":"0200..."}}

Errors follow the JSON-RPC error object.  Errors raised by an external service
carry the service's own code in the data member, for example

	{"code":-40,"message":"double spend","data":"LG_1002"}
*/
package txjson
