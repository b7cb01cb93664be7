// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcclient

import (
	"encoding/json"

	"github.com/btcsuite/txpackd/txjson"
	"github.com/btcsuite/txpackd/validator"
)

var _ validator.Invoker = (*Client)(nil)

// FutureInvokeResult is a future promise to deliver the result of an
// InvokeAsync RPC invocation (or an applicable error).
type FutureInvokeResult chan *response

// Receive waits for the response promised by the future and returns the
// rejected hashes.
func (r FutureInvokeResult) Receive() ([]string, error) {
	res, err := receiveFuture(r)
	if err != nil {
		return nil, err
	}

	var result txjson.ModuleValidateResult
	if err := json.Unmarshal(res, &result); err != nil {
		return nil, err
	}
	return result.List, nil
}

// InvokeAsync calls the module validator registered under cmd.
func (c *Client) InvokeAsync(cmd string, chainID uint16, txHex []string,
	headerHex string) FutureInvokeResult {

	params := &txjson.ModuleValidateCmd{
		ChainID:     chainID,
		TxList:      txHex,
		BlockHeader: headerHex,
	}
	return c.sendCmd(cmd, params)
}

// Invoke calls a module validator and returns the hashes it rejected.
func (c *Client) Invoke(cmd string, chainID uint16, txHex []string, headerHex string) ([]string, error) {
	return c.InvokeAsync(cmd, chainID, txHex, headerHex).Receive()
}
