// Copyright (c) 2014 The btcsuite developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txjson

import (
	"encoding/json"
	"fmt"
)

// RPCVersion is the only protocol version spoken.
const RPCVersion = "2.0"

// RPCErrorCode represents an error code to be used as a part of an RPCError
// which is in turn used in a JSON-RPC Response object.
type RPCErrorCode int

// RPCError represents an error that is used as a part of a JSON-RPC Response
// object.  Data carries a service specific error code such as "LG_1001".
type RPCError struct {
	Code    RPCErrorCode `json:"code"`
	Message string       `json:"message,omitempty"`
	Data    string       `json:"data,omitempty"`
}

// Guarantee RPCError satisfies the builtin error interface.
var _, _ error = RPCError{}, (*RPCError)(nil)

// Error returns a string describing the RPC error.
func (e RPCError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("%d (%s): %s", e.Code, e.Data, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// NewRPCError constructs a JSON-RPC error suitable for a Response.
func NewRPCError(code RPCErrorCode, message string) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
	}
}

// Request is a JSON-RPC 2.0 request.  Params is a by-name object whose shape
// depends on Method.  ID is kept raw so a server can echo it untouched.
type Request struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// NewRequest returns a request with the given numeric id whose params are
// the JSON encoding of params.
func NewRequest(id uint64, method string, params interface{}) (*Request, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	rawID, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	return &Request{
		Jsonrpc: RPCVersion,
		Method:  method,
		Params:  rawParams,
		ID:      rawID,
	}, nil
}

// UnmarshalParams decodes the request params into v.  Missing params decode
// as an empty object.
func (r *Request) UnmarshalParams(v interface{}) error {
	if len(r.Params) == 0 {
		return nil
	}
	return json.Unmarshal(r.Params, v)
}

// Response is the general form of a JSON-RPC response.
type Response struct {
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// MarshalResponse marshals the id, result, and RPCError to a JSON-RPC
// response byte slice.  A nil id is encoded as null.
func MarshalResponse(id json.RawMessage, result interface{}, rpcErr *RPCError) ([]byte, error) {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	resp := Response{
		Jsonrpc: RPCVersion,
		Error:   rpcErr,
		ID:      id,
	}
	if rpcErr == nil {
		marshalledResult, err := json.Marshal(result)
		if err != nil {
			return nil, err
		}
		resp.Result = marshalledResult
	}
	return json.Marshal(&resp)
}
