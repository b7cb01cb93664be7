// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txjson

// Methods served by txpackd.
const (
	MethodNewTx           = "tx_newTx"
	MethodPackableTxs     = "tx_packableTxs"
	MethodBatchVerify     = "tx_batchVerify"
	MethodSetBestHeight   = "tx_setBestHeight"
	MethodProtocolUpgrade = "tx_protocolUpgrade"
)

// Methods txpackd calls on the ledger service.  Module validators are called
// by their registered command name.
const (
	MethodLedgerBatchBegin  = "batchValidateBegin"
	MethodLedgerVerifyBatch = "verifyCoinDataBatchPackaged"
	MethodLedgerVerifyBlock = "verifyBlockTxsCoinData"
)

// NewTxCmd submits an encoded transaction to a chain's pending pool.
type NewTxCmd struct {
	ChainID uint16 `json:"chainId"`
	Tx      string `json:"tx"`
}

// NewTxResult is the reply to tx_newTx.
type NewTxResult struct {
	Hash string `json:"hash"`
}

// PackableTxsCmd asks for a candidate block body.  EndTimestamp is the round
// deadline in unix milliseconds.
type PackableTxsCmd struct {
	ChainID       uint16 `json:"chainId"`
	EndTimestamp  int64  `json:"endTimestamp"`
	MaxTxDataSize uint64 `json:"maxTxDataSize"`
}

// PackableTxsResult is the reply to tx_packableTxs.  An empty list is a valid
// answer.
type PackableTxsResult struct {
	Height int64    `json:"height"`
	List   []string `json:"list"`
}

// BatchVerifyCmd asks whether a received block body is acceptable.
type BatchVerifyCmd struct {
	ChainID     uint16   `json:"chainId"`
	TxList      []string `json:"txList"`
	BlockHeader string   `json:"blockHeader"`
}

// BoolResult wraps a boolean reply.
type BoolResult struct {
	Value bool `json:"value"`
}

type SetBestHeightCmd struct {
	ChainID uint16 `json:"chainId"`
	Height  int64  `json:"height"`
}

// ProtocolUpgradeCmd raises or clears a chain's upgrade flag.
type ProtocolUpgradeCmd struct {
	ChainID uint16 `json:"chainId"`
	Status  bool   `json:"status"`
}

// LedgerBatchCmd is the params of the ledger batch methods.  TxList is empty
// for batchValidateBegin.
type LedgerBatchCmd struct {
	ChainID uint16   `json:"chainId"`
	TxList  []string `json:"txList,omitempty"`
}

// LedgerBatchResult lists failed and orphaned hashes.
type LedgerBatchResult struct {
	Fail   []string `json:"fail"`
	Orphan []string `json:"orphan"`
}

type LedgerBlockCmd struct {
	ChainID     uint16   `json:"chainId"`
	TxList      []string `json:"txList"`
	BlockHeight uint64   `json:"blockHeight"`
}

// ModuleValidateCmd is the params of a module validator call.  BlockHeader
// is empty while packaging.
type ModuleValidateCmd struct {
	ChainID     uint16   `json:"chainId"`
	TxList      []string `json:"txList"`
	BlockHeader string   `json:"blockHeader,omitempty"`
}

// ModuleValidateResult lists the hashes a validator rejected.
type ModuleValidateResult struct {
	List []string `json:"list"`
}
