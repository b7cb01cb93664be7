// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/txpackd/txregistry"
	"github.com/btcsuite/txpackd/wire"
)

const (
	// MaxTimeOffset is the maximum duration a transaction timestamp may be
	// ahead of the local clock.
	MaxTimeOffset = 2 * time.Hour
)

// CheckTransactionSanity performs the base validation of a transaction: the
// checks that depend only on the transaction itself and its registration and
// not on any ledger state.
func CheckTransactionSanity(tx *wire.Tx, reg txregistry.TxRegister, now time.Time) error {
	if tx.Size() > wire.MaxTxSize {
		str := fmt.Sprintf("serialized transaction %v is too big - got "+
			"%d, max %d", tx.Hash(), tx.Size(), wire.MaxTxSize)
		return ruleError(ErrTxTooBig, str)
	}

	if tx.Time() == 0 {
		str := fmt.Sprintf("transaction %v has no timestamp", tx.Hash())
		return ruleError(ErrBadTxTime, str)
	}
	maxTime := now.Add(MaxTimeOffset)
	if txTime := time.Unix(int64(tx.Time()), 0); txTime.After(maxTime) {
		str := fmt.Sprintf("transaction %v timestamp of %v is too far "+
			"in the future", tx.Hash(), txTime)
		return ruleError(ErrBadTxTime, str)
	}

	if !reg.VerifySignature {
		return nil
	}

	msg := tx.MsgTx()
	pubKeyBytes, sigBytes, ok := msg.SignatureParts()
	if !ok {
		str := fmt.Sprintf("transaction %v of type %d requires a "+
			"signature", tx.Hash(), tx.Type())
		return ruleError(ErrMissingSignature, str)
	}
	pubKey, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		str := fmt.Sprintf("transaction %v has a malformed public "+
			"key: %v", tx.Hash(), err)
		return ruleError(ErrBadSignature, str)
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		str := fmt.Sprintf("transaction %v has a malformed "+
			"signature: %v", tx.Hash(), err)
		return ruleError(ErrBadSignature, str)
	}
	if !sig.Verify(tx.Hash()[:], pubKey) {
		str := fmt.Sprintf("signature of transaction %v does not "+
			"verify", tx.Hash())
		return ruleError(ErrBadSignature, str)
	}

	return nil
}

// ValidateTransaction resolves the registration of tx on chainID and runs
// CheckTransactionSanity against it.  An unregistered type is reported with
// ErrTxTypeInvalid.
func ValidateTransaction(registry *txregistry.Registry, chainID uint16,
	tx *wire.Tx, now time.Time) (txregistry.TxRegister, error) {

	reg, ok := registry.Lookup(chainID, tx.Type())
	if !ok {
		str := fmt.Sprintf("transaction %v has unregistered type %d on "+
			"chain %d", tx.Hash(), tx.Type(), chainID)
		return reg, ruleError(ErrTxTypeInvalid, str)
	}
	return reg, CheckTransactionSanity(tx, reg, now)
}
