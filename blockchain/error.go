// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrTimeout indicates a packaging round ran out of time before the
	// candidate block could be assembled.
	ErrTimeout ErrorCode = iota

	// ErrTxTypeInvalid indicates a transaction type has no registration
	// on the chain.
	ErrTxTypeInvalid

	// ErrTxConfirmed indicates a block includes a transaction that was
	// already committed.
	ErrTxConfirmed

	// ErrLedgerVerifyFail indicates the ledger rejected the coin data of
	// a block.
	ErrLedgerVerifyFail

	// ErrModuleVerifyFail indicates a module validator rejected a
	// transaction or base validation of a transaction failed.
	ErrModuleVerifyFail

	// ErrSerializationFail indicates a transaction or header could not be
	// encoded or decoded.
	ErrSerializationFail

	// ErrTxTooBig indicates a transaction exceeds the maximum allowed
	// size when serialized.
	ErrTxTooBig

	// ErrBadTxTime indicates a transaction timestamp is unset or too far
	// in the future.
	ErrBadTxTime

	// ErrMissingSignature indicates a transaction whose type requires a
	// signature carries none.
	ErrMissingSignature

	// ErrBadSignature indicates the signature of a transaction does not
	// verify.
	ErrBadSignature

	// ErrDuplicateTx indicates a block lists the same transaction more
	// than once.
	ErrDuplicateTx

	// numErrorCodes is the maximum error code number used in tests.
	numErrorCodes
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrTimeout:           "ErrTimeout",
	ErrTxTypeInvalid:     "ErrTxTypeInvalid",
	ErrTxConfirmed:       "ErrTxConfirmed",
	ErrLedgerVerifyFail:  "ErrLedgerVerifyFail",
	ErrModuleVerifyFail:  "ErrModuleVerifyFail",
	ErrSerializationFail: "ErrSerializationFail",
	ErrTxTooBig:          "ErrTxTooBig",
	ErrBadTxTime:         "ErrBadTxTime",
	ErrMissingSignature:  "ErrMissingSignature",
	ErrBadSignature:      "ErrBadSignature",
	ErrDuplicateTx:       "ErrDuplicateTx",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation.  It is used to indicate that
// packaging or verification failed due to one of the validation rules.  The
// caller can use errors.As to determine if a failure was specifically due to
// a rule violation and access the ErrorCode field to ascertain the specific
// reason for the rule violation.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates an RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// IsErrorCode returns whether err is, or wraps, a RuleError with the given
// code.
func IsErrorCode(err error, c ErrorCode) bool {
	var rerr RuleError
	return errors.As(err, &rerr) && rerr.ErrorCode == c
}
