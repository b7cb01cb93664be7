// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// HashSet is a set of transaction hashes.
type HashSet map[chainhash.Hash]struct{}

// Has reports whether hash is in the set.
func (s HashSet) Has(hash *chainhash.Hash) bool {
	_, ok := s[*hash]
	return ok
}

// BatchVerifier is the packaging side of the ledger service.  It turns the
// string hashes of a BatchResult into sets keyed by hash.
type BatchVerifier struct {
	svc Service
}

// NewBatchVerifier returns a BatchVerifier backed by svc.
func NewBatchVerifier(svc Service) *BatchVerifier {
	return &BatchVerifier{svc: svc}
}

// Begin opens a new batch on chainID.
func (v *BatchVerifier) Begin(chainID uint16) error {
	if err := v.svc.BeginBatch(chainID); err != nil {
		return fmt.Errorf("begin ledger batch on chain %d: %w", chainID, err)
	}
	return nil
}

// Verify submits encoded transactions and returns the hashes the ledger
// rejected and the hashes it reported as orphans.
func (v *BatchVerifier) Verify(chainID uint16, txHex []string) (fail, orphan HashSet, err error) {
	res, err := v.svc.VerifyBatch(chainID, txHex)
	if err != nil {
		return nil, nil, fmt.Errorf("verify ledger batch on chain %d: %w",
			chainID, err)
	}
	if res == nil {
		return HashSet{}, HashSet{}, nil
	}

	fail, err = toHashSet(res.Fail)
	if err != nil {
		return nil, nil, err
	}
	orphan, err = toHashSet(res.Orphan)
	if err != nil {
		return nil, nil, err
	}
	log.Debugf("Ledger batch on chain %d: %d submitted, %d failed, %d "+
		"orphaned", chainID, len(txHex), len(fail), len(orphan))
	return fail, orphan, nil
}

func toHashSet(hashes []string) (HashSet, error) {
	set := make(HashSet, len(hashes))
	for _, s := range hashes {
		hash, err := chainhash.NewHashFromStr(s)
		if err != nil {
			return nil, fmt.Errorf("ledger returned bad hash %q: %w", s, err)
		}
		set[*hash] = struct{}{}
	}
	return set, nil
}
