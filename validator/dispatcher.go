// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package validator dispatches transactions to the batch validators of the
// modules that own them.
//
// Each module validator is an external entry point that receives every
// transaction of its types together with the block header the transactions
// are checked against, and answers with the hashes it rejects.  The
// Dispatcher invokes the validators of a Groups value concurrently and merges
// the answers in group order so the outcome does not depend on scheduling.
package validator

import (
	"fmt"
	"sync"
	"time"
)

// Invoker calls a module validator.
type Invoker interface {
	// Invoke runs validator cmd over the encoded transactions of chainID
	// in the context of the encoded block header, which may be empty
	// while packaging.  It returns the hashes of rejected transactions.
	Invoke(cmd string, chainID uint16, txHex []string, headerHex string) ([]string, error)
}

// Rejection lists the transactions one validator rejected.
type Rejection struct {
	Module  string
	Command string
	Hashes  []string
}

// Result is the merged answer of every validator of a dispatch.
type Result struct {
	// Rejections holds one entry per validator that rejected anything,
	// in group order.
	Rejections []Rejection
}

// OK reports whether every validator accepted every transaction.
func (r *Result) OK() bool {
	return len(r.Rejections) == 0
}

// Rejected returns every rejected hash in group order.
func (r *Result) Rejected() []string {
	var hashes []string
	for _, rej := range r.Rejections {
		hashes = append(hashes, rej.Hashes...)
	}
	return hashes
}

// Dispatcher fans Groups out to their validators.
type Dispatcher struct {
	invoker Invoker
}

// NewDispatcher returns a Dispatcher calling validators through invoker.
func NewDispatcher(invoker Invoker) *Dispatcher {
	return &Dispatcher{invoker: invoker}
}

type answer struct {
	hashes []string
	err    error
}

// Dispatch invokes the validator of every group concurrently and waits for all
// of them.  When any invocation fails the error of the first failing group in
// group order is returned.
func (d *Dispatcher) Dispatch(chainID uint16, groups *Groups, headerHex string) (*Result, error) {
	start := time.Now()
	grps := groups.Groups()
	answers := make([]answer, len(grps))

	var wg sync.WaitGroup
	for i, grp := range grps {
		wg.Add(1)
		go func(i int, grp *Group) {
			defer wg.Done()
			hashes, err := d.invoker.Invoke(grp.Command, chainID, grp.Txs,
				headerHex)
			answers[i] = answer{hashes: hashes, err: err}
		}(i, grp)
	}
	wg.Wait()

	result := &Result{}
	for i, grp := range grps {
		ans := answers[i]
		if ans.err != nil {
			return nil, fmt.Errorf("module %s validator %s: %w", grp.Module,
				grp.Command, ans.err)
		}
		if len(ans.hashes) == 0 {
			continue
		}
		log.Debugf("Validator %s of module %s rejected %d of %d "+
			"transactions on chain %d", grp.Command, grp.Module,
			len(ans.hashes), len(grp.Txs), chainID)
		result.Rejections = append(result.Rejections, Rejection{
			Module:  grp.Module,
			Command: grp.Command,
			Hashes:  ans.hashes,
		})
	}

	log.Tracef("Dispatched %d groups on chain %d in %v", len(grps), chainID,
		time.Since(start))
	return result, nil
}
