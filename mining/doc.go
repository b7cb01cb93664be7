// Copyright (c) 2016 The Decred developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package mining assembles the transaction set of candidate blocks.

Overview

A Packager drains the pending pool of a chain under a wall-clock deadline and
a byte budget.  Transactions are submitted to the ledger in batches; those the
ledger rejects are purged, those it reports as orphans go back to the front of
the pool, and the rest form the candidate block.  Module validators are
consulted afterwards for preparation only: their verdict is enforced when the
block is verified.

A round never fails loudly.  Timeouts, protocol upgrades and service errors
return every transaction the round took to the pool and degrade to a nil
Template, the signal to produce an empty block.
*/
package mining
