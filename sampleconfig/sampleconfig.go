// Copyright (c) 2017 The Decred developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sampleconfig

// FileContents is a string containing the commented example config for
// txpackd.
const FileContents = `[Application Options]

; ------------------------------------------------------------------------------
; Data settings
; ------------------------------------------------------------------------------

; The directory holding the transaction database.  Environment variables are
; expanded so they may be used.
; datadir=~/.txpackd/data

; The directory to write log files to.
; logdir=~/.txpackd/logs

; Database backend of the confirmed and unconfirmed transaction stores.
; Supported backends are leveldb and pebble.
; dbtype=leveldb


; ------------------------------------------------------------------------------
; Chains and transaction types
; ------------------------------------------------------------------------------

; Serve a chain.  Repeat the option to serve several chains.
; chainid=2

; Register a transaction type on a served chain as
; chain:type:module:validator[:nosig].  The validator is the command the module
; gateway answers for the batch validation of the type.  Append :nosig for
; types that carry no signature.
; txtype=2:1:ac:ac_batchValidate:nosig
; txtype=2:2:ac:ac_batchValidate
; txtype=2:10:cc:cc_batchValidate


; ------------------------------------------------------------------------------
; RPC server
; ------------------------------------------------------------------------------

; Interface and port the websocket JSON-RPC server listens on.  Requests are
; served on /ws.
; rpclisten=127.0.0.1:18071

; Serve Prometheus metrics on /metrics of the RPC listener.
; metrics=1


; ------------------------------------------------------------------------------
; External services
; ------------------------------------------------------------------------------

; host:port of the ledger service.
; ledgerrpc=127.0.0.1:18072

; host:port of the gateway answering module validator calls.  Defaults to the
; ledger service.
; modulerpc=127.0.0.1:18072

; Connect to the services over TLS.
; servicetls=1

; Timeout of a single ledger or module request.
; rpctimeout=10s


; ------------------------------------------------------------------------------
; Packaging
; ------------------------------------------------------------------------------

; Time before the deadline at which a packaging round stops collecting.
; reservetime=200ms

; Minimum time before the deadline needed to hand a block over.  Rounds that
; start with less time left produce an empty block.
; rpcreservetime=50ms

; Maximum number of transactions and of cross-chain transactions in a block.
; maxtxcount=10000
; maxcrosschaintxcount=500

; Number of transactions submitted to the ledger service at once.
; verifybatchsize=2000

; Longest wait for new transactions while the pool is empty.
; pollinterval=10ms

; Purge a transaction once it was orphaned this many rounds in a row.  0 keeps
; orphans until the ledger accepts or rejects them.
; maxorphanretries=0

; Number of purged transaction hashes remembered per chain.
; rejectcachesize=5000


; ------------------------------------------------------------------------------
; Block verification
; ------------------------------------------------------------------------------

; Number of base validation goroutines.  0 uses one per CPU.
; verifyworkers=0


; ------------------------------------------------------------------------------
; Debug
; ------------------------------------------------------------------------------

; Debug logging level.
; Valid levels are {trace, debug, info, warn, error, critical}
; You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set
; log level for individual subsystems.  Use txpackd --debuglevel=show to list
; available subsystems.
; debuglevel=info

; The port used to listen for HTTP profile requests.  The profile server will
; be disabled if this option is not specified.  The profile information can be
; accessed at http://localhost:<profileport>/debug/pprof once running.
; profile=6061
`
