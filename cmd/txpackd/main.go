// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/btcsuite/txpackd/blockchain"
	"github.com/btcsuite/txpackd/chain"
	"github.com/btcsuite/txpackd/database/engine"
	"github.com/btcsuite/txpackd/database/engine/leveldb"
	"github.com/btcsuite/txpackd/database/engine/pebbledb"
	"github.com/btcsuite/txpackd/internal/log"
	"github.com/btcsuite/txpackd/internal/metrics"
	"github.com/btcsuite/txpackd/internal/version"
	"github.com/btcsuite/txpackd/mempool"
	"github.com/btcsuite/txpackd/mining"
	"github.com/btcsuite/txpackd/rpcclient"
	"github.com/btcsuite/txpackd/txregistry"
	"github.com/btcsuite/txpackd/txstore"
	"github.com/btcsuite/txpackd/validator"
	flags "github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	txpdLog = log.TxpdLog
	rpcsLog = log.RpcsLog
)

// loadTxDB opens the database backing both transaction stores, creating it
// when it does not exist yet.
func loadTxDB(cfg *config) (engine.Engine, error) {
	dbPath := filepath.Join(cfg.DataDir, "txs_"+cfg.DbType)
	txpdLog.Infof("Loading transaction database from '%s'", dbPath)

	switch cfg.DbType {
	case "pebble":
		return pebbledb.NewDB(dbPath, false, pebbledb.DefaultCache,
			pebbledb.DefaultHandles)
	default:
		return leveldb.NewDB(dbPath, false)
	}
}

// restorePending loads the transactions of the unconfirmed store of c back
// into its pending pool.  It returns the number of transactions loaded.
func restorePending(c *chain.Chain, unconfirmed *txstore.Store) (int, error) {
	hashes, err := unconfirmed.Hashes(c.ID())
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range hashes {
		tx, err := unconfirmed.Get(c.ID(), &hashes[i])
		if err != nil {
			txpdLog.Warnf("Dropping unreadable unconfirmed transaction "+
				"%v on chain %d: %v", hashes[i], c.ID(), err)
			if err := unconfirmed.Remove(c.ID(), &hashes[i]); err != nil {
				return n, err
			}
			continue
		}
		if err := c.Pool.Add(tx); err != nil {
			txpdLog.Debugf("Skipping unconfirmed transaction %v: %v",
				tx.Hash(), err)
			continue
		}
		n++
	}
	return n, nil
}

// newServiceClient connects to the JSON-RPC service at host.
func newServiceClient(cfg *config, host string) (*rpcclient.Client, error) {
	return rpcclient.New(&rpcclient.ConnConfig{
		Host:           host,
		DisableTLS:     !cfg.ServiceTLS,
		RequestTimeout: cfg.RPCTimeout,
	})
}

// txpackdMain is the real main function for txpackd.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func txpackdMain() error {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	log.InitLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	defer func() {
		if log.LogRotator != nil {
			log.LogRotator.Close()
		}
	}()

	// Get a channel that will be closed when a shutdown signal has been
	// triggered either from an OS signal such as SIGINT (Ctrl+C) or from
	// another subsystem.
	interrupt := interruptListener()
	defer txpdLog.Info("Shutdown complete")

	txpdLog.Infof("Version %s", version.String())

	// Enable http profiling server if requested.
	if cfg.Profile != "" {
		go func() {
			listenAddr := cfg.Profile
			if _, _, err := net.SplitHostPort(listenAddr); err != nil {
				listenAddr = net.JoinHostPort("", cfg.Profile)
			}
			txpdLog.Infof("Profile server listening on %s", listenAddr)
			profileRedirect := http.RedirectHandler("/debug/pprof",
				http.StatusSeeOther)
			http.Handle("/", profileRedirect)
			txpdLog.Errorf("%v", http.ListenAndServe(listenAddr, nil))
		}()
	}

	db, err := loadTxDB(cfg)
	if err != nil {
		txpdLog.Errorf("%v", err)
		return err
	}
	defer func() {
		txpdLog.Infof("Gracefully shutting down the database...")
		db.Close()
	}()
	confirmed := txstore.New(db, txstore.Confirmed)
	unconfirmed := txstore.New(db, txstore.Unconfirmed)

	registry := txregistry.New()
	for _, r := range cfg.registrations {
		if err := registry.Register(r.chainID, r.reg); err != nil {
			txpdLog.Errorf("%v", err)
			return err
		}
	}

	ledgerClient, err := newServiceClient(cfg, cfg.LedgerRPC)
	if err != nil {
		txpdLog.Errorf("Unable to connect to ledger service: %v", err)
		return err
	}
	defer ledgerClient.Shutdown()
	moduleClient := ledgerClient
	if cfg.ModuleRPC != cfg.LedgerRPC {
		moduleClient, err = newServiceClient(cfg, cfg.ModuleRPC)
		if err != nil {
			txpdLog.Errorf("Unable to connect to module gateway: %v", err)
			return err
		}
		defer moduleClient.Shutdown()
	}

	var (
		gatherer prometheus.Gatherer
		m        *metrics.Metrics
	)
	if cfg.EnableMetrics {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg)
		gatherer = reg
	}
	dispatcher := validator.NewDispatcher(moduleClient)

	chains := chain.NewManager(&chain.Config{
		Pool:         &mempool.Config{RejectCacheSize: cfg.RejectCacheSize},
		OrphanPolicy: cfg.orphanPolicy(),
	})
	for _, id := range cfg.ChainIDs {
		c, err := chains.Create(id)
		if err != nil {
			txpdLog.Errorf("%v", err)
			return err
		}
		if registry.Count(id) == 0 {
			txpdLog.Warnf("No transaction types registered for chain %d",
				id)
		}
		n, err := restorePending(c, unconfirmed)
		if err != nil {
			txpdLog.Errorf("Unable to restore pending transactions of "+
				"chain %d: %v", id, err)
			return err
		}
		m.SetPoolSize(fmt.Sprint(id), c.Pool.MapSize())
		txpdLog.Infof("Serving chain %d with %d pending %s", id, n,
			log.PickNoun(uint64(n), "transaction", "transactions"))
	}

	if interruptRequested(interrupt) {
		return nil
	}

	packager, err := mining.NewPackager(&mining.Config{
		Policy:      cfg.policy(),
		Registry:    registry,
		Ledger:      ledgerClient,
		Dispatcher:  dispatcher,
		Unconfirmed: unconfirmed,
		Metrics:     m,
	})
	if err != nil {
		txpdLog.Errorf("%v", err)
		return err
	}

	verifier := blockchain.NewVerifier(&blockchain.Config{
		Registry:    registry,
		Ledger:      ledgerClient,
		Dispatcher:  dispatcher,
		Confirmed:   confirmed,
		Unconfirmed: unconfirmed,
		Workers:     cfg.VerifyWorkers,
		Metrics:     m,
	})
	defer verifier.Stop()

	listener, err := net.Listen("tcp", cfg.RPCListen)
	if err != nil {
		txpdLog.Errorf("Unable to listen on %s: %v", cfg.RPCListen, err)
		return err
	}
	server := newRPCServer(&rpcserverConfig{
		Listener:    listener,
		Chains:      chains,
		Registry:    registry,
		Packager:    packager,
		Verifier:    verifier,
		Confirmed:   confirmed,
		Unconfirmed: unconfirmed,
		Metrics:     m,
		Gatherer:    gatherer,
	})
	server.Start()
	defer func() {
		txpdLog.Infof("Gracefully shutting down the RPC server...")
		server.Stop()
	}()

	// Wait until the interrupt signal is received from an OS signal or
	// shutdown is requested through one of the subsystems.
	<-interrupt
	return nil
}

func main() {
	// Block and transaction processing can cause bursty allocations.  This
	// limits the garbage collector from excessively overallocating during
	// bursts.  This value was arrived at with the help of profiling live
	// usage.
	debug.SetGCPercent(20)

	// Work around defer not working after os.Exit()
	if err := txpackdMain(); err != nil {
		var flagsErr *flags.Error
		if errors.Is(err, errShowVersion) ||
			(errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
