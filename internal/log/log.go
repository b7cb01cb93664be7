// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/btcsuite/txpackd/blockchain"
	"github.com/btcsuite/txpackd/chain"
	"github.com/btcsuite/txpackd/ledger"
	"github.com/btcsuite/txpackd/mempool"
	"github.com/btcsuite/txpackd/mining"
	"github.com/btcsuite/txpackd/rpcclient"
	"github.com/btcsuite/txpackd/txstore"
	"github.com/btcsuite/txpackd/validator"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// logWriter implements an io.Writer that outputs to both standard output and
// the write-end pipe of an initialized log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if LogRotator != nil {
		LogRotator.Write(p)
	}
	return len(p), nil
}

// Loggers per subsystem.  A single backend logger is created and all subsystem
// loggers created from it will write to the backend.  When adding new
// subsystems, add the subsystem logger variable here and to the
// subsystemLoggers map.
//
// Until InitLogRotator is called the loggers write to standard output only.
var (
	// backendLog is the logging backend used to create all subsystem loggers.
	backendLog = btclog.NewBackend(logWriter{})

	// LogRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	LogRotator *rotator.Rotator

	bchnLog = backendLog.Logger("BCHN")
	chanLog = backendLog.Logger("CHAN")
	ldgrLog = backendLog.Logger("LDGR")
	minrLog = backendLog.Logger("MINR")
	rpccLog = backendLog.Logger("RPCC")
	RpcsLog = backendLog.Logger("RPCS")
	TxpdLog = backendLog.Logger("TXPD")
	txdbLog = backendLog.Logger("TXDB")
	txmpLog = backendLog.Logger("TXMP")
	valdLog = backendLog.Logger("VALD")
)

// Initialize package-global logger variables.
func init() {
	blockchain.UseLogger(bchnLog)
	chain.UseLogger(chanLog)
	ledger.UseLogger(ldgrLog)
	mining.UseLogger(minrLog)
	rpcclient.UseLogger(rpccLog)
	txstore.UseLogger(txdbLog)
	mempool.UseLogger(txmpLog)
	validator.UseLogger(valdLog)
}

// SubsystemLoggers maps each subsystem identifier to its associated logger.
var SubsystemLoggers = map[string]btclog.Logger{
	"BCHN": bchnLog,
	"CHAN": chanLog,
	"LDGR": ldgrLog,
	"MINR": minrLog,
	"RPCC": rpccLog,
	"RPCS": RpcsLog,
	"TXPD": TxpdLog,
	"TXDB": txdbLog,
	"TXMP": txmpLog,
	"VALD": valdLog,
}

// SupportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func SupportedSubsystems() []string {
	subsystems := make([]string, 0, len(SubsystemLoggers))
	for subsysID := range SubsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// InitLogRotator initializes the logging rotater to write logs to logFile and
// create roll files in the same directory.  It must be called before the
// package-global log rotater variables are used.
func InitLogRotator(logFile string) {
	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %v\n", err)
		os.Exit(1)
	}

	LogRotator = r
}

// SetLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.
func SetLogLevel(subsystemID string, logLevel string) {
	logger, ok := SubsystemLoggers[subsystemID]
	if !ok {
		return
	}

	// Defaults to info if the log level is invalid.
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets the log level for all subsystem loggers to the passed
// level.
func SetLogLevels(logLevel string) {
	for subsystemID := range SubsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
}

// ValidLogLevel returns whether or not logLevel is a valid debug log level.
func ValidLogLevel(logLevel string) bool {
	_, ok := btclog.LevelFromString(logLevel)
	return ok
}

// PickNoun returns the singular or plural form of a noun depending
// on the count n.
func PickNoun(n uint64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
