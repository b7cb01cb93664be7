// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/txpackd/chain"
	"github.com/btcsuite/txpackd/internal/log"
	"github.com/btcsuite/txpackd/internal/version"
	"github.com/btcsuite/txpackd/mining"
	"github.com/btcsuite/txpackd/sampleconfig"
	"github.com/btcsuite/txpackd/txregistry"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "txpackd.conf"
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "txpackd.log"
	defaultLogLevel       = "info"
	defaultDbType         = "leveldb"
	defaultRPCListen      = "127.0.0.1:18071"
	defaultServiceHost    = "127.0.0.1:18072"
)

var (
	defaultHomeDir    = btcutil.AppDataDir("txpackd", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
	knownDbTypes      = []string{"leveldb", "pebble"}
)

// config defines the configuration options for txpackd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir     string `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir      string `long:"logdir" description:"Directory to log output"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	DbType      string `long:"dbtype" description:"Database backend to use for the transaction stores {leveldb, pebble}"`
	Profile     string `long:"profile" description:"Enable HTTP profiling on given [addr:]port -- NOTE port must be between 1024 and 65536"`

	ChainIDs []uint16 `long:"chainid" description:"Serve the chain with this id -- may be repeated"`
	TxTypes  []string `long:"txtype" description:"Register a transaction type as chain:type:module:validator[:nosig] -- may be repeated"`

	RPCListen     string `long:"rpclisten" description:"Listen for websocket JSON-RPC connections on this interface/port"`
	EnableMetrics bool   `long:"metrics" description:"Serve Prometheus metrics on /metrics of the RPC listener"`

	LedgerRPC  string        `long:"ledgerrpc" description:"host:port of the ledger service"`
	ModuleRPC  string        `long:"modulerpc" description:"host:port of the module validator gateway (default: same as --ledgerrpc)"`
	ServiceTLS bool          `long:"servicetls" description:"Use TLS for the ledger and module connections"`
	RPCTimeout time.Duration `long:"rpctimeout" description:"Timeout of a single ledger or module request"`

	ReserveTime          time.Duration `long:"reservetime" description:"Time before the deadline at which packaging stops collecting"`
	RPCReserveTime       time.Duration `long:"rpcreservetime" description:"Minimum time before the deadline needed to hand a block over"`
	MaxTxCount           int           `long:"maxtxcount" description:"Maximum number of transactions in a block"`
	MaxCrossChainTxCount int           `long:"maxcrosschaintxcount" description:"Maximum number of cross-chain transactions in a block"`
	VerifyBatchSize      int           `long:"verifybatchsize" description:"Number of transactions submitted to the ledger at once"`
	PollInterval         time.Duration `long:"pollinterval" description:"Longest wait for new transactions while the pool is empty"`
	MaxOrphanRetries     uint32        `long:"maxorphanretries" description:"Purge a transaction after it was orphaned this many rounds in a row -- 0 keeps orphans"`
	RejectCacheSize      uint          `long:"rejectcachesize" description:"Number of purged transaction hashes remembered per chain"`
	VerifyWorkers        int           `long:"verifyworkers" description:"Number of base validation goroutines -- 0 uses one per CPU"`

	registrations []registration
}

// registration is a parsed --txtype entry.
type registration struct {
	chainID uint16
	reg     txregistry.TxRegister
}

// policy returns the packaging policy described by the config.
func (cfg *config) policy() mining.Policy {
	return mining.Policy{
		ReserveTime:          cfg.ReserveTime,
		RPCReserveTime:       cfg.RPCReserveTime,
		MaxTxCount:           cfg.MaxTxCount,
		MaxCrossChainTxCount: cfg.MaxCrossChainTxCount,
		VerifyBatchSize:      cfg.VerifyBatchSize,
		PollInterval:         cfg.PollInterval,
	}
}

// orphanPolicy returns the orphan eviction policy described by the config.
func (cfg *config) orphanPolicy() chain.OrphanPolicy {
	if cfg.MaxOrphanRetries == 0 {
		return chain.NeverEvict
	}
	return chain.MaxRetriesPolicy(cfg.MaxOrphanRetries)
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// validDbType returns whether or not dbType is a supported database type.
func validDbType(dbType string) bool {
	for _, knownType := range knownDbTypes {
		if dbType == knownType {
			return true
		}
	}
	return false
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if !log.ValidLogLevel(debugLevel) {
			return fmt.Errorf("the specified debug level [%v] is invalid",
				debugLevel)
		}
		log.SetLogLevels(debugLevel)
		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			return fmt.Errorf("the specified debug level contains an "+
				"invalid subsystem/level pair [%v]", logLevelPair)
		}

		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		if _, exists := log.SubsystemLoggers[subsysID]; !exists {
			return fmt.Errorf("the specified subsystem [%v] is invalid "+
				"-- supported subsystems %v", subsysID,
				log.SupportedSubsystems())
		}
		if !log.ValidLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%v] is invalid",
				logLevel)
		}
		log.SetLogLevel(subsysID, logLevel)
	}
	return nil
}

// createDefaultConfigFile writes the sample configuration to destPath.
func createDefaultConfigFile(destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0700); err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte(sampleconfig.FileContents), 0600)
}

// errShowVersion is returned by loadConfig when only the version was
// requested.
var errShowVersion = errors.New("version requested")

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func loadConfig(args []string) (*config, error) {
	policy := mining.DefaultPolicy()
	cfg := config{
		ConfigFile:           defaultConfigFile,
		DataDir:              defaultDataDir,
		LogDir:               defaultLogDir,
		DebugLevel:           defaultLogLevel,
		DbType:               defaultDbType,
		RPCListen:            defaultRPCListen,
		LedgerRPC:            defaultServiceHost,
		RPCTimeout:           10 * time.Second,
		ReserveTime:          policy.ReserveTime,
		RPCReserveTime:       policy.RPCReserveTime,
		MaxTxCount:           policy.MaxTxCount,
		MaxCrossChainTxCount: policy.MaxCrossChainTxCount,
		VerifyBatchSize:      policy.VerifyBatchSize,
		PollInterval:         policy.PollInterval,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, err
	}

	if preCfg.ShowVersion {
		fmt.Println("txpackd version", version.String())
		return nil, errShowVersion
	}

	// Create the home directory and a commented default config file when
	// running with the default config for the first time.
	if preCfg.ConfigFile == defaultConfigFile {
		if _, err := os.Stat(defaultConfigFile); os.IsNotExist(err) {
			err := createDefaultConfigFile(defaultConfigFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating a default "+
					"config file: %v\n", err)
			}
		}
	}

	// Load additional config from file.
	parser := flags.NewParser(&cfg, flags.Default)
	err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return nil, err
		}
		if preCfg.ConfigFile != defaultConfigFile {
			return nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	funcName := "loadConfig"
	fail := func(format string, a ...interface{}) (*config, error) {
		err := fmt.Errorf("%s: "+format, append([]interface{}{funcName}, a...)...)
		fmt.Fprintln(os.Stderr, err)
		return nil, err
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", log.SupportedSubsystems())
		return nil, errShowVersion
	}
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return fail("%v", err)
	}

	if !validDbType(cfg.DbType) {
		return fail("the specified database type [%v] is invalid -- "+
			"supported types %v", cfg.DbType, knownDbTypes)
	}

	if len(cfg.ChainIDs) == 0 {
		return fail("at least one --chainid is required")
	}
	seen := make(map[uint16]struct{}, len(cfg.ChainIDs))
	for _, id := range cfg.ChainIDs {
		if _, ok := seen[id]; ok {
			return fail("chain %d given more than once", id)
		}
		seen[id] = struct{}{}
	}

	for _, s := range cfg.TxTypes {
		chainID, reg, err := txregistry.ParseRegistration(s)
		if err != nil {
			return fail("%v", err)
		}
		if _, ok := seen[chainID]; !ok {
			return fail("transaction type %q registered for unserved "+
				"chain %d", s, chainID)
		}
		cfg.registrations = append(cfg.registrations,
			registration{chainID: chainID, reg: reg})
	}

	if cfg.LedgerRPC == "" {
		return fail("--ledgerrpc must not be empty")
	}
	if cfg.ModuleRPC == "" {
		cfg.ModuleRPC = cfg.LedgerRPC
	}

	policy = cfg.policy()
	if err := policy.Validate(); err != nil {
		return fail("invalid packaging policy: %v", err)
	}
	if cfg.VerifyWorkers < 0 {
		return fail("--verifyworkers must not be negative")
	}

	return &cfg, nil
}
