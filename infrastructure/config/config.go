// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	"github.com/btcsuite/go-socks/socks"
	"github.com/ibdsync/ibdsync/app/protocol/common"
	"github.com/ibdsync/ibdsync/domain/chainparams"
	"github.com/ibdsync/ibdsync/infrastructure/logger"
	"github.com/ibdsync/ibdsync/version"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

const (
	defaultConfigFilename = "ibdsync.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "ibdsync.log"
	defaultErrLogFilename = "ibdsync_err.log"

	// DefaultConnectTimeout is the default connection timeout when dialing
	DefaultConnectTimeout = time.Second * 30
)

var (
	// DefaultAppDir is the default home directory for ibdsync.
	DefaultAppDir = btcutil.AppDataDir("ibdsync", false)

	defaultConfigFile = filepath.Join(DefaultAppDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(DefaultAppDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(DefaultAppDir, defaultLogDirname)
)

// Flags defines the configuration options for ibdsync.
//
// See LoadConfig for details on the configuration load process.
type Flags struct {
	ShowVersion     bool          `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile      string        `short:"C" long:"configfile" description:"Path to configuration file"`
	AppDir          string        `short:"b" long:"appdir" description:"Directory to store data and logs"`
	LogDir          string        `long:"logdir" description:"Directory to log output."`
	DataDir         string        `long:"datadir" description:"Directory to store downloaded headers and blocks"`
	NoDB            bool          `long:"nodb" description:"Keep downloaded headers and blocks in memory only"`
	Connect         string        `long:"connect" description:"Peer to download the chain from (host[:port])"`
	Proxy           string        `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser       string        `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass       string        `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	TargetHeaders   int           `long:"targetheaders" description:"Number of headers, genesis included, to download before fetching blocks"`
	WindowSize      int           `long:"windowsize" description:"Number of blocks requested together"`
	ResponseTimeout time.Duration `long:"timeout" description:"How long to wait for a response from the peer. Valid time units are {s, m, h}"`
	DebugLevel      string        `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	NetworkFlags
}

// Config defines the configuration options for ibdsync.
//
// See LoadConfig for details on the configuration load process.
type Config struct {
	*Flags
	Dial func(network, address string, timeout time.Duration) (net.Conn, error)
}

// PeerAddress returns the address to connect to, with the network's default
// port appended if Connect doesn't carry one.
func (cfg *Config) PeerAddress() string {
	if _, _, err := net.SplitHostPort(cfg.Connect); err == nil {
		return cfg.Connect
	}
	return net.JoinHostPort(cfg.Connect, cfg.NetParams().DefaultPort)
}

// LogFile returns the path of the main log file.
func (cfg *Config) LogFile() string {
	return filepath.Join(cfg.LogDir, defaultLogFilename)
}

// ErrLogFile returns the path of the warnings-and-above log file.
func (cfg *Config) ErrLogFile() string {
	return filepath.Join(cfg.LogDir, defaultErrLogFilename)
}

func defaultFlags() *Flags {
	return &Flags{
		ConfigFile:      defaultConfigFile,
		AppDir:          DefaultAppDir,
		LogDir:          defaultLogDir,
		DataDir:         defaultDataDir,
		DebugLevel:      defaultLogLevel,
		TargetHeaders:   common.DefaultTargetHeaderCount,
		WindowSize:      common.DefaultWindowSize,
		ResponseTimeout: common.DefaultTimeout,
	}
}

// DefaultConfig returns the default ibdsync configuration
func DefaultConfig() *Config {
	config := &Config{Flags: defaultFlags(), Dial: net.DialTimeout}
	// No network flag is set by default.
	config.ActiveNetParams = chainparams.MainnetParams
	return config
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(DefaultAppDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// LoadConfig initializes and parses the config using a config file and the
// given command line arguments.
//
// The configuration proceeds as follows:
// 	1) Start with a default config with sane settings
// 	2) Pre-parse the command line to check for an alternative config file
// 	3) Load configuration file overwriting defaults with any specified options
// 	4) Parse CLI options and overwrite/add any specified options
//
// Command line options always take precedence.
func LoadConfig(args []string) (*Config, error) {
	cfgFlags := defaultFlags()

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified. Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := *cfgFlags
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if ok := errors.As(err, &flagsErr); ok && flagsErr.Type == flags.ErrHelp {
			return nil, err
		}
	}

	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version.Version())
		os.Exit(0)
	}

	parser := flags.NewParser(cfgFlags, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, errors.Wrapf(err, "error parsing config file %s", preCfg.ConfigFile)
		}
	}

	// Parse command line options again to ensure they take precedence.
	_, err = parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Flags: cfgFlags}
	err = cfg.resolve()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolve validates the parsed flags and fills in every derived value.
func (cfg *Config) resolve() error {
	err := cfg.ResolveNetwork()
	if err != nil {
		return err
	}

	if cfg.DebugLevel == "show" {
		logger.PrintSubsystems()
		os.Exit(0)
	}
	err = logger.ParseAndSetLogLevels(cfg.DebugLevel)
	if err != nil {
		return err
	}

	cfg.AppDir = cleanAndExpandPath(cfg.AppDir)
	// Keep logs and data under a custom appdir unless they were set explicitly.
	if cfg.AppDir != DefaultAppDir {
		if cfg.LogDir == defaultLogDir {
			cfg.LogDir = filepath.Join(cfg.AppDir, defaultLogDirname)
		}
		if cfg.DataDir == defaultDataDir {
			cfg.DataDir = filepath.Join(cfg.AppDir, defaultDataDirname)
		}
	}
	cfg.LogDir = filepath.Join(cleanAndExpandPath(cfg.LogDir), cfg.NetParams().Name)
	cfg.DataDir = filepath.Join(cleanAndExpandPath(cfg.DataDir), cfg.NetParams().Name)

	if cfg.Connect == "" {
		return errors.New("a peer to download from must be given with --connect")
	}
	if cfg.TargetHeaders < 1 {
		return errors.Errorf("--targetheaders must be at least 1, got %d", cfg.TargetHeaders)
	}
	if cfg.WindowSize < 1 || cfg.WindowSize > wire.MaxInvPerMsg {
		return errors.Errorf("--windowsize must be between 1 and %d, got %d", wire.MaxInvPerMsg, cfg.WindowSize)
	}
	if cfg.ResponseTimeout <= 0 {
		return errors.Errorf("--timeout must be positive, got %s", cfg.ResponseTimeout)
	}

	// Setup dial function depending on the specified options. The default is
	// net.DialTimeout. When a proxy is specified, the dial function is set to
	// the proxy specific dial function.
	cfg.Dial = net.DialTimeout
	if cfg.Proxy != "" {
		_, _, err := net.SplitHostPort(cfg.Proxy)
		if err != nil {
			return errors.Errorf("proxy address '%s' is invalid: %s", cfg.Proxy, err)
		}
		proxy := &socks.Proxy{
			Addr:     cfg.Proxy,
			Username: cfg.ProxyUser,
			Password: cfg.ProxyPass,
		}
		cfg.Dial = proxy.DialTimeout
	}
	return nil
}
