package hdcfg

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/hdchain/build"
	"github.com/lightningnetwork/hdchain/hdkey"
)

const (
	// DefaultConfigFilename is the default configuration file name.
	DefaultConfigFilename = "hdkey.conf"

	// DefaultNetwork is the network used when none is configured.
	DefaultNetwork = "mainnet"

	// DefaultDebugLevel is the default log level of every subsystem.
	DefaultDebugLevel = "info"

	// DefaultScanCount is the number of children a scan derives when the
	// caller does not say otherwise.
	DefaultScanCount = 20

	// MaxScanCount bounds the number of children a single scan may
	// derive.
	MaxScanCount = 1 << 20
)

var (
	// DefaultHdkeyDir is the default directory holding the config file.
	DefaultHdkeyDir = btcutil.AppDataDir("hdkey", false)

	// DefaultConfigFile is the default full path of the config file.
	DefaultConfigFile = filepath.Join(DefaultHdkeyDir, DefaultConfigFilename)
)

// Scan holds the options of the bulk public key scan.
//
//nolint:lll
type Scan struct {
	// Concurrency is the maximum number of derivations running at once.
	// Zero means one per CPU.
	Concurrency int `long:"concurrency" description:"Maximum number of concurrent derivations, 0 for one per CPU."`

	// Count is the default number of children to derive.
	Count uint32 `long:"count" description:"Default number of children to derive."`
}

// Config is the configuration of the hdkey tool. Every field can be set in
// the ini file and overridden on the command line.
//
//nolint:lll
type Config struct {
	HdkeyDir   string `long:"hdkeydir" description:"The base directory of the config file."`
	ConfigFile string `long:"configfile" description:"Path to configuration file."`

	Network    string `long:"network" description:"The network whose versions are used when encoding keys." choice:"bitcoin" choice:"main" choice:"mainnet" choice:"regtest" choice:"signet" choice:"testnet" choice:"testnet3" choice:"testnet4"`
	DebugLevel string `long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <global-level>,<subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems."`
	LogFile    string `long:"logfile" description:"Also write logs to this file. Logging to a file is disabled if empty."`

	Scan *Scan `group:"scan" namespace:"scan"`

	LogConfig *build.LogConfig `group:"logging" namespace:"logging"`
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() *Config {
	return &Config{
		HdkeyDir:   DefaultHdkeyDir,
		ConfigFile: DefaultConfigFile,
		Network:    DefaultNetwork,
		DebugLevel: DefaultDebugLevel,
		Scan: &Scan{
			Count: DefaultScanCount,
		},
		LogConfig: build.DefaultLogConfig(),
	}
}

// LoadConfig loads the ini file at path on top of the defaults. A missing
// file is not an error unless explicit is set, since the tool works without
// one. A file that fails to parse always is.
func LoadConfig(path string, explicit bool) (*Config, error) {
	cfg := DefaultConfig()

	path = CleanAndExpandPath(path)
	if path == "" {
		return cfg, nil
	}

	if err := flags.IniParse(path, cfg); err != nil {
		var iniErr *flags.IniError
		if errors.As(err, &iniErr) || explicit ||
			!errors.Is(err, os.ErrNotExist) {

			return nil, fmt.Errorf("unable to load config file "+
				"%s: %w", path, err)
		}

		log.Debugf("No config file at %s, using defaults", path)

		return cfg, nil
	}

	cfg.ConfigFile = path
	log.Debugf("Loaded config file %s", path)

	return cfg, nil
}

// Validate checks the given configuration to be sane and normalizes all
// file system paths.
func (c *Config) Validate() error {
	if _, err := hdkey.ParseNetwork(c.Network); err != nil {
		return err
	}

	if c.DebugLevel == "" {
		return errors.New("debuglevel must not be empty")
	}

	if c.Scan.Concurrency < 0 {
		return fmt.Errorf("scan.concurrency must not be negative, "+
			"got %d", c.Scan.Concurrency)
	}
	if c.Scan.Count == 0 || c.Scan.Count > MaxScanCount {
		return fmt.Errorf("scan.count must be between 1 and %d, "+
			"got %d", MaxScanCount, c.Scan.Count)
	}

	if err := c.LogConfig.Validate(); err != nil {
		return err
	}

	c.HdkeyDir = CleanAndExpandPath(c.HdkeyDir)
	c.ConfigFile = CleanAndExpandPath(c.ConfigFile)
	c.LogFile = CleanAndExpandPath(c.LogFile)

	return nil
}

// ParsedNetwork returns the configured network.
func (c *Config) ParsedNetwork() (hdkey.Network, error) {
	return hdkey.ParseNetwork(c.Network)
}

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
