package hdcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lightningnetwork/hdchain/hdkey"
	"github.com/stretchr/testify/require"
)

// TestLoadConfig checks that values from the ini file override the defaults.
func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	contents := `
[Application Options]
network=testnet
debuglevel=debug,HDKY=trace

[scan]
scan.concurrency=4
scan.count=50

[logging]
logging.file.compressor=zstd
logging.console.no-timestamps=true
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))

	cfg, err := LoadConfig(path, true)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "testnet", cfg.Network)
	require.Equal(t, "debug,HDKY=trace", cfg.DebugLevel)
	require.Equal(t, 4, cfg.Scan.Concurrency)
	require.EqualValues(t, 50, cfg.Scan.Count)
	require.Equal(t, "zstd", cfg.LogConfig.File.Compressor)
	require.True(t, cfg.LogConfig.Console.NoTimestamps)
	require.Equal(t, path, cfg.ConfigFile)

	net, err := cfg.ParsedNetwork()
	require.NoError(t, err)
	require.Equal(t, hdkey.Testnet, net)
}

// TestLoadConfigNetworkNames makes sure the ini file accepts exactly the
// network names the command line flag accepts.
func TestLoadConfigNetworkNames(t *testing.T) {
	t.Parallel()

	for _, name := range hdkey.NetworkNames() {
		path := filepath.Join(t.TempDir(), DefaultConfigFilename)
		contents := "[Application Options]\nnetwork=" + name + "\n"
		require.NoError(t, os.WriteFile(path, []byte(contents), 0600))

		cfg, err := LoadConfig(path, true)
		require.NoError(t, err, name)
		require.NoError(t, cfg.Validate(), name)
		require.Equal(t, name, cfg.Network)
	}

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	contents := "[Application Options]\nnetwork=litecoin\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))

	cfg, err := LoadConfig(path, true)
	if err == nil {
		err = cfg.Validate()
	}
	require.Error(t, err)
}

// TestLoadConfigMissing checks the handling of a missing config file.
func TestLoadConfigMissing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing.conf")

	cfg, err := LoadConfig(path, false)
	require.NoError(t, err)
	require.Equal(t, DefaultNetwork, cfg.Network)
	require.NoError(t, cfg.Validate())

	_, err = LoadConfig(path, true)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestLoadConfigMalformed makes sure a broken file is reported even when it
// was not asked for explicitly.
func TestLoadConfigMalformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte("nosuchoption=1\n"), 0600))

	_, err := LoadConfig(path, false)
	require.Error(t, err)
}

// TestValidate checks the validation rules of the config.
func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{
			name:   "defaults",
			modify: func(*Config) {},
			valid:  true,
		},
		{
			name: "signet",
			modify: func(c *Config) {
				c.Network = "signet"
			},
			valid: true,
		},
		{
			name: "unknown network",
			modify: func(c *Config) {
				c.Network = "litecoin"
			},
		},
		{
			name: "empty debug level",
			modify: func(c *Config) {
				c.DebugLevel = ""
			},
		},
		{
			name: "negative concurrency",
			modify: func(c *Config) {
				c.Scan.Concurrency = -1
			},
		},
		{
			name: "zero scan count",
			modify: func(c *Config) {
				c.Scan.Count = 0
			},
		},
		{
			name: "huge scan count",
			modify: func(c *Config) {
				c.Scan.Count = MaxScanCount + 1
			},
		},
		{
			name: "bad compressor",
			modify: func(c *Config) {
				c.LogConfig.File.Compressor = "lz4"
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tc.modify(cfg)

			err := cfg.Validate()
			if tc.valid {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
		})
	}
}

// TestCleanAndExpandPath checks home and environment expansion.
func TestCleanAndExpandPath(t *testing.T) {
	t.Setenv("HDKEY_TEST_DIR", "/tmp/hdkey")

	require.Empty(t, CleanAndExpandPath(""))
	require.Equal(t, "/tmp/hdkey/hdkey.conf",
		CleanAndExpandPath("$HDKEY_TEST_DIR//hdkey.conf"))
	require.NotContains(t, CleanAndExpandPath("~/hdkey.conf"), "~")
}
