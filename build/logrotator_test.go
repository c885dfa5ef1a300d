package build

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog/v2"
	"github.com/stretchr/testify/require"
)

// TestRotatingLogWriter makes sure the rotator can be set up with every
// supported compressor and rejects unknown ones.
func TestRotatingLogWriter(t *testing.T) {
	t.Parallel()

	for _, compressor := range []string{Gzip, Zstd} {
		cfg := DefaultLogConfig()
		cfg.File.Compressor = compressor

		logFile := filepath.Join(t.TempDir(), "logs", "hdkey.log")
		w := NewRotatingLogWriter()
		require.NoError(t, w.InitLogRotator(cfg.File, logFile))

		_, err := w.Write([]byte("hello\n"))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	cfg := DefaultLogConfig()
	cfg.File.Compressor = "lz4"
	err := NewRotatingLogWriter().InitLogRotator(
		cfg.File, filepath.Join(t.TempDir(), "hdkey.log"),
	)
	require.ErrorContains(t, err, "unknown log compressor")
}

// TestRotatingLogWriterUninitialized asserts that writes before
// initialization are discarded without error.
func TestRotatingLogWriterUninitialized(t *testing.T) {
	t.Parallel()

	w := NewRotatingLogWriter()
	n, err := w.Write([]byte("dropped"))
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.NoError(t, w.Close())
}

// TestNewLogHandler checks that the console writer receives log lines and
// that a disabled console stays silent.
func TestNewLogHandler(t *testing.T) {
	t.Parallel()

	var console bytes.Buffer
	cfg := DefaultLogConfig()
	logger := btclog.NewSLogger(
		NewLogHandler(cfg, &console, nil).SubSystem("TEST"),
	)
	logger.Infof("derived %d keys", 3)
	require.Contains(t, console.String(), "derived 3 keys")
	require.Contains(t, console.String(), "TEST")

	console.Reset()
	cfg.Console.Disable = true
	logger = btclog.NewSLogger(
		NewLogHandler(cfg, &console, nil).SubSystem("TEST"),
	)
	logger.Infof("nothing")
	require.Empty(t, console.String())
}
