package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lightningnetwork/hdchain/hdkey"
	"github.com/lightningnetwork/hdchain/keypath"
	"github.com/stretchr/testify/require"
)

const (
	testSeed = "000102030405060708090a0b0c0d0e0f"

	testXprv = "xprv9s21ZrQH143K3QTDL4LXw2F7HEK3wJUD2nW2nRk4stbPy6cq3jPPqjiChkVvvNKmPGJxWUtg6LnF5kejMRNNU3TGtRBeJgk33yuGBxrMPHi"
	testXpub = "xpub661MyMwAqRbcFtXgS5sYJABqqG9YLmC4Q1Rdap9gSE8NqtwybGhePY2gZ29ESFjqJoCu1Rupje8YtGqsefD265TMg7usUDFdp6W1EGMcet8"
)

// runApp runs the tool with an empty config file and returns what it printed
// on stdout.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	configFile := filepath.Join(t.TempDir(), "hdkey.conf")
	require.NoError(t, os.WriteFile(configFile, nil, 0600))

	var stdout, stderr bytes.Buffer
	app := newApp(&stdout, &stderr)

	fullArgs := append(
		[]string{"hdkey", "--configfile", configFile}, args...,
	)
	err := app.Run(fullArgs)

	return stdout.String(), err
}

func decodeKeyResponse(t *testing.T, out string) keyResponse {
	t.Helper()

	var resp keyResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	return resp
}

func TestMasterCommand(t *testing.T) {
	out, err := runApp(t, "master", "--seed", testSeed)
	require.NoError(t, err)

	resp := decodeKeyResponse(t, out)
	require.Equal(t, testXprv, resp.Xprv)
	require.Equal(t, testXpub, resp.Xpub)
	require.Equal(t, "3442193e", resp.Fingerprint)
	require.Equal(t, "m", resp.Path)

	out, err = runApp(t, "--network", "testnet", "master", "--seed",
		testSeed)
	require.NoError(t, err)

	resp = decodeKeyResponse(t, out)
	require.True(t, strings.HasPrefix(resp.Xprv, "tprv"))
	require.True(t, strings.HasPrefix(resp.Xpub, "tpub"))

	_, err = runApp(t, "master", "--seed", "0011")
	require.ErrorIs(t, err, hdkey.ErrInvalidSeedLen)

	_, err = runApp(t, "master", "--seed", "zz")
	require.Error(t, err)
}

func TestDeriveCommand(t *testing.T) {
	out, err := runApp(
		t, "derive", "--key", testXprv, "--path", "m/0'/1",
	)
	require.NoError(t, err)

	resp := decodeKeyResponse(t, out)
	require.Equal(t, "xprv9wTYmMFdV23N2TdNG573QoEsfRrWKQgWeibmLntzniatZvR9BmLnvSxqu53Kw1UmYPxLgboyZQaXwTCg8MSY3H2EU4pWcQDnRnrVA1xe8fs", resp.Xprv)
	require.Equal(t, "xpub6ASuArnXKPbfEwhqN6e3mwBcDTgzisQN1wXN9BJcM47sSikHjJf3UFHKkNAWbWMiGj7Wf5uMash7SyYq527Hqck2AxYysAA7xmALppuCkwQ", resp.Xpub)
	require.Equal(t, "m/0'/1", resp.Path)

	// The positional form and --neuter.
	out, err = runApp(
		t, "derive", "--path", "0'/1", "--neuter", testXprv,
	)
	require.NoError(t, err)

	resp = decodeKeyResponse(t, out)
	require.Empty(t, resp.Xprv)
	require.Equal(t, "xpub6ASuArnXKPbfEwhqN6e3mwBcDTgzisQN1wXN9BJcM47sSikHjJf3UFHKkNAWbWMiGj7Wf5uMash7SyYq527Hqck2AxYysAA7xmALppuCkwQ", resp.Xpub)

	_, err = runApp(t, "derive", "--key", testXpub, "--path", "m/0'")
	require.ErrorIs(t, err, hdkey.ErrHardenedFromPublicKey)

	_, err = runApp(t, "derive", "--path", "0h/1", testXprv)
	require.ErrorIs(t, err, keypath.ErrParse)

	_, err = runApp(t, "derive", "--path", "m/0")
	require.ErrorIs(t, err, errMissingKey)
}

func TestNeuterCommand(t *testing.T) {
	out, err := runApp(t, "neuter", testXprv)
	require.NoError(t, err)

	resp := decodeKeyResponse(t, out)
	require.Empty(t, resp.Xprv)
	require.Equal(t, testXpub, resp.Xpub)

	_, err = runApp(t, "neuter", testXpub)
	require.ErrorIs(t, err, hdkey.ErrVersionKindMismatch)
}

func TestInspectCommand(t *testing.T) {
	out, err := runApp(t, "inspect", "--key", testXprv)
	require.NoError(t, err)

	var resp inspectResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "xprv", resp.Label)
	require.Equal(t, "0x0488ade4", resp.Version)
	require.Equal(t, "mainnet", resp.Network)
	require.True(t, resp.Private)
	require.Zero(t, resp.Depth)
	require.Equal(t, "00000000", resp.ParentFingerprint)
	require.Equal(t, "3442193e", resp.Fingerprint)
	require.Equal(t, "3442193e1bb70916e914552172cd4e2dbc9df811",
		resp.Identifier)
	require.Equal(t, testXpub, resp.Xpub)

	// The private scalar of the vector 1 master key must not show up.
	require.NotContains(
		t, out,
		"e8f32e723decf4051aefac8e2c93c9c5b214313817cdb01a1494b917c8436b35",
	)
	require.NotContains(t, out, testXprv)

	_, err = runApp(t, "inspect", "--key", testXprv[:len(testXprv)-1]+"j")
	require.ErrorIs(t, err, hdkey.ErrInvalidChecksum)

	// A compressed encoding whose x coordinate has no point on the curve.
	_, err = runApp(t, "inspect", "--key", "xpub661MyMwAqRbcEYS8w7XLSVeE"+
		"sBXy79zSzH1J8vCdxAZningWLdN3zgtU6Q5JXayek4PRsn35jii4veMimro1"+
		"xefsM58PgBMrvdYre8QyULY")
	require.ErrorIs(t, err, hdkey.ErrInvalidPublicKeyEncoding)
	require.ErrorContains(t, err, "not a point on secp256k1")
}

func TestScanCommand(t *testing.T) {
	out, err := runApp(
		t, "scan", "--key", testXprv, "--start", "5", "--count", "3",
		"--concurrency", "2",
	)
	require.NoError(t, err)

	var resp struct {
		Keys    []scannedKey `json:"keys"`
		Skipped []uint32     `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Keys, 3)
	require.Empty(t, resp.Skipped)

	for i, key := range resp.Keys {
		require.EqualValues(t, 5+i, key.Index)
		require.True(t, strings.HasPrefix(key.Xpub, "xpub"))

		derived, err := runApp(
			t, "derive", "--key", testXpub, "--path", key.Path,
		)
		require.NoError(t, err)
		require.Equal(t, key.Xpub, decodeKeyResponse(t, derived).Xpub)
	}

	out, err = runApp(
		t, "scan", "--table", "--count", "2", testXpub,
	)
	require.NoError(t, err)
	require.Contains(t, out, "PUBLIC KEY")
	require.Contains(t, out, "m/1")

	_, err = runApp(
		t, "scan", "--key", testXpub, "--start", "2147483647",
		"--count", "2",
	)
	require.ErrorIs(t, err, hdkey.ErrHardenedFromPublicKey)

	// Flag values that do not fit the index space are rejected rather
	// than truncated.
	_, err = runApp(
		t, "scan", "--key", testXpub, "--start", "4294967301",
		"--count", "1",
	)
	require.ErrorIs(t, err, errInvalidScanRange)

	_, err = runApp(
		t, "scan", "--key", testXpub, "--count", "2000000000",
	)
	require.ErrorIs(t, err, errInvalidScanRange)

	_, err = runApp(t, "scan", "--key", testXpub, "--count", "0")
	require.ErrorIs(t, err, errInvalidScanRange)
}

func TestGenSeedCommand(t *testing.T) {
	out, err := runApp(t, "genseed", "--len", "16")
	require.NoError(t, err)

	var resp struct {
		Seed string `json:"seed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Seed, 32)

	_, err = runApp(t, "genseed", "--len", "8")
	require.ErrorIs(t, err, hdkey.ErrInvalidSeedLen)
}

func TestGlobalFlags(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "hdkey.log")

	_, err := runApp(
		t, "--debuglevel", "debug,HDKY=trace", "--logfile", logFile,
		"derive", "--key", testXprv, "--path", "m/1",
	)
	require.NoError(t, err)

	logs, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(logs), "Derived private child")

	_, err = runApp(t, "--debuglevel", "loud", "genseed")
	require.Error(t, err)

	_, err = runApp(t, "--debuglevel", "NOPE=debug", "genseed")
	require.Error(t, err)

	_, err = runApp(t, "--network", "litecoin", "genseed")
	require.ErrorIs(t, err, hdkey.ErrUnknownNetwork)
}
