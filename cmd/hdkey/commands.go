package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lightningnetwork/hdchain/hdcfg"
	"github.com/lightningnetwork/hdchain/hdkey"
	"github.com/lightningnetwork/hdchain/keypath"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/urfave/cli"
)

var (
	// errMissingKey is returned when a command needs an extended key and
	// none was given.
	errMissingKey = errors.New("an extended key is required, use --key " +
		"or pass it as the first argument")

	// errInvalidScanRange is returned when the scan flags do not describe
	// a usable range of child indices.
	errInvalidScanRange = errors.New("invalid scan range")
)

func printJSON(w io.Writer, resp interface{}) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "\t"); err != nil {
		return err
	}
	out.WriteString("\n")
	_, err = out.WriteTo(w)

	return err
}

// optionalString returns the value of a string flag if it was set.
func optionalString(ctx *cli.Context, name string) fn.Option[string] {
	if !ctx.IsSet(name) {
		return fn.None[string]()
	}

	return fn.Some(ctx.String(name))
}

// keyArg returns the extended key given either as --key or as the first
// positional argument.
func keyArg(ctx *cli.Context) (string, error) {
	return optionalString(ctx, "key").Alt(firstArg(ctx)).UnwrapOrErr(
		errMissingKey,
	)
}

// firstArg returns the first positional argument, if any.
func firstArg(ctx *cli.Context) fn.Option[string] {
	if ctx.NArg() == 0 {
		return fn.None[string]()
	}

	return fn.Some(ctx.Args().First())
}

var keyFlag = cli.StringFlag{
	Name:  "key",
	Usage: "The serialized extended key (xprv, xpub, tprv or tpub).",
}

var genSeedCommand = cli.Command{
	Name:  "genseed",
	Usage: "Generate a random seed for a new key tree.",
	Description: `
	Print a hex encoded seed read from the operating system's secure
	random source. The seed is the root of every key in the tree, store
	it safely.`,
	Flags: []cli.Flag{
		cli.UintFlag{
			Name:  "len",
			Usage: "The seed length in bytes, between 16 and 64.",
			Value: hdkey.RecommendedSeedLen,
		},
	},
	Action: genSeed,
}

func genSeed(ctx *cli.Context) error {
	n := ctx.Uint("len")
	if n < hdkey.MinSeedBytes || n > hdkey.MaxSeedBytes {
		return fmt.Errorf("%w: got %d bytes", hdkey.ErrInvalidSeedLen, n)
	}

	seed, err := hdkey.GenerateSeed(uint8(n))
	if err != nil {
		return err
	}

	return printJSON(ctx.App.Writer, struct {
		Seed string `json:"seed"`
	}{
		Seed: hex.EncodeToString(seed),
	})
}

var masterCommand = cli.Command{
	Name:  "master",
	Usage: "Create the master key of a seed.",
	Description: `
	Derive the master extended key from a hex encoded seed. If --seed is
	not given, the seed is read from the terminal without echoing it.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "seed",
			Usage: "The hex encoded seed.",
		},
	},
	Action: master,
}

// keyResponse is the output of the commands producing a key.
type keyResponse struct {
	Path        string `json:"path,omitempty"`
	Xprv        string `json:"xprv,omitempty"`
	Xpub        string `json:"xpub"`
	Fingerprint string `json:"fingerprint"`
}

func master(ctx *cli.Context) error {
	state := getState(ctx)

	seedHex, err := optionalString(ctx, "seed").UnwrapOrFuncErr(
		func() (string, error) {
			seed, err := readPassword(
				ctx.App.ErrWriter, "Input hex encoded seed: ",
			)

			return string(seed), err
		},
	)
	if err != nil {
		return err
	}

	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return fmt.Errorf("unable to decode seed: %w", err)
	}

	key, err := hdkey.GenerateMaster(seed)
	if err != nil {
		return err
	}

	resp, err := newKeyResponse(key, state.network, false)
	if err != nil {
		return err
	}

	return printJSON(ctx.App.Writer, resp)
}

var deriveCommand = cli.Command{
	Name:      "derive",
	Usage:     "Derive a descendant of an extended key.",
	ArgsUsage: "[key]",
	Description: `
	Derive the key at --path below the given extended key. The path is
	relative to the given key, e.g. m/0'/1 or 0'/1. Hardened indices can
	only be derived from private keys. The result is encoded for the
	network of the input key.`,
	Flags: []cli.Flag{
		keyFlag,
		cli.StringFlag{
			Name:  "path",
			Usage: "The path to derive, e.g. m/44'/0'/0'/0/0.",
		},
		cli.BoolFlag{
			Name:  "neuter",
			Usage: "Only print the extended public key.",
		},
	},
	Action: derive,
}

func derive(ctx *cli.Context) error {
	text, err := keyArg(ctx)
	if err != nil {
		return err
	}

	path, err := keypath.Parse(ctx.String("path"))
	if err != nil {
		return err
	}

	info, key, err := hdkey.Decode(text)
	if err != nil {
		return err
	}

	log.Debugf("Deriving %v from a %s key", path, info.Label)

	var resp *keyResponse
	switch k := key.(type) {
	case *hdkey.ExtendedPrivateKey:
		child, err := hdkey.DerivePrivatePath(k, path)
		if err != nil {
			return err
		}

		resp, err = newKeyResponse(
			child, info.Network, ctx.Bool("neuter"),
		)
		if err != nil {
			return err
		}

	case *hdkey.ExtendedPublicKey:
		child, err := hdkey.DerivePublicPath(k, path)
		if err != nil {
			return err
		}

		resp, err = newKeyResponse(child, info.Network, true)
		if err != nil {
			return err
		}
	}

	return printJSON(ctx.App.Writer, resp)
}

var neuterCommand = cli.Command{
	Name:      "neuter",
	Usage:     "Print the extended public key of an extended private key.",
	ArgsUsage: "[key]",
	Flags:     []cli.Flag{keyFlag},
	Action:    neuter,
}

func neuter(ctx *cli.Context) error {
	text, err := keyArg(ctx)
	if err != nil {
		return err
	}

	key, version, err := hdkey.DecodePrivate(text)
	if err != nil {
		return err
	}

	info, _ := hdkey.LookupVersion(version)
	resp, err := newKeyResponse(key, info.Network, true)
	if err != nil {
		return err
	}

	return printJSON(ctx.App.Writer, resp)
}

var inspectCommand = cli.Command{
	Name:      "inspect",
	Usage:     "Show the fields of a serialized extended key.",
	ArgsUsage: "[key]",
	Description: `
	Decode an extended key and print its metadata. The private scalar of
	an extended private key is never printed.`,
	Flags:  []cli.Flag{keyFlag},
	Action: inspect,
}

// inspectResponse is the output of the inspect command.
type inspectResponse struct {
	Version           string `json:"version"`
	Label             string `json:"label"`
	Network           string `json:"network"`
	Private           bool   `json:"private"`
	Depth             uint8  `json:"depth"`
	ParentFingerprint string `json:"parent_fingerprint"`
	Index             uint32 `json:"index"`
	Segment           string `json:"segment,omitempty"`
	Hardened          bool   `json:"hardened"`
	ChainCode         string `json:"chain_code"`
	PublicKey         string `json:"public_key"`
	Identifier        string `json:"identifier"`
	Fingerprint       string `json:"fingerprint"`
	Xpub              string `json:"xpub"`
}

func inspect(ctx *cli.Context) error {
	text, err := keyArg(ctx)
	if err != nil {
		return err
	}

	info, key, err := hdkey.Decode(text)
	switch {
	case hdkey.IsNotOnCurve(err):
		return fmt.Errorf("key data is well formed but not a point "+
			"on secp256k1: %w", err)

	case err != nil:
		return err
	}

	pub := key.Public()
	xpub, err := pub.Encode(info.Network)
	if err != nil {
		return err
	}

	chainCode := key.ChainCode()
	pubKey := pub.SerializedPubKey()
	id := hdkey.Identifier(pub)

	resp := &inspectResponse{
		Version:           info.Version.String(),
		Label:             info.Label,
		Network:           info.Network.String(),
		Private:           key.IsPrivate(),
		Depth:             key.Depth(),
		ParentFingerprint: fmt.Sprintf("%08x", key.ParentFingerprint()),
		Index:             key.Index(),
		Hardened:          keypath.IsHardened(key.Index()),
		ChainCode:         hex.EncodeToString(chainCode[:]),
		PublicKey:         hex.EncodeToString(pubKey[:]),
		Identifier:        hex.EncodeToString(id[:]),
		Fingerprint:       fmt.Sprintf("%08x", pub.Fingerprint()),
		Xpub:              xpub,
	}
	if key.Depth() > 0 {
		resp.Segment = keypath.FormatIndex(key.Index())
	}

	return printJSON(ctx.App.Writer, resp)
}

var scanCommand = cli.Command{
	Name:      "scan",
	Usage:     "Derive a range of public children of an extended key.",
	ArgsUsage: "[key]",
	Description: `
	Derive --count consecutive non-hardened public children starting at
	--start, the way a wallet looks for used addresses. Indices whose key
	would be invalid are reported as skipped. A private key is neutered
	first.`,
	Flags: []cli.Flag{
		keyFlag,
		cli.UintFlag{
			Name:  "start",
			Usage: "The first child index.",
		},
		cli.UintFlag{
			Name: "count",
			Usage: "The number of children to derive, defaults to " +
				"scan.count from the config file.",
		},
		cli.BoolFlag{
			Name:  "table",
			Usage: "Print a table instead of JSON.",
		},
		cli.IntFlag{
			Name: "concurrency",
			Usage: "The number of concurrent derivations, " +
				"defaults to scan.concurrency from the " +
				"config file.",
		},
	},
	Action: scan,
}

// scannedKey is one entry of the scan output.
type scannedKey struct {
	Index     uint32 `json:"index"`
	Path      string `json:"path"`
	PublicKey string `json:"public_key"`
	Xpub      string `json:"xpub"`
}

func scan(ctx *cli.Context) error {
	state := getState(ctx)

	text, err := keyArg(ctx)
	if err != nil {
		return err
	}

	info, key, err := hdkey.Decode(text)
	if err != nil {
		return err
	}

	start := ctx.Uint("start")
	if uint64(start) > math.MaxUint32 {
		return fmt.Errorf("%w: start %d is not a 32-bit index",
			errInvalidScanRange, start)
	}

	count := state.cfg.Scan.Count
	if ctx.IsSet("count") {
		n := ctx.Uint("count")
		if n == 0 || n > hdcfg.MaxScanCount {
			return fmt.Errorf("%w: count must be between 1 and %d, "+
				"got %d", errInvalidScanRange,
				hdcfg.MaxScanCount, n)
		}
		count = uint32(n)
	}
	concurrency := state.cfg.Scan.Concurrency
	if ctx.IsSet("concurrency") {
		concurrency = ctx.Int("concurrency")
	}

	ctxc, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	parent := key.Public()
	result, err := hdkey.ScanPublicChildren(
		ctxc, parent, uint32(start), count,
		hdkey.WithConcurrency(concurrency),
	)
	if err != nil {
		return err
	}

	resp := struct {
		Keys    []scannedKey `json:"keys"`
		Skipped []uint32     `json:"skipped"`
	}{
		Keys:    make([]scannedKey, 0, len(result.Keys)),
		Skipped: result.Skipped,
	}
	if resp.Skipped == nil {
		resp.Skipped = []uint32{}
	}

	for _, child := range result.Keys {
		xpub, err := child.Encode(info.Network)
		if err != nil {
			return err
		}

		pubKey := child.SerializedPubKey()
		resp.Keys = append(resp.Keys, scannedKey{
			Index:     child.Index(),
			Path:      child.Path().String(),
			PublicKey: hex.EncodeToString(pubKey[:]),
			Xpub:      xpub,
		})
	}

	log.Infof("Scanned %d children of %x, %d skipped", len(resp.Keys),
		parent.Fingerprint(), len(resp.Skipped))

	if ctx.Bool("table") {
		printScanTable(ctx.App.Writer, resp.Keys, resp.Skipped)
		return nil
	}

	return printJSON(ctx.App.Writer, resp)
}

// printScanTable renders the scanned keys as a text table.
func printScanTable(w io.Writer, keys []scannedKey, skipped []uint32) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Index", "Path", "Public key"})
	for _, key := range keys {
		t.AppendRow(table.Row{key.Index, key.Path, key.PublicKey})
	}
	if len(skipped) > 0 {
		t.AppendFooter(table.Row{
			"Skipped", fmt.Sprintf("%v", skipped), "",
		})
	}
	t.Render()
}

// newKeyResponse encodes a key for output. The private encoding is only
// included when the key is private and neuter is not set.
func newKeyResponse(key hdkey.ExtendedKey, net hdkey.Network,
	neuter bool) (*keyResponse, error) {

	pub := key.Public()
	xpub, err := pub.Encode(net)
	if err != nil {
		return nil, err
	}

	resp := &keyResponse{
		Path:        key.Path().String(),
		Xpub:        xpub,
		Fingerprint: fmt.Sprintf("%08x", pub.Fingerprint()),
	}

	if priv, ok := key.(*hdkey.ExtendedPrivateKey); ok && !neuter {
		resp.Xprv, err = priv.Encode(net)
		if err != nil {
			return nil, err
		}
	}

	return resp, nil
}
