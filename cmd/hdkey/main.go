// Copyright (C) 2015-2022 The Lightning Network Developers

package main

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/lightningnetwork/hdchain/build"
	"github.com/lightningnetwork/hdchain/hdcfg"
	"github.com/lightningnetwork/hdchain/hdkey"
	"github.com/urfave/cli"
	"golang.org/x/term"
)

// stateKey is the app metadata key holding the per run state.
const stateKey = "state"

// appState is what the Before hook sets up for the commands.
type appState struct {
	cfg       *hdcfg.Config
	network   hdkey.Network
	logWriter *build.RotatingLogWriter
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[hdkey] %v\n", err)
	os.Exit(1)
}

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

// newApp builds the command line application writing results to stdout and
// logs to stderr.
func newApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "hdkey"
	app.Version = build.Version() + " commit=" + build.Commit
	app.Usage = "derive and inspect BIP-32 hierarchical deterministic keys"
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Metadata = make(map[string]interface{})
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:      "configfile",
			Value:     hdcfg.DefaultConfigFile,
			Usage:     "The path to the configuration file.",
			TakesFile: true,
		},
		cli.StringFlag{
			Name: "network, n",
			Usage: "The network whose versions are used for new " +
				"keys, e.g. mainnet, testnet.",
			Value: hdcfg.DefaultNetwork,
		},
		cli.StringFlag{
			Name: "debuglevel",
			Usage: "Logging level for all subsystems, or " +
				"<global-level>,<subsystem>=<level>,...",
			Value: hdcfg.DefaultDebugLevel,
		},
		cli.StringFlag{
			Name:      "logfile",
			Usage:     "Also write logs to this rotating file.",
			TakesFile: true,
		},
	}
	app.Commands = []cli.Command{
		genSeedCommand,
		masterCommand,
		deriveCommand,
		neuterCommand,
		inspectCommand,
		scanCommand,
	}
	app.Before = setup
	app.After = teardown

	return app
}

// setup loads the configuration, lets the global flags override it and
// wires up logging.
func setup(ctx *cli.Context) error {
	cfg, err := hdcfg.LoadConfig(
		ctx.GlobalString("configfile"), ctx.GlobalIsSet("configfile"),
	)
	if err != nil {
		return err
	}

	if ctx.GlobalIsSet("network") {
		cfg.Network = ctx.GlobalString("network")
	}
	if ctx.GlobalIsSet("debuglevel") {
		cfg.DebugLevel = ctx.GlobalString("debuglevel")
	}
	if ctx.GlobalIsSet("logfile") {
		cfg.LogFile = ctx.GlobalString("logfile")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	net, err := cfg.ParsedNetwork()
	if err != nil {
		return err
	}

	state := &appState{
		cfg:     cfg,
		network: net,
	}
	if err := setupLogging(ctx.App.ErrWriter, state); err != nil {
		return err
	}
	ctx.App.Metadata[stateKey] = state

	log.Debugf("Using network %v, config file %s", net, cfg.ConfigFile)

	return nil
}

// setupLogging creates the shared log handler, hands a sub-logger to every
// package and applies the configured levels.
func setupLogging(stderr io.Writer, state *appState) error {
	cfg := state.cfg

	var fileWriter *build.RotatingLogWriter
	if cfg.LogFile != "" {
		fileWriter = build.NewRotatingLogWriter()
		err := fileWriter.InitLogRotator(cfg.LogConfig.File, cfg.LogFile)
		if err != nil {
			return err
		}
		state.logWriter = fileWriter
	}

	handler := build.NewLogHandler(cfg.LogConfig, stderr, fileWriter)
	manager := build.NewSubLoggerManager(handler)

	UseLogger(build.NewSubLogger(Subsystem, manager.GenSubLogger))
	hdkey.UseLogger(build.NewSubLogger(hdkey.Subsystem, manager.GenSubLogger))
	hdcfg.UseLogger(build.NewSubLogger(hdcfg.Subsystem, manager.GenSubLogger))

	return build.ParseAndSetDebugLevels(cfg.DebugLevel, manager)
}

// teardown flushes and closes the log file, if any.
func teardown(ctx *cli.Context) error {
	state, ok := ctx.App.Metadata[stateKey].(*appState)
	if !ok || state.logWriter == nil {
		return nil
	}

	return state.logWriter.Close()
}

// getState returns the state set up by the Before hook.
func getState(ctx *cli.Context) *appState {
	return ctx.App.Metadata[stateKey].(*appState)
}

// readPassword reads a secret from the terminal. This requires there to be an
// actual TTY so passing in a secret from stdin won't work.
func readPassword(w io.Writer, text string) ([]byte, error) {
	fmt.Fprint(w, text)

	// The variable syscall.Stdin is of a different type in the Windows API
	// that's why we need the explicit cast. And of course the linter
	// doesn't like it either.
	pw, err := term.ReadPassword(int(syscall.Stdin)) // nolint:unconvert
	fmt.Fprintln(w)
	return pw, err
}
