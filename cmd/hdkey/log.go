package main

import (
	"github.com/btcsuite/btclog/v2"
	"github.com/lightningnetwork/hdchain/build"
)

// Subsystem defines the logging code for the command line tool.
const Subsystem = "HDCL"

// log is a logger that is initialized with no output filters. This means the
// package will not perform any logging by default until the caller requests
// it.
var log btclog.Logger

// The default amount of logging is none.
func init() {
	UseLogger(build.NewSubLogger(Subsystem, nil))
}

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger btclog.Logger) {
	log = logger
}
