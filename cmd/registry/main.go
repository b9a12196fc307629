// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

// Command registry runs the agent configuration registry.
package main

import (
	"fmt"
	"os"
)

// version, commit, and date are set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd(buildInfo{version: version, commit: commit, date: date}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
