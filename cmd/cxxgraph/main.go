// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package main implements the cxxgraph CLI: the thin wrapper around the
// Workspace Pipeline described in spec §6 "CLI surface".
//
// Usage:
//
//	cxxgraph init --manifest-path workspace.yaml   Scaffold a workspace manifest
//	cxxgraph index --manifest-path workspace.yaml  Run the Workspace Pipeline
//	cxxgraph status --run-report report.json       Summarize a prior run report
//	cxxgraph purge --repo-name <repo>              Repo-scoped store purge
package main

import (
	"fmt"
	"os"

	"github.com/kraklabs/cxxgraph/internal/errors"
	"github.com/kraklabs/cxxgraph/internal/ui"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags are parsed once, ahead of the subcommand's own flags, and
// threaded into every command.
type GlobalFlags struct {
	JSON    bool
	Quiet   bool
	NoColor bool
	Verbose int
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(errors.ExitFatal)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "index":
		runIndex(args)
	case "init":
		runInit(args)
	case "status":
		runStatus(args)
	case "purge":
		runPurge(args)
	case "version", "--version", "-v":
		fmt.Printf("cxxgraph %s (commit %s, built %s)\n", version, commit, date)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "cxxgraph: unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(errors.ExitFatal)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: cxxgraph <command> [options]

Commands:
  init      Scaffold a workspace manifest
  index     Run the Workspace Pipeline over a manifest
  status    Summarize a run report
  purge     Repo-scoped purge of a prior ingestion
  version   Print version information

Run 'cxxgraph <command> --help' for command-specific options.
`)
}

// colorFromFlags applies --no-color / NO_COLOR to the shared ui package
// ahead of any command output.
func colorFromFlags(noColor bool) {
	ui.InitColors(noColor)
}
