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

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kraklabs/cxxgraph/internal/bootstrap"
	"github.com/kraklabs/cxxgraph/internal/errors"
	"github.com/kraklabs/cxxgraph/internal/ui"
	"github.com/kraklabs/cxxgraph/pkg/config"
)

// runPurge deletes every graph node and vector point ingested for one
// repo, a repo-scoped alternative to rebuilding the whole workspace.
func runPurge(args []string) {
	fs := pflag.NewFlagSet("purge", pflag.ExitOnError)
	repoName := fs.String("repo-name", "", "Repo whose graph nodes and vector points should be purged (required)")
	collection := fs.String("collection", "cxxgraph_entities", "Vector collection to purge points from")
	composePath := fs.String("compose-path", "docker-compose.yml", "Path to the docker-compose file used for store discovery")
	strictConfig := fs.Bool("strict-config", config.StrictConfigValidation(), "Treat startup configuration gaps as fatal instead of defaulting")
	confirm := fs.Bool("yes", false, "Confirm the purge (required)")
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	noColor := fs.Bool("no-color", false, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cxxgraph purge --repo-name <repo> --yes [options]

Deletes every graph node and vector point this engine ingested for one
repo. Stub nodes owned by other repos but referencing this one are left
in place.

WARNING: This operation is destructive and cannot be undone!

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitFatal)
	}
	colorFromFlags(*noColor)

	if strings.TrimSpace(*repoName) == "" {
		errors.FatalError(errors.NewInputError(
			"--repo-name is required",
			"purge needs to know which repo's data to delete",
			"pass --repo-name <repo>",
		), *jsonOutput)
		return
	}
	if !*confirm {
		errors.FatalError(errors.NewInputError(
			"you must pass --yes to confirm the purge",
			fmt.Sprintf("this will delete all graph nodes and vector points ingested for repo %q", *repoName),
			"re-run with --yes once you're sure",
		), *jsonOutput)
		return
	}

	ctx := context.Background()
	logger := newCLILogger(GlobalFlags{Quiet: *jsonOutput})

	endpoints, err := config.ResolveStoreEndpoints(*composePath, *strictConfig, logger)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"failed to resolve store endpoints from docker-compose configuration",
			err.Error(),
			"pass --strict-config=false to fall back to defaults, or fix the compose file",
			err,
		), *jsonOutput)
		return
	}

	stores, err := bootstrap.OpenStores(ctx, endpoints, bootstrap.StoreOptions{}, logger)
	if err != nil {
		errors.FatalError(errors.NewStoreError(
			"could not connect to the graph store or vector store",
			err.Error(),
			"confirm neo4j and qdrant are running and reachable at the resolved endpoints",
			err,
		), *jsonOutput)
		return
	}
	defer stores.Close(ctx)

	if err := stores.Graph.PurgeRepo(ctx, *repoName); err != nil {
		errors.FatalError(errors.NewStoreError(
			fmt.Sprintf("failed to purge graph nodes for repo %q", *repoName),
			err.Error(),
			"check graph store connectivity and retry",
			err,
		), *jsonOutput)
		return
	}

	if err := stores.Vector.DeleteByRepo(ctx, *collection, *repoName); err != nil {
		errors.FatalError(errors.NewStoreError(
			fmt.Sprintf("failed to purge vector points for repo %q", *repoName),
			err.Error(),
			"check vector store connectivity and retry",
			err,
		), *jsonOutput)
		return
	}

	if *jsonOutput {
		fmt.Printf("{\"repo_name\": %q, \"status\": \"purged\"}\n", *repoName)
		return
	}
	ui.Success(fmt.Sprintf("Purged graph nodes and vector points for repo %q", *repoName))
}
