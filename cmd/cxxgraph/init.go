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
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kraklabs/cxxgraph/internal/errors"
	"github.com/kraklabs/cxxgraph/internal/ui"
)

const manifestTemplate = `workspace_name: %s
repo_cache_dir: output/workspace_repos
index_dir: output/workspace_scip
entities_dir: output/workspace_entities

qdrant:
  recreate_collection: false
  collection_name: cxxgraph_entities

neo4j:
  recreate_graph: false

repos:
  - repo_name: example
    git_url: https://github.com/example/example.git
    ref: main
    token_env: GITHUB_TOKEN
    source_subdir: .
    compdb_paths:
      - path: build/compile_commands.json
    enabled: true
    run_vector: true
    run_graph: true
`

// runInit scaffolds a workspace manifest at --manifest-path, per the
// §6 "Workspace manifest" shape. It refuses to overwrite an existing
// file unless --force is passed.
func runInit(args []string) {
	fs := pflag.NewFlagSet("init", pflag.ExitOnError)
	manifestPath := fs.String("manifest-path", "workspace.yaml", "Path to write the scaffolded workspace manifest")
	workspaceName := fs.String("workspace-name", "my-workspace", "workspace_name to write into the manifest")
	force := fs.Bool("force", false, "Overwrite an existing manifest file")
	noColor := fs.Bool("no-color", false, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cxxgraph init [options]\n\nScaffolds a workspace manifest with one example repo entry.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitFatal)
	}
	colorFromFlags(*noColor)

	if _, err := os.Stat(*manifestPath); err == nil && !*force {
		errors.FatalError(errors.NewInputError(
			fmt.Sprintf("manifest already exists at %s", *manifestPath),
			"refusing to overwrite an existing workspace manifest",
			"pass --force to overwrite, or choose a different --manifest-path",
		), false)
	}

	content := fmt.Sprintf(manifestTemplate, *workspaceName)
	if err := os.WriteFile(*manifestPath, []byte(content), 0o644); err != nil {
		errors.FatalError(errors.NewPermissionError(
			"cannot write workspace manifest",
			err.Error(),
			"check that the target directory is writable",
			err,
		), false)
	}

	ui.Success(fmt.Sprintf("Wrote workspace manifest to %s", *manifestPath))
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Edit the repos[] list with your repositories and compile databases.")
	fmt.Printf("  2. Run: cxxgraph index --manifest-path %s\n", *manifestPath)
}
