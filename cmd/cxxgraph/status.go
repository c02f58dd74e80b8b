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
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/kraklabs/cxxgraph/internal/errors"
	"github.com/kraklabs/cxxgraph/internal/output"
	"github.com/kraklabs/cxxgraph/internal/ui"
	"github.com/kraklabs/cxxgraph/pkg/pipeline"
)

// runStatus summarizes a run report written by `cxxgraph index
// --report-path`, per §6's "Run report" contract.
func runStatus(args []string) {
	fs := pflag.NewFlagSet("status", pflag.ExitOnError)
	reportPath := fs.String("report-path", "", "Path to a JSON run report written by 'cxxgraph index'")
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	noColor := fs.Bool("no-color", false, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cxxgraph status --report-path <path> [options]\n\nSummarizes a prior run report.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitFatal)
	}
	colorFromFlags(*noColor)

	if strings.TrimSpace(*reportPath) == "" {
		errors.FatalError(errors.NewInputError(
			"--report-path is required",
			"status needs a run report written by a prior 'cxxgraph index' invocation",
			"pass --report-path pointing at the JSON file written via 'cxxgraph index --report-path'",
		), *jsonOutput)
		return
	}

	raw, err := os.ReadFile(*reportPath)
	if err != nil {
		errors.FatalError(errors.NewNotFoundError(
			fmt.Sprintf("cannot read run report %s", *reportPath),
			err.Error(),
			"check the path, or run 'cxxgraph index --report-path <path>' first",
		), *jsonOutput)
		return
	}

	var report pipeline.RunReport
	if err := json.Unmarshal(raw, &report); err != nil {
		errors.FatalError(errors.NewConfigError(
			fmt.Sprintf("cannot parse run report %s", *reportPath),
			err.Error(),
			"the file must be a JSON run report written by 'cxxgraph index'",
			err,
		), *jsonOutput)
		return
	}

	if *jsonOutput {
		if err := output.JSON(report); err != nil {
			errors.FatalError(err, true)
		}
		return
	}

	printStatusTable(report)
}

func printStatusTable(report pipeline.RunReport) {
	ui.Header(fmt.Sprintf("Run %s — %s", report.RunID, report.Pipeline))
	fmt.Printf("%s %s\n", ui.Label("Status:"), report.Status)
	fmt.Printf("%s %s\n\n", ui.Label("Timestamp:"), report.TimestampUTC)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REPO\tSTATUS\tSYMBOLS\tREFERENCES\tPOINTS UPSERTED\tERROR")
	for _, r := range report.Repos {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.RepoName, ui.StatusBadge(r.Status), r.SymbolCount, r.ReferenceCount, r.VectorStats.PointsUpserted, r.Error)
	}
	w.Flush()

	fmt.Println()
	fmt.Printf("%s %d nodes, %d edges created, %d batches failed\n", ui.Label("Graph ingestion:"),
		report.GraphIngestion.NodesCreated, report.GraphIngestion.EdgesCreated, report.GraphIngestion.BatchesFailed)

	if len(report.WorkspaceConflicts) > 0 {
		ui.Warning(fmt.Sprintf("%d symbol ownership conflicts resolved", len(report.WorkspaceConflicts)))
	}
}
