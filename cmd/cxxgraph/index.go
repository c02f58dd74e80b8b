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
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/kraklabs/cxxgraph/internal/bootstrap"
	"github.com/kraklabs/cxxgraph/internal/errors"
	"github.com/kraklabs/cxxgraph/internal/ui"
	"github.com/kraklabs/cxxgraph/pkg/config"
	"github.com/kraklabs/cxxgraph/pkg/graphwriter"
	"github.com/kraklabs/cxxgraph/pkg/pipeline"
	"github.com/kraklabs/cxxgraph/pkg/scipsymbol"
	"github.com/kraklabs/cxxgraph/pkg/vectorwriter"
)

const defaultEmbeddingDimension = 768

// indexFlags holds the parsed `cxxgraph index` flag set, per spec §6's
// CLI surface.
type indexFlags struct {
	manifestPath     string
	composePath      string
	reportPath       string
	repoName         string
	compdbPath       string
	indexPath        string
	skipIndexing     bool
	recreateGraph    bool
	recreateVector   bool
	jobs             int
	strictConfig     bool
	updateSubmodules bool
	failFast         bool
	extractorCmd     string
	indexerCmd       string
	metricsAddr      string
	json             bool
	quiet            bool
	noColor          bool
}

func runIndex(args []string) {
	flags := parseIndexFlags(args)
	globals := GlobalFlags{JSON: flags.json, Quiet: flags.quiet, NoColor: flags.noColor}
	colorFromFlags(globals.NoColor)

	logger := newCLILogger(globals)
	ctx := context.Background()

	if flags.metricsAddr != "" {
		go serveMetrics(flags.metricsAddr, logger)
	}

	manifest, adHoc, err := loadIndexManifest(flags)
	if err != nil {
		errors.FatalError(err, globals.JSON)
		return
	}

	endpoints, err := config.ResolveStoreEndpoints(flags.composePath, flags.strictConfig, logger)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"failed to resolve store endpoints from docker-compose configuration",
			err.Error(),
			"pass --strict-config=false to fall back to defaults, or fix the compose file",
			err,
		), globals.JSON)
		return
	}
	if len(endpoints.MissingServices) > 0 {
		logger.Warn("index.config.missing_services", "services", endpoints.MissingServices)
	}

	stores, err := bootstrap.OpenStores(ctx, endpoints, bootstrap.StoreOptions{}, logger)
	if err != nil {
		errors.FatalError(errors.NewStoreError(
			"could not connect to the graph store or vector store",
			err.Error(),
			"confirm neo4j and qdrant are running and reachable at the resolved endpoints",
			err,
		), globals.JSON)
		return
	}
	defer stores.Close(ctx)

	if manifest.Neo4j.RecreateGraph || flags.recreateGraph {
		logger.Info("index.graph.recreate_requested")
	}

	symbolConfig := scipsymbol.NewConfig(nil, nil)

	graphWriter := graphwriter.New(stores.Graph, graphwriter.Options{}, logger)

	embedder := resolveEmbedder(logger)
	collection := manifest.Qdrant.CollectionName
	if collection == "" {
		collection = "cxxgraph_entities"
	}
	vectorWriter := vectorwriter.New(embedder, stores.Vector, vectorwriter.Options{
		Collection: collection,
		Dimension:  defaultEmbeddingDimension,
		Recreate:   manifest.Qdrant.RecreateCollection || flags.recreateVector,
	}, logger)

	opts := pipeline.Options{
		FailFast:         flags.failFast,
		Jobs:             flags.jobs,
		SkipIndexing:     flags.skipIndexing,
		UpdateSubmodules: flags.updateSubmodules,
	}

	p := pipeline.New(manifest, opts, logger)
	if adHoc {
		p.Fetcher = pipeline.LocalFetcher{}
	}
	p.SymbolConfig = symbolConfig
	p.GraphWriter = graphWriter
	p.VectorWriter = vectorWriter
	if !flags.skipIndexing {
		if flags.indexPath != "" {
			p.Indexer = pipeline.StaticIndexer{Path: flags.indexPath}
		} else {
			p.Indexer = pipeline.CommandIndexer{Command: flags.indexerCmd}
		}
	}
	p.Extractor = pipeline.CommandExtractor{Command: flags.extractorCmd}

	progress := NewProgressConfig(globals)
	spinner := NewSpinner(progress, fmt.Sprintf("indexing %s", manifest.WorkspaceName))
	if spinner != nil {
		p.OnPhase = func(repoName, phase string) {
			if repoName == "" {
				spinner.Describe(phaseDescription(phase))
				return
			}
			spinner.Describe(fmt.Sprintf("%s: %s", phaseDescription(phase), repoName))
		}
	}

	report, runErr := p.Run(ctx)

	if spinner != nil {
		_ = spinner.Finish()
	}

	if flags.reportPath != "" {
		if err := pipeline.WriteReport(report, flags.reportPath); err != nil {
			logger.Error("index.report.write_failed", "path", flags.reportPath, "error", err)
		}
	}

	if globals.JSON {
		_ = pipeline.WriteReportTo(os.Stdout, report)
	} else {
		printRunSummary(report)
	}

	if runErr != nil {
		errors.FatalError(errors.NewInternalError(
			"workspace pipeline run failed",
			runErr.Error(),
			"inspect the run report for the failing repo and retry",
			runErr,
		), globals.JSON)
		return
	}

	if report.Status == "failed" {
		os.Exit(errors.ExitFatal)
	}
}

func parseIndexFlags(args []string) indexFlags {
	fs := pflag.NewFlagSet("index", pflag.ExitOnError)
	var f indexFlags

	fs.StringVar(&f.manifestPath, "manifest-path", "workspace.yaml", "Path to the workspace manifest (YAML or JSON)")
	fs.StringVar(&f.composePath, "compose-path", "docker-compose.yml", "Path to the docker-compose file used for store discovery")
	fs.StringVar(&f.reportPath, "report-path", "", "Path to write the JSON run report (optional)")
	fs.StringVar(&f.repoName, "repo-name", "", "Limit an ad hoc run to a single local repo (used with --compdb-path)")
	fs.StringVar(&f.compdbPath, "compdb-path", "", "Compile database path for an ad hoc single-repo run")
	fs.StringVar(&f.indexPath, "index-path", "", "Pre-built SCIP index path for an ad hoc single-repo run, skipping the external indexer")
	fs.BoolVar(&f.skipIndexing, "skip-indexing", false, "Skip compile-database normalization, external indexing, and SCIP parsing")
	fs.BoolVar(&f.recreateGraph, "recreate-graph", false, "Recreate graph schema constraints before writing")
	fs.BoolVar(&f.recreateVector, "recreate-vector", false, "Recreate the vector collection before writing")
	fs.IntVar(&f.jobs, "jobs", 0, "Parallelism hint passed to the external indexer (0 lets the indexer choose)")
	fs.BoolVar(&f.strictConfig, "strict-config", config.StrictConfigValidation(), "Treat startup configuration gaps as fatal instead of defaulting")
	fs.BoolVar(&f.updateSubmodules, "update-submodules", false, "Run 'git submodule update --init --recursive' after each checkout")
	fs.BoolVar(&f.failFast, "fail-fast", false, "Abort the run on the first repo-level failure")
	fs.StringVar(&f.extractorCmd, "extractor-cmd", "cxx-entity-extractor", "External C++ entity extractor binary")
	fs.StringVar(&f.indexerCmd, "indexer-cmd", "scip-clang", "External SCIP indexer binary")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on (e.g. :9090); disabled when empty")
	fs.BoolVar(&f.json, "json", false, "Emit the run report as JSON to stdout")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "Suppress progress output")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cxxgraph index [options]\n\nRuns the Workspace Pipeline over a workspace manifest (or an ad hoc\nsingle repo via --repo-name/--compdb-path).\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitFatal)
	}
	if f.json {
		f.quiet = true
	}
	return f
}

// loadIndexManifest builds the WorkspaceManifest for this run: either the
// manifest named by --manifest-path, or — when --repo-name/--compdb-path
// are given and no manifest exists at that path — a single-repo manifest
// synthesized from the local checkout the command runs in.
func loadIndexManifest(f indexFlags) (config.WorkspaceManifest, bool, error) {
	if _, err := os.Stat(f.manifestPath); err == nil {
		m, err := config.LoadManifest(f.manifestPath)
		return m, false, err
	}
	if f.repoName == "" || f.compdbPath == "" {
		return config.WorkspaceManifest{}, false, errors.NewInputError(
			fmt.Sprintf("no workspace manifest found at %s", f.manifestPath),
			"neither a manifest file nor --repo-name/--compdb-path were supplied",
			"run 'cxxgraph init' to scaffold a manifest, or pass --repo-name and --compdb-path for an ad hoc run",
		)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return config.WorkspaceManifest{}, false, fmt.Errorf("index: resolve working directory: %w", err)
	}

	m := config.WorkspaceManifest{
		WorkspaceName: f.repoName,
		RepoCacheDir:  filepath.Join(cwd, "output", "workspace_repos"),
		IndexDir:      filepath.Join(cwd, "output", "workspace_scip"),
		EntitiesDir:   filepath.Join(cwd, "output", "workspace_entities"),
		Repos: []config.RepoSpec{{
			RepoName:     f.repoName,
			GitURL:       "local://" + cwd,
			Ref:          "HEAD",
			TokenEnv:     "CXXGRAPH_LOCAL_TOKEN",
			SourceSubdir: ".",
			CompdbPaths:  []config.CompdbSpec{{Path: f.compdbPath}},
			Enabled:      true,
			RunVector:    true,
			RunGraph:     true,
		}},
	}
	return m, true, nil
}

func resolveEmbedder(logger *slog.Logger) vectorwriter.Embedder {
	if config.UseMockEmbedding() {
		logger.Warn("index.embedder.mock", "reason", "USE_MOCK_EMBEDDING is set")
	}
	return vectorwriter.MockEmbedder{}
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Info("index.metrics.listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("index.metrics.failed", "error", err)
	}
}

func printRunSummary(report pipeline.RunReport) {
	ui.Header(fmt.Sprintf("Run %s — %s", report.RunID, report.Pipeline))
	fmt.Println()
	for _, r := range report.Repos {
		switch r.Status {
		case "success":
			ui.Success(fmt.Sprintf("%s: %d symbols, %d references, %d points upserted",
				r.RepoName, r.SymbolCount, r.ReferenceCount, r.VectorStats.PointsUpserted))
		default:
			ui.Error(fmt.Sprintf("%s: %s", r.RepoName, r.Error))
		}
	}
	fmt.Println()
	if len(report.WorkspaceConflicts) > 0 {
		ui.Warning(fmt.Sprintf("%d symbol ownership conflicts resolved", len(report.WorkspaceConflicts)))
	}
	fmt.Printf("%s %d nodes, %d edges created\n", ui.Label("Graph ingestion"),
		report.GraphIngestion.NodesCreated, report.GraphIngestion.EdgesCreated)

	switch report.Status {
	case "success":
		ui.Success("Run complete")
	case "partial_success":
		ui.Warning("Run completed with partial failures")
	default:
		ui.Error("Run failed")
	}
}

func newCLILogger(globals GlobalFlags) *slog.Logger {
	level := slog.LevelInfo
	if globals.Quiet {
		level = slog.LevelWarn
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
