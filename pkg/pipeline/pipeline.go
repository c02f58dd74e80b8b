// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kraklabs/cxxgraph/pkg/catalog"
	"github.com/kraklabs/cxxgraph/pkg/compiledb"
	"github.com/kraklabs/cxxgraph/pkg/config"
	"github.com/kraklabs/cxxgraph/pkg/graphwriter"
	"github.com/kraklabs/cxxgraph/pkg/scipreader"
	"github.com/kraklabs/cxxgraph/pkg/scipsymbol"
	"github.com/kraklabs/cxxgraph/pkg/vectorwriter"
)

const defaultJSONLChunkSize = 500

// Pipeline orchestrates one workspace run: fetch, optionally extract and
// embed, optionally normalize/index/parse, per repo in manifest order,
// then a single global catalog build and graph write, per spec §4.7.
type Pipeline struct {
	Manifest config.WorkspaceManifest
	Options  Options

	Fetcher      Fetcher
	Extractor    Extractor
	Indexer      Indexer
	SymbolConfig scipsymbol.Config

	VectorWriter *vectorwriter.Writer
	GraphWriter  *graphwriter.Writer

	Logger *slog.Logger

	// OnPhase, if set, is called at the start of each named step for a
	// repo ("parsing", "embedding", "writing") so a caller can drive a
	// CLI progress indicator. It is never required for correctness.
	OnPhase func(repoName, phase string)
}

func (p *Pipeline) notifyPhase(repoName, phase string) {
	if p.OnPhase != nil {
		p.OnPhase(repoName, phase)
	}
}

// New builds a Pipeline with a GitFetcher default; Extractor/Indexer/
// VectorWriter/GraphWriter are all optional and left nil by the caller
// when that half of the pipeline is disabled.
func New(manifest config.WorkspaceManifest, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Manifest: manifest,
		Options:  opts,
		Fetcher: GitFetcher{
			UpdateSubmodules: opts.UpdateSubmodules,
		},
		Logger: logger,
	}
}

// Run executes the full workspace pipeline and returns the run report.
// A repo-level error is recorded in that repo's RepoReport and the loop
// continues to the next repo unless Options.FailFast is set, in which
// case Run returns immediately with an error and a "failed" report.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	report := RunReport{
		RunID:        uuid.NewString(),
		Pipeline:     p.Manifest.WorkspaceName,
		TimestampUTC: time.Now().UTC().Format(time.RFC3339),
	}

	var repoResults []catalog.RepoParseResult
	enabled, succeeded := 0, 0

	for _, repo := range p.Manifest.Repos {
		if !repo.Enabled {
			continue
		}
		enabled++

		repoReport, parseResult, ok := p.runRepo(ctx, repo)
		report.Repos = append(report.Repos, repoReport)

		if !ok {
			p.Logger.Error("workspace.pipeline.repo.failed", "repo", repo.RepoName, "error", repoReport.Error)
			if p.Options.FailFast {
				report.Status = "failed"
				return report, fmt.Errorf("pipeline: repo %q: %s", repo.RepoName, repoReport.Error)
			}
			continue
		}

		succeeded++
		if parseResult != nil {
			repoResults = append(repoResults, catalog.RepoParseResult{RepoName: repo.RepoName, Result: *parseResult})
		}
	}

	if len(repoResults) > 0 && p.GraphWriter != nil {
		p.notifyPhase("", "writing")
		cat := catalog.Build(repoResults, nil, p.SymbolConfig)
		report.WorkspaceConflicts = cat.Conflicts()

		stats, err := p.GraphWriter.Write(ctx, repoResults, cat, p.SymbolConfig)
		report.GraphIngestion = stats
		if err != nil {
			p.Logger.Error("workspace.pipeline.graph_write.failed", "error", err)
			report.Status = "failed"
			return report, fmt.Errorf("pipeline: global graph write: %w", err)
		}
	}

	report.Status = finalStatus(enabled, succeeded)
	return report, nil
}

// runRepo drives the five per-repo steps of §4.7 for one repo. ok is
// false if any step failed; parseResult is nil whenever indexing was
// skipped, disabled, or produced nothing.
func (p *Pipeline) runRepo(ctx context.Context, repo config.RepoSpec) (RepoReport, *scipreader.ParseResult, bool) {
	rr := RepoReport{RepoName: repo.RepoName, Status: "success"}

	checkoutDir, err := p.Fetcher.Fetch(ctx, repo, p.Manifest.RepoCacheDir)
	if err != nil {
		rr.Status, rr.Error = "failed", err.Error()
		return rr, nil, false
	}

	if p.Extractor != nil {
		p.notifyPhase(repo.RepoName, "parsing")
		entitiesPath, err := p.Extractor.Extract(ctx, checkoutDir, repo.SourceSubdir)
		if err != nil {
			rr.Status, rr.Error = "failed", err.Error()
			return rr, nil, false
		}

		if repo.RunVector && p.VectorWriter != nil {
			p.notifyPhase(repo.RepoName, "embedding")
			stats, err := p.writeVectors(ctx, entitiesPath)
			rr.VectorStats = stats
			if err != nil {
				rr.Status, rr.Error = "failed", err.Error()
				return rr, nil, false
			}
		}
	}

	var parseResult *scipreader.ParseResult
	if !p.Options.SkipIndexing && p.Indexer != nil && repo.RunGraph && len(repo.CompdbPaths) > 0 {
		p.notifyPhase(repo.RepoName, "indexing")
		merged, dropped, err := p.indexRepo(ctx, repo, checkoutDir)
		if err != nil {
			rr.Status, rr.Error = "failed", err.Error()
			return rr, nil, false
		}
		rr.CompdbEntriesDropped = dropped
		rr.DocumentCount = merged.DocumentCount
		rr.SymbolCount = len(merged.Symbols)
		rr.ReferenceCount = len(merged.References)
		rr.DroppedSymbolCount = merged.DroppedSymbolCount
		rr.DroppedReferenceCount = merged.DroppedReferenceCount
		parseResult = &merged
	}

	return rr, parseResult, true
}

func (p *Pipeline) writeVectors(ctx context.Context, entitiesPath string) (vectorwriter.RunStats, error) {
	f, err := os.Open(entitiesPath)
	if err != nil {
		return vectorwriter.RunStats{}, fmt.Errorf("open entity stream: %w", err)
	}
	defer f.Close()

	return p.VectorWriter.WriteJSONL(ctx, f, defaultJSONLChunkSize)
}

// indexRepo normalizes and indexes every compdb_paths entry for repo and
// merges the resulting ParseResults into one, since §4.7 retains a
// single (repo_name, ParseResult) pair per repo regardless of how many
// compile databases it declares.
func (p *Pipeline) indexRepo(ctx context.Context, repo config.RepoSpec, checkoutDir string) (scipreader.ParseResult, int, error) {
	var merged scipreader.ParseResult
	totalDropped := 0

	for _, spec := range repo.CompdbPaths {
		compdbPath := config.ResolveCompdbPath(checkoutDir, spec)

		normalizedPath, dropped, err := compiledb.RewriteCompdbForHost(compdbPath, checkoutDir)
		if err != nil {
			return scipreader.ParseResult{}, 0, fmt.Errorf("normalize compile database %s: %w", compdbPath, err)
		}
		totalDropped += dropped

		scipPath, err := p.Indexer.Index(ctx, normalizedPath, p.Options.Jobs)
		if err != nil {
			return scipreader.ParseResult{}, 0, fmt.Errorf("index compile database %s: %w", normalizedPath, err)
		}

		index, err := scipreader.LoadIndex(scipPath)
		if err != nil {
			return scipreader.ParseResult{}, 0, fmt.Errorf("load SCIP index %s: %w", scipPath, err)
		}

		parsed, err := scipreader.Read(index, p.SymbolConfig)
		if err != nil {
			return scipreader.ParseResult{}, 0, fmt.Errorf("read SCIP index %s: %w", scipPath, err)
		}

		mergeParseResults(&merged, parsed)
	}

	return merged, totalDropped, nil
}

func mergeParseResults(dst *scipreader.ParseResult, src scipreader.ParseResult) {
	dst.Symbols = append(dst.Symbols, src.Symbols...)
	dst.References = append(dst.References, src.References...)
	dst.DocumentCount += src.DocumentCount
	dst.ExternalSymbolCount += src.ExternalSymbolCount
	dst.DroppedSymbolCount += src.DroppedSymbolCount
	dst.DroppedReferenceCount += src.DroppedReferenceCount
}

// finalStatus implements §4.7's status rule: success if every enabled
// repo succeeded, failed if none did, partial_success otherwise. A
// workspace with zero enabled repos is vacuously a success.
func finalStatus(enabled, succeeded int) string {
	switch {
	case enabled == 0, succeeded == enabled:
		return "success"
	case succeeded == 0:
		return "failed"
	default:
		return "partial_success"
	}
}
