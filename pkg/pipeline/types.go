// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

// Package pipeline drives the Workspace Pipeline: a sequential per-repo
// fetch/extract/index/embed loop followed by a single global catalog
// build and graph write, per spec.md §4.7.
package pipeline

import (
	"github.com/kraklabs/cxxgraph/pkg/catalog"
	"github.com/kraklabs/cxxgraph/pkg/graphwriter"
	"github.com/kraklabs/cxxgraph/pkg/vectorwriter"
)

// Options controls pipeline-wide behavior not carried by the manifest.
type Options struct {
	// FailFast aborts the run on the first repo-level error instead of
	// continuing to the remaining repos.
	FailFast bool

	// Jobs is the parallelism hint passed to the external indexer.
	Jobs int

	// SkipIndexing skips the compile-database normalization / external
	// indexer / SCIP Reader step for every repo, leaving only the
	// extractor -> Vector Writer half of the pipeline.
	SkipIndexing bool

	// UpdateSubmodules runs `git submodule update --init --recursive`
	// after each repo checkout.
	UpdateSubmodules bool
}

// RepoReport is one repo's entry in the run report.
type RepoReport struct {
	RepoName              string               `json:"repo_name"`
	Status                string               `json:"status"`
	Error                 string               `json:"error,omitempty"`
	VectorStats           vectorwriter.RunStats `json:"vector_stats"`
	DocumentCount         int                  `json:"scip_document_count"`
	SymbolCount           int                  `json:"scip_symbol_count"`
	ReferenceCount        int                  `json:"scip_reference_count"`
	DroppedSymbolCount    int                  `json:"scip_dropped_symbol_count"`
	DroppedReferenceCount int                  `json:"scip_dropped_reference_count"`
	CompdbEntriesDropped  int                  `json:"compdb_entries_dropped"`
}

// RunReport is the JSON object written per run, per spec §6 "Run report".
type RunReport struct {
	RunID              string             `json:"run_id"`
	Pipeline           string             `json:"pipeline"`
	Status             string             `json:"status"`
	TimestampUTC       string             `json:"timestamp_utc"`
	Repos              []RepoReport       `json:"repos"`
	WorkspaceConflicts []catalog.Conflict `json:"workspace_conflicts"`
	GraphIngestion     graphwriter.RunStats `json:"graph_ingestion"`
}
