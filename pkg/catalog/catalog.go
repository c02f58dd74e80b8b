// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

// Package catalog builds the Workspace Symbol Catalog: a deterministic,
// cross-repo mapping from a SCIP symbol to the one repo/file that owns
// its real definition, used by the Graph Writer to resolve stub targets
// and cross-file edges.
package catalog

import (
	"sort"

	"github.com/kraklabs/cxxgraph/pkg/scipreader"
	"github.com/kraklabs/cxxgraph/pkg/scipsymbol"
)

// RepoParseResult pairs a repo name with its SCIP Reader output, in the
// order repos were processed by the Workspace Pipeline.
type RepoParseResult struct {
	RepoName string
	Result   scipreader.ParseResult
}

// candidate is one repo/file location that locally defines a symbol.
type candidate struct {
	repo string
	file string
}

// Conflict records a symbol defined by more than one repo and how
// ownership was resolved.
type Conflict struct {
	ScipSymbol     string
	OwnerRepo      string
	CandidateRepos []string
	Reason         string
}

// Catalog is the built, queryable result.
type Catalog struct {
	ownerRepo map[string]string
	ownerFile map[string]string
	conflicts []Conflict
}

// ResolveOwnerRepo returns the repo that owns symbol's definition, if any
// repo in the workspace defines it locally.
func (c *Catalog) ResolveOwnerRepo(symbol string) (string, bool) {
	repo, ok := c.ownerRepo[symbol]
	return repo, ok
}

// ResolveOwnerFile returns the file path of symbol's chosen definition.
func (c *Catalog) ResolveOwnerFile(symbol string) (string, bool) {
	file, ok := c.ownerFile[symbol]
	return file, ok
}

// Conflicts lists every symbol defined locally by more than one repo,
// together with how ownership was resolved.
func (c *Catalog) Conflicts() []Conflict {
	return c.conflicts
}

const (
	reasonOverride    = "override"
	reasonPackageHint = "package_hint"
	reasonStableOrder = "stable_order"
)

// packageLocalPlaceholder is the SCIP convention for "not a named
// external package" — never usable as a package-hint match.
const packageLocalPlaceholder = "."

// Build implements §4.4: for every scip_symbol with at least one local
// Keep-disposition definition somewhere in the workspace, resolve a
// single owner repo by precedence override > package_hint >
// stable_order, and emit a Conflict for every symbol with >1 candidate.
//
// overrides maps scip_symbol -> the repo name that should own it,
// honored only when that repo is actually among the candidates.
func Build(repoResults []RepoParseResult, overrides map[string]string, cfg scipsymbol.Config) *Catalog {
	candidatesBySymbol := make(map[string][]candidate)
	// symbolOrder preserves first-seen order across repos, so stable_order
	// resolution and conflict reporting are deterministic across reruns.
	var symbolOrder []string

	for _, rp := range repoResults {
		for _, def := range rp.Result.Symbols {
			if def.Disposition != scipsymbol.Keep {
				continue
			}
			if _, seen := candidatesBySymbol[def.Symbol]; !seen {
				symbolOrder = append(symbolOrder, def.Symbol)
			}
			candidatesBySymbol[def.Symbol] = append(candidatesBySymbol[def.Symbol], candidate{repo: rp.RepoName, file: def.DocumentPath})
		}
	}

	cat := &Catalog{
		ownerRepo: make(map[string]string, len(symbolOrder)),
		ownerFile: make(map[string]string, len(symbolOrder)),
	}

	for _, symbol := range symbolOrder {
		cands := candidatesBySymbol[symbol]
		owner, ownerFile, reason := resolveOwner(symbol, cands, overrides, cfg)
		cat.ownerRepo[symbol] = owner
		cat.ownerFile[symbol] = ownerFile

		if len(cands) > 1 {
			repos := make([]string, len(cands))
			for i, c := range cands {
				repos[i] = c.repo
			}
			cat.conflicts = append(cat.conflicts, Conflict{
				ScipSymbol:     symbol,
				OwnerRepo:      owner,
				CandidateRepos: repos,
				Reason:         reason,
			})
		}
	}

	sort.Slice(cat.conflicts, func(i, j int) bool { return cat.conflicts[i].ScipSymbol < cat.conflicts[j].ScipSymbol })

	return cat
}

func resolveOwner(symbol string, cands []candidate, overrides map[string]string, cfg scipsymbol.Config) (repo, file, reason string) {
	if override, ok := overrides[symbol]; ok {
		for _, c := range cands {
			if c.repo == override {
				return c.repo, c.file, reasonOverride
			}
		}
	}

	if parsed, err := scipsymbol.Parse(symbol, scipsymbol.KindUnspecified, cfg); err == nil && parsed.PackageName != packageLocalPlaceholder {
		for _, c := range cands {
			if c.repo == parsed.PackageName {
				return c.repo, c.file, reasonPackageHint
			}
		}
	}

	first := cands[0]
	return first.repo, first.file, reasonStableOrder
}
