// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

// Package graphwriter converts SCIP Reader output and the Workspace
// Symbol Catalog into graph nodes/edges, enforces the allowed-type-pair
// invariants, and batch-upserts into a Neo4j-shaped graph store.
package graphwriter

import "github.com/kraklabs/cxxgraph/pkg/identity"

// RelationshipType is the closed set of edge labels the writer emits.
type RelationshipType string

const (
	Inherits  RelationshipType = "INHERITS"
	Overrides RelationshipType = "OVERRIDES"
	Calls     RelationshipType = "CALLS"
	UsesType  RelationshipType = "USES_TYPE"
	DefinedIn RelationshipType = "DEFINED_IN"
)

// NodeRecord is one deduplicated graph node.
type NodeRecord struct {
	OwnerRepo       string // (owner_repo, ScipSymbol) is the uniqueness key
	ScipSymbol      string
	GlobalURI       string
	EntityType      identity.EntityType
	EntityName      string
	FilePath        string
	IngestionRepo   string // coalesce-on-write: the repo whose run first created this node
	IsExternal      bool
	FunctionSigHash string // overload discriminator; empty for non-Function nodes
}

func (n NodeRecord) key() nodeKey { return nodeKey{ownerRepo: n.OwnerRepo, scipSymbol: n.ScipSymbol} }

type nodeKey struct {
	ownerRepo  string
	scipSymbol string
}

// EdgeRecord is one deduplicated graph edge.
type EdgeRecord struct {
	SrcOwnerRepo     string
	SrcScipSymbol    string
	TgtOwnerRepo     string
	TgtScipSymbol    string
	RelationshipType RelationshipType
}

func (e EdgeRecord) key() edgeKey {
	return edgeKey{
		src:  nodeKey{ownerRepo: e.SrcOwnerRepo, scipSymbol: e.SrcScipSymbol},
		tgt:  nodeKey{ownerRepo: e.TgtOwnerRepo, scipSymbol: e.TgtScipSymbol},
		rel:  e.RelationshipType,
	}
}

type edgeKey struct {
	src, tgt nodeKey
	rel      RelationshipType
}

// FileNode is a synthetic File node that DEFINED_IN edges point at.
type FileNode struct {
	Path     string
	RepoName string
}

func (f FileNode) key() fileKey { return fileKey{path: f.Path, repo: f.RepoName} }

type fileKey struct{ path, repo string }

// DroppedEdgeReason is the closed set of edge-validation drop reasons.
type DroppedEdgeReason string

const (
	ReasonMalformedURI        DroppedEdgeReason = "malformed_uri"
	ReasonCallsFromFile       DroppedEdgeReason = "calls_from_file"
	ReasonImpossibleTypePair  DroppedEdgeReason = "impossible_type_pair"
)

// RunStats accumulates the metrics a Graph Writer run emits per §4.5.
type RunStats struct {
	NodesPrepared        int
	NodesDeduped         int
	NodesCreated         int
	EdgesPrepared        int
	EdgesDeduped         int
	EdgesCreated         int
	BatchesSent          int
	BatchesFailed        int
	RetryAttempts        int
	Errors               int
	DroppedEdgesByReason map[DroppedEdgeReason]int
}

// EdgeWriteSuccessRate is edges_created / edges_deduped, or 1.0 when no
// edges were prepared (vacuously successful).
func (s RunStats) EdgeWriteSuccessRate() float64 {
	if s.EdgesDeduped == 0 {
		return 1.0
	}
	return float64(s.EdgesCreated) / float64(s.EdgesDeduped)
}
